package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-chat-gateway/internal/config"
	"ai-chat-gateway/internal/dto"
	"ai-chat-gateway/internal/entity"
	"ai-chat-gateway/internal/pkg/logger"
	"ai-chat-gateway/internal/pkg/serverutils"
	"ai-chat-gateway/internal/repository/memory"
	"ai-chat-gateway/pkg/policy"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Authentication failures surfaced to the caller. Messages stay generic;
// provider detail goes to the log only.
var (
	ErrInvalidState     = errors.New("invalid or expired authentication state")
	ErrProviderRejected = errors.New("identity provider rejected the sign-in")
	ErrNotAuthorized    = errors.New("account is not authorized")
)

type IOAuthService interface {
	GetLoginURL(redirect string) (string, error)
	HandleCallback(ctx context.Context, state string, code string) (*dto.LoginResponse, error)
}

type oauthService struct {
	states   *memory.StateRepository
	sessions *memory.SessionRepository
	policy   *policy.Evaluator
	logger   logger.ILogger

	googleConf  *oauth2.Config
	userInfoURL string
	httpClient  *http.Client

	admins          map[string]struct{}
	demoMode        bool
	jwtSecret       string
	sessionTTL      time.Duration
	exchangeTimeout time.Duration
}

func NewOAuthService(
	cfg *config.Config,
	states *memory.StateRepository,
	sessions *memory.SessionRepository,
	policyEval *policy.Evaluator,
	log logger.ILogger,
) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	admins := make(map[string]struct{}, len(cfg.Policy.AdminEmails))
	for _, e := range cfg.Policy.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	return &oauthService{
		states:          states,
		sessions:        sessions,
		policy:          policyEval,
		logger:          log,
		googleConf:      conf,
		userInfoURL:     "https://www.googleapis.com/oauth2/v2/userinfo",
		httpClient:      &http.Client{Timeout: cfg.OAuth.ExchangeTimeout},
		admins:          admins,
		demoMode:        cfg.Demo.Enabled,
		jwtSecret:       cfg.App.JWTSecret,
		sessionTTL:      cfg.App.SessionTTL,
		exchangeTimeout: cfg.OAuth.ExchangeTimeout,
	}
}

// GetLoginURL issues a fresh single-use state token and returns the
// provider's authorization URL embedding it. The optional redirect is the
// client-relative path the callback sends the browser back to.
func (s *oauthService) GetLoginURL(redirect string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	s.states.Save(&entity.FlowState{
		Token:     state,
		Redirect:  sanitizeRedirect(redirect),
		CreatedAt: time.Now(),
	})

	return s.googleConf.AuthCodeURL(state), nil
}

// sanitizeRedirect keeps only client-relative paths so the callback can
// never bounce the browser off-site.
func sanitizeRedirect(redirect string) string {
	if strings.HasPrefix(redirect, "/") && !strings.HasPrefix(redirect, "//") {
		return redirect
	}
	return ""
}

// HandleCallback consumes the state token (single use, success or not),
// exchanges the authorization code, verifies the identity against the
// access policy and materializes the session.
func (s *oauthService) HandleCallback(ctx context.Context, state string, code string) (*dto.LoginResponse, error) {
	flow, ok := s.states.Consume(state)
	if !ok {
		s.logger.Warn("OAUTH", "Callback with unknown or expired state", nil)
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, ErrProviderRejected
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()

	token, err := s.googleConf.Exchange(exchangeCtx, code)
	if err != nil {
		s.logger.Error("OAUTH", "Code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, ErrProviderRejected
	}

	googleUser, err := s.fetchUserInfo(exchangeCtx, token.AccessToken)
	if err != nil {
		s.logger.Error("OAUTH", "Fetching user info failed", map[string]interface{}{"error": err.Error()})
		return nil, ErrProviderRejected
	}

	// Policy runs before any session exists; a denied email leaves no
	// trace in the session store.
	if !s.policy.IsAllowed(googleUser.Email) {
		s.logger.Warn("OAUTH", "Access denied by policy", map[string]interface{}{"email": googleUser.Email})
		return nil, ErrNotAuthorized
	}

	identity := entity.Identity{
		Email:    googleUser.Email,
		FullName: googleUser.Name,
		Picture:  googleUser.Picture,
		Tier:     s.deriveTier(googleUser.Email),
	}

	sess := s.sessions.Create(identity)

	signed, err := serverutils.SignSessionToken(s.jwtSecret, sess.ID, s.sessionTTL)
	if err != nil {
		s.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info("OAUTH", "User authenticated", map[string]interface{}{
		"email": identity.Email,
		"tier":  identity.Tier,
	})

	return &dto.LoginResponse{
		AccessToken: signed,
		SessionID:   sess.ID,
		User:        dto.NewUserDTO(identity),
		Redirect:    flow.Redirect,
	}, nil
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *oauthService) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}

	var user googleUserInfo
	if err := json.Unmarshal(content, &user); err != nil {
		return nil, fmt.Errorf("parse userinfo: %w", err)
	}
	if user.Email == "" {
		return nil, errors.New("userinfo without email")
	}
	return &user, nil
}

// deriveTier fixes the identity's access class for the session lifetime:
// admin list wins, demo mode limits everyone else, otherwise unmetered.
func (s *oauthService) deriveTier(email string) entity.Tier {
	if _, ok := s.admins[strings.ToLower(email)]; ok {
		return entity.TierAdmin
	}
	if s.demoMode {
		return entity.TierDemo
	}
	return entity.TierUnrestricted
}
