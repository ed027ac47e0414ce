package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ai-chat-gateway/internal/entity"
	"ai-chat-gateway/internal/pkg/logger"
	"ai-chat-gateway/internal/repository/memory"
	"ai-chat-gateway/pkg/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token and userinfo endpoints the callback talks to.
func fakeGoogle(t *testing.T, email, name string, rejectExchange bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if rejectExchange {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "fake-access-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(googleUserInfo{
			ID:    "123",
			Email: email,
			Name:  name,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type oauthTestEnv struct {
	svc      *oauthService
	states   *memory.StateRepository
	sessions *memory.SessionRepository
}

func newOAuthTestEnv(t *testing.T, provider *httptest.Server, eval *policy.Evaluator, demoMode bool, admins []string) *oauthTestEnv {
	t.Helper()

	adminSet := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		adminSet[a] = struct{}{}
	}

	env := &oauthTestEnv{
		states:   memory.NewStateRepository(10 * time.Minute),
		sessions: memory.NewSessionRepository(time.Hour),
	}
	env.svc = &oauthService{
		states:   env.states,
		sessions: env.sessions,
		policy:   eval,
		logger:   logger.NewNopLogger(),
		googleConf: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:3000/api/auth/google/callback",
			Scopes:       []string{"email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   provider.URL + "/auth",
				TokenURL:  provider.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL:     provider.URL + "/userinfo",
		httpClient:      provider.Client(),
		admins:          adminSet,
		demoMode:        demoMode,
		jwtSecret:       "test-secret",
		sessionTTL:      time.Hour,
		exchangeTimeout: 5 * time.Second,
	}
	return env
}

func TestGetLoginURLRegistersState(t *testing.T) {
	provider := fakeGoogle(t, "user@example.com", "User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, ""), false, nil)

	loginURL, err := env.svc.GetLoginURL("")
	require.NoError(t, err)

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	_, ok := env.states.Consume(state)
	assert.True(t, ok, "the state in the URL must be registered")
}

func TestHandleCallbackSuccess(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	env.states.Save(&entity.FlowState{Token: "state-1", CreatedAt: time.Now()})

	resp, err := env.svc.HandleCallback(context.Background(), "state-1", "auth-code")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "user@acme.com", resp.User.Email)

	sess, ok := env.sessions.Get(resp.SessionID)
	require.True(t, ok)
	assert.Equal(t, "user@acme.com", sess.Identity.Email)
	assert.Equal(t, entity.TierUnrestricted, sess.Identity.Tier)
	assert.Empty(t, sess.Messages)
}

func TestLoginRedirectRoundTrip(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	loginURL, err := env.svc.GetLoginURL("/chat?tab=files")
	require.NoError(t, err)

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	resp, err := env.svc.HandleCallback(context.Background(), state, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "/chat?tab=files", resp.Redirect)
}

func TestLoginRedirectRejectsOffSiteTargets(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	for _, redirect := range []string{"https://evil.example.com/", "//evil.example.com", "chat"} {
		loginURL, err := env.svc.GetLoginURL(redirect)
		require.NoError(t, err)

		parsed, err := url.Parse(loginURL)
		require.NoError(t, err)
		state := parsed.Query().Get("state")

		resp, err := env.svc.HandleCallback(context.Background(), state, "auth-code")
		require.NoError(t, err)
		assert.Empty(t, resp.Redirect, "redirect %q must be dropped", redirect)
	}
}

func TestHandleCallbackUnknownState(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	_, err := env.svc.HandleCallback(context.Background(), "never-issued", "auth-code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestHandleCallbackStateIsSingleUse(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	env.states.Save(&entity.FlowState{Token: "state-1", CreatedAt: time.Now()})

	_, err := env.svc.HandleCallback(context.Background(), "state-1", "auth-code")
	require.NoError(t, err)

	_, err = env.svc.HandleCallback(context.Background(), "state-1", "auth-code")
	assert.ErrorIs(t, err, ErrInvalidState, "a replayed state must be rejected")
}

func TestHandleCallbackExchangeRejected(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", true)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	env.states.Save(&entity.FlowState{Token: "state-1", CreatedAt: time.Now()})

	_, err := env.svc.HandleCallback(context.Background(), "state-1", "bad-code")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestHandleCallbackMissingCode(t *testing.T) {
	provider := fakeGoogle(t, "user@acme.com", "Acme User", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	env.states.Save(&entity.FlowState{Token: "state-1", CreatedAt: time.Now()})

	_, err := env.svc.HandleCallback(context.Background(), "state-1", "")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestHandleCallbackPolicyDenied(t *testing.T) {
	provider := fakeGoogle(t, "outsider@other.com", "Outsider", false)
	env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), false, nil)

	env.states.Save(&entity.FlowState{Token: "state-1", CreatedAt: time.Now()})

	_, err := env.svc.HandleCallback(context.Background(), "state-1", "auth-code")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestHandleCallbackTierDerivation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		demoMode bool
		admins   []string
		want     entity.Tier
	}{
		{"admin wins over demo mode", "boss@acme.com", true, []string{"boss@acme.com"}, entity.TierAdmin},
		{"demo mode applies to everyone else", "user@acme.com", true, []string{"boss@acme.com"}, entity.TierDemo},
		{"no demo mode means unmetered", "user@acme.com", false, nil, entity.TierUnrestricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := fakeGoogle(t, tt.email, "Someone", false)
			env := newOAuthTestEnv(t, provider, policy.NewEvaluator(nil, "acme.com"), tt.demoMode, tt.admins)

			env.states.Save(&entity.FlowState{Token: "state-1", CreatedAt: time.Now()})

			resp, err := env.svc.HandleCallback(context.Background(), "state-1", "auth-code")
			require.NoError(t, err)

			sess, ok := env.sessions.Get(resp.SessionID)
			require.True(t, ok)
			assert.Equal(t, tt.want, sess.Identity.Tier)
		})
	}
}
