package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-chat-gateway/internal/config"
	"ai-chat-gateway/internal/constant"
	"ai-chat-gateway/internal/dto"
	"ai-chat-gateway/internal/entity"
	"ai-chat-gateway/internal/pkg/logger"
	"ai-chat-gateway/internal/pkg/serverutils"
	"ai-chat-gateway/internal/repository/memory"
	"ai-chat-gateway/pkg/ingest"
	"ai-chat-gateway/pkg/llm"
	"ai-chat-gateway/pkg/respcache"
	"ai-chat-gateway/pkg/usage"
)

var ErrSessionNotFound = errors.New("session not found or expired")

type IChatService interface {
	SendChat(ctx context.Context, sessionID string, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetChatHistory(ctx context.Context, sessionID string) (*dto.ChatHistoryResponse, error)
	NewSession(ctx context.Context, sessionID string) (*dto.NewSessionResponse, error)
	GetUsage(ctx context.Context, sessionID string) (*dto.UsageResponse, error)
	ListModels(ctx context.Context) (*dto.ModelsResponse, error)
}

type chatService struct {
	sessions *memory.SessionRepository
	tracker  *usage.Tracker
	cache    *respcache.Cache
	pipeline *ingest.Pipeline
	provider llm.Provider
	logger   logger.ILogger

	chatTimeout  time.Duration
	modelTimeout time.Duration
	imageTimeout time.Duration
	jwtSecret    string
	sessionTTL   time.Duration
}

func NewChatService(
	cfg *config.Config,
	sessions *memory.SessionRepository,
	tracker *usage.Tracker,
	cache *respcache.Cache,
	pipeline *ingest.Pipeline,
	provider llm.Provider,
	log logger.ILogger,
) IChatService {
	return &chatService{
		sessions:     sessions,
		tracker:      tracker,
		cache:        cache,
		pipeline:     pipeline,
		provider:     provider,
		logger:       log,
		chatTimeout:  cfg.Upstream.ChatTimeout,
		modelTimeout: cfg.Upstream.ModelTimeout,
		imageTimeout: cfg.Upstream.ImageTimeout,
		jwtSecret:    cfg.App.JWTSecret,
		sessionTTL:   cfg.App.SessionTTL,
	}
}

// SendChat runs one exchange: quota reservation, optional file ingestion,
// cache lookup, upstream call, and history append. The session's exclusive
// section covers everything from prompt assembly to the append, so
// concurrent sends on one session serialize and history stays an
// alternating user/assistant sequence. A failed exchange leaves history
// and the quota untouched.
func (s *chatService) SendChat(ctx context.Context, sessionID string, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	identity := sess.Identity

	// Reserve a request slot before any upstream work. The reservation is
	// released on failure or a cache hit, committed with the real token
	// count on success.
	if err := s.tracker.CheckAndReserve(identity); err != nil {
		return nil, err
	}

	ingested := s.ingestAttachment(req)

	if constant.IsImageGenerationModel(req.Model) {
		return s.sendImage(ctx, sessionID, identity, req, ingested)
	}

	userContent := req.Message
	if ingested != nil {
		userContent += ingest.PromptBlock(*ingested)
	}

	var resp *dto.SendChatResponse
	err := s.sessions.WithLock(sessionID, func(live *entity.ChatSession) error {
		history := make([]llm.Message, 0, len(live.Messages)+2)
		history = append(history, llm.Message{Role: "system", Content: constant.ChatSystemPromptV1})
		for _, m := range live.Messages {
			history = append(history, llm.Message{Role: m.Role, Content: m.Content})
		}
		history = append(history, llm.Message{Role: entity.ChatMessageRoleUser, Content: userContent})

		opts := llm.Options{
			Temperature: constant.ChatTemperature,
			TopP:        constant.ChatTopP,
			MaxTokens:   constant.ChatMaxTokens,
			Model:       req.Model,
		}
		fingerprint := respcache.Fingerprint(req.Model, history, opts)

		userMsg := entity.ChatMessage{
			Role:      entity.ChatMessageRoleUser,
			Content:   userContent,
			FileName:  req.FileName,
			CreatedAt: time.Now(),
		}

		if entry, found := s.cache.Lookup(fingerprint); found {
			// Served without generation, so the reserved request slot
			// goes back and no tokens are charged.
			s.tracker.Release(identity)
			live.Messages = append(live.Messages,
				userMsg,
				entity.ChatMessage{Role: entity.ChatMessageRoleAssistant, Content: entry.Content, CreatedAt: time.Now()},
			)
			resp = s.buildResponse(entry.Content, ingested, true)
			return nil
		}

		entry, err := s.cache.Do(fingerprint, func() (*respcache.Entry, error) {
			callCtx, cancel := context.WithTimeout(ctx, s.chatTimeout)
			defer cancel()

			reply, err := s.provider.Chat(callCtx, history,
				llm.WithModel(req.Model),
				llm.WithTemperature(constant.ChatTemperature),
				llm.WithTopP(constant.ChatTopP),
				llm.WithMaxTokens(constant.ChatMaxTokens),
			)
			if err != nil {
				return nil, err
			}
			tokens := reply.TokensUsed
			if tokens == 0 {
				tokens = estimateTokens(userContent, reply.Content)
			}
			entry := &respcache.Entry{Content: reply.Content, TokensUsed: tokens}
			s.cache.Store(fingerprint, entry)
			return entry, nil
		})
		if err != nil {
			s.tracker.Release(identity)
			s.logger.Error("CHAT", "Upstream chat call failed", map[string]interface{}{
				"model": req.Model,
				"error": err.Error(),
			})
			return err
		}

		live.Messages = append(live.Messages,
			userMsg,
			entity.ChatMessage{Role: entity.ChatMessageRoleAssistant, Content: entry.Content, CreatedAt: time.Now()},
		)
		s.tracker.Commit(identity, entry.TokensUsed)
		resp = s.buildResponse(entry.Content, ingested, false)
		return nil
	})
	if err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			s.tracker.Release(identity)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return resp, nil
}

// sendImage routes image-family models to the generation endpoint. Results
// are prompt-specific URLs with short upstream lifetimes, so they bypass
// the response cache. Usage reports no token count; a flat charge stands
// in for it.
func (s *chatService) sendImage(ctx context.Context, sessionID string, identity entity.Identity, req *dto.SendChatRequest, ingested *entity.IngestedFile) (*dto.SendChatResponse, error) {
	prompt := req.Message
	if ingested != nil && ingested.Status == entity.IngestStatusOK {
		fileContext := ingested.Text
		if len(fileContext) > 1000 {
			fileContext = fileContext[:1000]
		}
		prompt += "\n\nContext from uploaded file:\n" + fileContext
	}

	var resp *dto.SendChatResponse
	err := s.sessions.WithLock(sessionID, func(live *entity.ChatSession) error {
		callCtx, cancel := context.WithTimeout(ctx, s.imageTimeout)
		defer cancel()

		reply, err := s.provider.GenerateImage(callCtx, prompt, llm.WithModel(req.Model))
		if err != nil {
			s.tracker.Release(identity)
			s.logger.Error("CHAT", "Image generation failed", map[string]interface{}{
				"model": req.Model,
				"error": err.Error(),
			})
			return err
		}

		content := fmt.Sprintf("Here is the generated image:\n\n![Generated Image](%s)", reply.ImageURL)
		now := time.Now()
		live.Messages = append(live.Messages,
			entity.ChatMessage{Role: entity.ChatMessageRoleUser, Content: req.Message, FileName: req.FileName, CreatedAt: now},
			entity.ChatMessage{Role: entity.ChatMessageRoleAssistant, Content: content, IsImage: true, CreatedAt: time.Now()},
		)
		s.tracker.Commit(identity, constant.ImageGenerationTokenCharge)

		resp = s.buildResponse(content, ingested, false)
		resp.IsImage = true
		return nil
	})
	if err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			s.tracker.Release(identity)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return resp, nil
}

func (s *chatService) ingestAttachment(req *dto.SendChatRequest) *entity.IngestedFile {
	if req.FileContent == "" || req.FileName == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(req.FileContent)
	if err != nil {
		s.logger.Warn("CHAT", "Attachment is not valid base64", map[string]interface{}{"file": req.FileName})
		return &entity.IngestedFile{Name: req.FileName, Status: entity.IngestStatusFailed}
	}
	file := s.pipeline.Ingest(data, req.FileName)
	return &file
}

func (s *chatService) buildResponse(content string, ingested *entity.IngestedFile, cached bool) *dto.SendChatResponse {
	resp := &dto.SendChatResponse{Content: content, Cached: cached}
	if ingested != nil {
		resp.FileName = ingested.Name
		resp.FileStatus = string(ingested.Status)
	}
	return resp
}

func (s *chatService) GetChatHistory(ctx context.Context, sessionID string) (*dto.ChatHistoryResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	messages := make([]dto.ChatMessageDTO, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		messages = append(messages, dto.ChatMessageDTO{
			Role:      m.Role,
			Content:   m.Content,
			FileName:  m.FileName,
			IsImage:   m.IsImage,
			CreatedAt: m.CreatedAt,
		})
	}
	return &dto.ChatHistoryResponse{Messages: messages}, nil
}

// NewSession replaces the caller's session with an empty one carrying the
// same identity, and returns the token for the replacement.
func (s *chatService) NewSession(ctx context.Context, sessionID string) (*dto.NewSessionResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	fresh := s.sessions.Create(sess.Identity)
	s.sessions.Delete(sessionID)

	signed, err := serverutils.SignSessionToken(s.jwtSecret, fresh.ID, s.sessionTTL)
	if err != nil {
		s.sessions.Delete(fresh.ID)
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info("CHAT", "Session rotated", map[string]interface{}{
		"email": sess.Identity.Email,
	})

	return &dto.NewSessionResponse{SessionID: fresh.ID, AccessToken: signed}, nil
}

func (s *chatService) GetUsage(ctx context.Context, sessionID string) (*dto.UsageResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	snap := s.tracker.Snapshot(sess.Identity)
	resp := &dto.UsageResponse{
		Tier:         string(sess.Identity.Tier),
		Unlimited:    snap.Unlimited,
		RequestCount: snap.Requests,
		TokenCount:   snap.Tokens,
	}
	if !snap.Unlimited {
		resp.RequestLimit = snap.RequestLimit
		resp.TokenLimit = snap.TokenLimit
		resp.LimitReached = snap.Requests >= snap.RequestLimit || snap.Tokens >= snap.TokenLimit
	}
	return resp, nil
}

func (s *chatService) ListModels(ctx context.Context) (*dto.ModelsResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	models, err := s.provider.ListModels(callCtx)
	if err != nil {
		s.logger.Error("CHAT", "Listing models failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return &dto.ModelsResponse{Models: models}, nil
}

// estimateTokens approximates usage by word count when the upstream reply
// carries none.
func estimateTokens(prompt, completion string) int {
	return len(strings.Fields(prompt)) + len(strings.Fields(completion))
}
