package bootstrap

import (
	"log"

	"ai-chat-gateway/internal/config"
	"ai-chat-gateway/internal/controller"
	"ai-chat-gateway/internal/pkg/logger"
	"ai-chat-gateway/internal/repository/memory"
	"ai-chat-gateway/internal/service"
	"ai-chat-gateway/pkg/ingest"
	"ai-chat-gateway/pkg/llm/factory"
	"ai-chat-gateway/pkg/policy"
	"ai-chat-gateway/pkg/respcache"
	"ai-chat-gateway/pkg/usage"

	"github.com/go-playground/validator/v10"
)

// Container wires the whole dependency graph once at startup.
type Container struct {
	OAuthController controller.IOAuthController
	ChatController  controller.IChatController

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Stores
	sessionRepo := memory.NewSessionRepository(cfg.App.SessionTTL)
	stateRepo := memory.NewStateRepository(cfg.OAuth.StateTTL)

	// Policy and metering
	accessPolicy := policy.NewEvaluator(cfg.Policy.AllowedEmails, cfg.Policy.AllowedDomain)
	tracker := usage.NewTracker(cfg.Demo.RequestLimit, cfg.Demo.TokenLimit, sysLogger)

	// Upstream provider
	llmProvider, err := factory.NewProvider(
		cfg.Upstream.Provider,
		cfg.Upstream.BaseURL,
		cfg.Upstream.APIKey,
		cfg.Upstream.ChatTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM provider: %s (%s)", cfg.Upstream.Provider, cfg.Upstream.BaseURL)

	// Shared response cache and file pipeline
	responseCache := respcache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	filePipeline := ingest.NewPipeline(cfg.Ingest.MaxChars, sysLogger)

	// Services
	oauthService := service.NewOAuthService(cfg, stateRepo, sessionRepo, accessPolicy, sysLogger)
	chatService := service.NewChatService(cfg, sessionRepo, tracker, responseCache, filePipeline, llmProvider, sysLogger)

	validate := validator.New()

	return &Container{
		OAuthController: controller.NewOAuthController(oauthService, cfg, sysLogger),
		ChatController:  controller.NewChatController(chatService, validate, sysLogger),
		Logger:          sysLogger,
	}
}
