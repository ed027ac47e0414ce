package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	OAuth    OAuthConfig
	Policy   PolicyConfig
	Demo     DemoConfig
	Cache    CacheConfig
	Upstream UpstreamConfig
	Ingest   IngestConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	JWTSecret          string
	SessionTTL         time.Duration
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	StateTTL           time.Duration
	ExchangeTimeout    time.Duration
}

type PolicyConfig struct {
	AllowedEmails []string
	AllowedDomain string
	AdminEmails   []string
}

type DemoConfig struct {
	Enabled      bool
	RequestLimit int
	TokenLimit   int
}

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type UpstreamConfig struct {
	Provider     string
	BaseURL      string
	APIKey       string
	ChatTimeout  time.Duration
	ModelTimeout time.Duration
	ImageTimeout time.Duration
}

type IngestConfig struct {
	MaxChars int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
			StateTTL:           getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),
			ExchangeTimeout:    getEnvAsDuration("OAUTH_EXCHANGE_TIMEOUT", 10*time.Second),
		},
		Policy: PolicyConfig{
			AllowedEmails: getEnvAsList("ALLOWED_EMAILS"),
			AllowedDomain: getEnv("ALLOWED_DOMAIN", ""),
			AdminEmails:   getEnvAsList("ADMIN_EMAILS"),
		},
		Demo: DemoConfig{
			Enabled:      getEnvAsBool("DEMO_MODE", false),
			RequestLimit: getEnvAsInt("DEMO_REQUEST_LIMIT", 2),
			TokenLimit:   getEnvAsInt("DEMO_TOKEN_LIMIT", 100),
		},
		Cache: CacheConfig{
			TTL:        getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			MaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 100),
		},
		Upstream: UpstreamConfig{
			Provider:     getEnv("LLM_PROVIDER", "litellm"),
			BaseURL:      getEnv("LITELLM_API_BASE", "http://localhost:4000"),
			APIKey:       getEnv("LITELLM_API_KEY", ""),
			ChatTimeout:  getEnvAsDuration("UPSTREAM_TIMEOUT", 15*time.Second),
			ModelTimeout: getEnvAsDuration("MODELS_TIMEOUT", 10*time.Second),
			ImageTimeout: getEnvAsDuration("IMAGE_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			MaxChars: getEnvAsInt("FILE_TEXT_LIMIT", 4000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated env value, dropping empty items.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
