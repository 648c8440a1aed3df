package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton for packages that cannot take injected config
var globalConfig *Config

// Config holds all environment backed configuration for chat-api.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Upstream completion provider
	AIBaseURL   string        `env:"AI_BASE_URL" envDefault:"https://api.deepseek.com"`
	AIAPIKey    string        `env:"AI_API_KEY,notEmpty"`
	AIModel     string        `env:"AI_MODEL" envDefault:"deepseek-chat"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Prompt and quota limits
	MaxPromptTokens     int   `env:"MAX_PROMPT_TOKENS" envDefault:"8000"`
	MaxCompletionTokens int   `env:"MAX_COMPLETION_TOKENS" envDefault:"2000"`
	MaxHistoryMessages  int   `env:"MAX_HISTORY_MESSAGES" envDefault:"6"`
	UserTokenLimit      int64 `env:"USER_TOKEN_LIMIT" envDefault:"100000"`

	// Speech synthesis
	TTSEndpoint       string        `env:"TTS_ENDPOINT" envDefault:"wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"`
	TTSTrustedToken   string        `env:"TTS_TRUSTED_TOKEN"`
	TTSCacheSize      int           `env:"TTS_CACHE_SIZE" envDefault:"100"`
	TTSCacheTTL       time.Duration `env:"TTS_CACHE_TTL" envDefault:"1h"`
	TTSSynthesisLimit time.Duration `env:"TTS_SYNTHESIS_TIMEOUT" envDefault:"5s"`

	// Conversation lifecycle
	DeleteGracePeriod time.Duration `env:"DELETE_GRACE_PERIOD" envDefault:"15s"`

	// Logging
	ServiceName string `env:"SERVICE_NAME" envDefault:"chat-api"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.AIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid AI_BASE_URL: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.TTSEndpoint); err != nil {
		return nil, fmt.Errorf("invalid TTS_ENDPOINT: %w", err)
	}

	if cfg.MaxPromptTokens <= 0 {
		return nil, fmt.Errorf("MAX_PROMPT_TOKENS must be positive, got %d", cfg.MaxPromptTokens)
	}
	if cfg.MaxHistoryMessages <= 0 {
		return nil, fmt.Errorf("MAX_HISTORY_MESSAGES must be positive, got %d", cfg.MaxHistoryMessages)
	}
	if cfg.TTSCacheSize <= 0 {
		return nil, fmt.Errorf("TTS_CACHE_SIZE must be positive, got %d", cfg.TTSCacheSize)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

// GetGlobal returns the global config instance.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

// IsProduction reports whether the service runs with production error
// redaction enabled. Stream error frames carry generic localized messages
// instead of raw upstream errors when this is set.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
