package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "ARTICLE_EVALUATOR_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	databaseDSNEnv     = "DATABASE_DSN"
	databaseDriverEnv  = "DATABASE_DRIVER"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	anthropicModelEnv  = "ANTHROPIC_MODEL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Anthropic     AnthropicConfig    `yaml:"anthropic"`
	Evaluation    EvaluationConfig   `yaml:"evaluation"`
	Retry         RetryConfig        `yaml:"retry"`
	RateLimit     RateLimitConfig    `yaml:"rateLimit"`
	Database      DatabaseConfig     `yaml:"database"`
	Server        ServerConfig       `yaml:"server"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AnthropicConfig defines how to contact the Messages API.
// APIKey is only a fallback; callers pass the credential per run.
type AnthropicConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Version        string  `yaml:"version"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"apiKey"`
	MaxTokens      int     `yaml:"maxTokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// Timeout returns the HTTP client timeout; zero keeps the transport default.
func (a AnthropicConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// EvaluationConfig tunes the per-record fan-out.
type EvaluationConfig struct {
	Course         string `yaml:"course"`
	MaxConcurrency int    `yaml:"maxConcurrency"`
}

// RetryConfig enables bounded retries at the dispatch boundary. Zero retries is the default.
type RetryConfig struct {
	MaxRetries        int `yaml:"maxRetries"`
	InitialIntervalMs int `yaml:"initialIntervalMs"`
	MaxIntervalMs     int `yaml:"maxIntervalMs"`
}

// InitialInterval converts the configured milliseconds to a duration.
func (r RetryConfig) InitialInterval() time.Duration {
	return time.Duration(r.InitialIntervalMs) * time.Millisecond
}

// MaxInterval converts the configured milliseconds to a duration.
func (r RetryConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxIntervalMs) * time.Millisecond
}

// RateLimitConfig throttles outgoing requests; zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// DatabaseConfig describes the durable result sink. An empty DSN disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig describes the HTTP control surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if loaded, err := LoadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = loaded
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFile merges the YAML document at path over the defaults.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse merges a YAML document over the defaults.
func Parse(raw []byte) (Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, err
	}
	return mergeConfig(defaultConfig(), fileCfg), nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(anthropicAPIKeyEnv); v != "" {
		c.Anthropic.APIKey = v
	}
	if v := os.Getenv(anthropicModelEnv); v != "" {
		c.Anthropic.Model = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Anthropic.Endpoint != "" {
		base.Anthropic.Endpoint = override.Anthropic.Endpoint
	}
	if override.Anthropic.Version != "" {
		base.Anthropic.Version = override.Anthropic.Version
	}
	if override.Anthropic.Model != "" {
		base.Anthropic.Model = override.Anthropic.Model
	}
	if override.Anthropic.APIKey != "" {
		base.Anthropic.APIKey = override.Anthropic.APIKey
	}
	if override.Anthropic.MaxTokens > 0 {
		base.Anthropic.MaxTokens = override.Anthropic.MaxTokens
	}
	if override.Anthropic.Temperature > 0 {
		base.Anthropic.Temperature = override.Anthropic.Temperature
	}
	if override.Anthropic.TimeoutSeconds > 0 {
		base.Anthropic.TimeoutSeconds = override.Anthropic.TimeoutSeconds
	}

	if override.Evaluation.Course != "" {
		base.Evaluation.Course = override.Evaluation.Course
	}
	if override.Evaluation.MaxConcurrency > 0 {
		base.Evaluation.MaxConcurrency = override.Evaluation.MaxConcurrency
	}

	if override.Retry.MaxRetries > 0 {
		base.Retry.MaxRetries = override.Retry.MaxRetries
	}
	if override.Retry.InitialIntervalMs > 0 {
		base.Retry.InitialIntervalMs = override.Retry.InitialIntervalMs
	}
	if override.Retry.MaxIntervalMs > 0 {
		base.Retry.MaxIntervalMs = override.Retry.MaxIntervalMs
	}

	if override.RateLimit.RequestsPerSecond > 0 {
		base.RateLimit.RequestsPerSecond = override.RateLimit.RequestsPerSecond
	}
	if override.RateLimit.Burst > 0 {
		base.RateLimit.Burst = override.RateLimit.Burst
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if base.Database.Driver == "" {
		base.Database.Driver = "postgres"
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Anthropic: AnthropicConfig{
			Endpoint:    "https://api.anthropic.com/v1/messages",
			Version:     "2023-06-01",
			Model:       "claude-3-5-sonnet-20240620",
			MaxTokens:   8192,
			Temperature: 0.6,
		},
		Evaluation: EvaluationConfig{Course: "World History", MaxConcurrency: 7},
		Retry:      RetryConfig{MaxRetries: 0, InitialIntervalMs: 500, MaxIntervalMs: 10000},
		RateLimit:  RateLimitConfig{RequestsPerSecond: 0, Burst: 1},
		Database:   DatabaseConfig{Driver: "postgres", DSN: ""},
		Server:     ServerConfig{Addr: ":8080"},
	}
}
