package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration snapshot. It is loaded once at
// startup and passed by reference; nothing mutates it afterwards.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Store     StoreConfig       `mapstructure:"store"`
	Telemetry TelemetryConfig   `mapstructure:"telemetry"`
	Providers []ProviderProfile `mapstructure:"providers"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Env            string        `mapstructure:"env"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type StoreConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// ProviderProfile is the per-identifier configuration the registry hands to
// provider clients. Read-only after load.
type ProviderProfile struct {
	ID            string  `mapstructure:"id"`
	Type          string  `mapstructure:"type"`
	APIKey        string  `mapstructure:"api_key"`
	BaseURL       string  `mapstructure:"base_url"`
	DefaultModel  string  `mapstructure:"default_model"`
	FallbackModel string  `mapstructure:"fallback_model"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	SystemPrompt  string  `mapstructure:"system_prompt"`
	Enabled       bool    `mapstructure:"enabled"`
}

const genericSystemPrompt = "You are a helpful AI assistant that provides accurate and informative responses."

// defaultProfiles mirrors the gateway's stock provider set. A providers
// section in config.yaml replaces it wholesale.
func defaultProfiles() []ProviderProfile {
	return []ProviderProfile{
		{
			ID: "gpt", Type: "openai", APIKey: "ENV:OPENAI_API_KEY",
			DefaultModel: "gpt-4o", FallbackModel: "gpt-4o-mini",
			Temperature: 0.3, MaxTokens: 8192, Enabled: true,
			SystemPrompt: "You are ChatGPT, a helpful AI assistant that provides accurate and informative responses.",
		},
		{
			ID: "claude", Type: "anthropic", APIKey: "ENV:ANTHROPIC_API_KEY",
			DefaultModel: "claude-3-5-sonnet-latest", FallbackModel: "claude-3-5-haiku-latest",
			Temperature: 0.3, MaxTokens: 8192, Enabled: true,
			SystemPrompt: "You are Claude, a highly capable AI assistant created by Anthropic, focused on providing accurate, nuanced, and helpful responses.",
		},
		{
			ID: "gemini", Type: "gemini", APIKey: "ENV:GEMINI_API_KEY",
			DefaultModel: "gemini-2.0-flash", FallbackModel: "gemini-1.5-pro",
			Temperature: 0.3, MaxTokens: 8192, Enabled: true,
			SystemPrompt: "You are Gemini, a helpful and capable AI assistant created by Google, focused on providing clear and accurate responses.",
		},
		{
			ID: "groq", Type: "groq", APIKey: "ENV:GROQ_API_KEY",
			DefaultModel: "llama-3.3-70b-versatile", FallbackModel: "mixtral-8x7b-32768",
			Temperature: 0.3, MaxTokens: 8192, Enabled: true,
			SystemPrompt: "You are a helpful AI assistant powered by Groq, focused on providing fast and accurate responses.",
		},
	}
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", "3050")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("rate_limit.requests", 500)
	v.SetDefault("rate_limit.window", "1h")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.dsn", "file:convoke.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "convoke")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultProfiles()
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.SystemPrompt == "" {
			p.SystemPrompt = genericSystemPrompt
		}
		if strings.HasPrefix(p.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.APIKey, "ENV:")
			val := os.Getenv(envVar)
			if val == "" {
				val = v.GetString(envVar)
			}
			p.APIKey = val
		}
	}

	return &cfg, nil
}

// Profile returns the profile for the given provider identifier.
func (c *Config) Profile(id string) (ProviderProfile, bool) {
	for _, p := range c.Providers {
		if p.ID == id && p.Enabled {
			return p, true
		}
	}
	return ProviderProfile{}, false
}
