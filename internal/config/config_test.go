package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3050", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 500, cfg.RateLimit.Requests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.False(t, cfg.Redis.Enabled)

	// The stock provider set is installed when none is configured.
	require.Len(t, cfg.Providers, 4)
	gpt, ok := cfg.Profile("gpt")
	require.True(t, ok)
	assert.Equal(t, "openai", gpt.Type)
	assert.Equal(t, "gpt-4o", gpt.DefaultModel)
	assert.Equal(t, "gpt-4o-mini", gpt.FallbackModel)
	assert.Equal(t, 0.3, gpt.Temperature)
	assert.Equal(t, 8192, gpt.MaxTokens)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
}

func TestLoad_APIKeyResolution(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-12345")

	cfg, err := Load()
	require.NoError(t, err)

	gpt, ok := cfg.Profile("gpt")
	require.True(t, ok)
	assert.Equal(t, "sk-test-12345", gpt.APIKey)
}

func TestProfile_UnknownOrDisabled(t *testing.T) {
	cfg := &Config{Providers: []ProviderProfile{
		{ID: "gpt", Enabled: true},
		{ID: "claude", Enabled: false},
	}}

	_, ok := cfg.Profile("gpt")
	assert.True(t, ok)
	_, ok = cfg.Profile("claude")
	assert.False(t, ok)
	_, ok = cfg.Profile("mistral")
	assert.False(t, ok)
}
