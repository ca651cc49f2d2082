package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LLM_PROVIDER", "OPENAI_API_KEY", "VITE_OPENAI_API_KEY", "OPENAI_BASE_URL",
		"OPENAI_MODEL", "OPENAI_MAX_TOKENS", "LOG_LEVEL", "LOG_DEVELOPMENT",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 150, cfg.AI.MaxTokens)
	assert.Empty(t, cfg.AI.APIKey)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.AI.Ark.Enabled())
}

func TestLoadAPIKeyFallsBackToViteName(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_OPENAI_API_KEY", "sk-vite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-vite", cfg.AI.APIKey)

	t.Setenv("OPENAI_API_KEY", "sk-primary")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-primary", cfg.AI.APIKey)
}

func TestLoadServerAddrForms(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	t.Setenv("PORT", "90 00")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"OPENAI_MAX_TOKENS": "many",
		"LLM_PROVIDER":      "claude",
		"LOG_DEVELOPMENT":   "sometimes",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestLoadRejectsNonPositiveMaxTokens(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_MAX_TOKENS", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "OPENAI_MAX_TOKENS")
}

func TestArkEnabled(t *testing.T) {
	assert.True(t, ArkConfig{Model: "m", APIKey: "k"}.Enabled())
	assert.True(t, ArkConfig{Model: "m", AccessKey: "a", SecretKey: "s"}.Enabled())
	assert.False(t, ArkConfig{APIKey: "k"}.Enabled())
	assert.False(t, ArkConfig{Model: "m", AccessKey: "a"}.Enabled())
}
