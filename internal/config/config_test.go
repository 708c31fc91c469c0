package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BACKEND_MODE", "BACKEND_URL", "BACKEND_ENDPOINT", "BACKEND_API_KEY",
		"BACKEND_RATE_LIMIT", "BACKEND_RATE_BURST", "COPILOT_FORWARD_URL", "HOST_URL",
		"LOG_LEVEL", "ARK_API_KEY", "Model",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendModeRemote, cfg.Backend.Mode)
	assert.Equal(t, "http://localhost:8000/chat/invoke", cfg.Backend.InvokeURL())
	assert.Zero(t, cfg.Backend.RateLimit)
	assert.Equal(t, 1, cfg.Backend.RateBurst)
	assert.False(t, cfg.Copilot.Enabled())
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadBackendOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_URL", "https://bot.example.com/")
	t.Setenv("BACKEND_ENDPOINT", "/sales/")
	t.Setenv("BACKEND_API_KEY", " secret ")
	t.Setenv("BACKEND_RATE_LIMIT", "2.5")
	t.Setenv("BACKEND_RATE_BURST", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.com/sales/invoke", cfg.Backend.InvokeURL())
	assert.Equal(t, "secret", cfg.Backend.APIKey)
	assert.Equal(t, 2.5, cfg.Backend.RateLimit)
	assert.Equal(t, 4, cfg.Backend.RateBurst)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad mode":        {"BACKEND_MODE", "carrier-pigeon"},
		"bad url scheme":  {"BACKEND_URL", "ftp://bot"},
		"bad rate":        {"BACKEND_RATE_LIMIT", "fast"},
		"bad port":        {"PORT", "80 80"},
		"bad forward url": {"COPILOT_FORWARD_URL", "not a url"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPortWithHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}
