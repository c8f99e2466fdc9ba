package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("API_BASE_URL", "http://127.0.0.1:8000/")
	for _, key := range []string{"TOKEN_STORE", "TOKEN_FILE", "TOKEN_KEY", "REDIS_URL", "POLL_INTERVAL", "HTTP_TIMEOUT", "API_RATE_LIMIT", "API_BURST", "GATEWAY_PORT", "APP_ENV"} {
		unsetEnv(t, key)
	}
}

// unsetEnv removes key for the duration of the test so defaults apply.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000/", cfg.APIBaseURL)
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, TokenStoreFile, cfg.TokenStore)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5.0, cfg.APIRateLimit)
	assert.Equal(t, 10, cfg.APIBurst)
	assert.Equal(t, "8090", cfg.GatewayPort)
	assert.NotEmpty(t, cfg.TokenFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"missing API_BASE_URL", "API_BASE_URL", "", "API_BASE_URL is required"},
		{"no trailing slash", "API_BASE_URL", "http://127.0.0.1:8000", "API_BASE_URL must end with a slash"},
		{"unknown store", "TOKEN_STORE", "keychain", "TOKEN_STORE must be one of"},
		{"redis without url", "TOKEN_STORE", "redis", "REDIS_URL is required"},
		{"bad key hex", "TOKEN_KEY", "zz", "TOKEN_KEY must be valid hex"},
		{"short key", "TOKEN_KEY", "abcd", "TOKEN_KEY must be exactly 64 hex characters"},
		{"poll too fast", "POLL_INTERVAL", "100ms", "POLL_INTERVAL must be at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RedisStore(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TokenStoreRedis, cfg.TokenStore)
	assert.Equal(t, "resumeinsider:token", cfg.RedisKey)
}

func TestLoad_ValidTokenKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.TokenKey, 64)
}
