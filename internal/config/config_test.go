package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("s", MinJWTSecretLength)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WALLETAUTH_AUTH_JWT_SECRET", secret)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.NonceTTL)
	assert.Equal(t, "memory", cfg.Storage.NonceBackend)
	assert.Equal(t, "memory", cfg.Storage.UserBackend)
	assert.Equal(t, "none", cfg.Events.Backend)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_FailsWithoutSecret(t *testing.T) {
	t.Setenv("WALLETAUTH_AUTH_JWT_SECRET", "")
	_, err := Load("")
	assert.ErrorContains(t, err, "auth.jwt_secret is required")

	t.Setenv("WALLETAUTH_AUTH_JWT_SECRET", "short")
	_, err = Load("")
	assert.ErrorContains(t, err, "at least 32 bytes")
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":8080"
  trusted_proxies:
    - 10.0.0.0/8
auth:
  jwt_secret: "`+secret+`"
  session_ttl: 2h
storage:
  nonce_backend: redis
  user_backend: sqlite
  dsn: walletauth.db
cors:
  allowed_origins:
    - https://app.example.com
`), 0o600))

	t.Setenv("WALLETAUTH_SERVER_ADDRESS", ":7070")
	t.Setenv("WALLETAUTH_EVENTS_BACKEND", "redis")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "sqlite", cfg.Storage.UserBackend)
	assert.Equal(t, "walletauth.db", cfg.Storage.DSN)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.UsesRedis())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Auth:    AuthConfig{JWTSecret: secret, SessionTTL: time.Hour, NonceTTL: time.Minute},
			Storage: StorageConfig{NonceBackend: "memory", UserBackend: "memory"},
			Events:  EventsConfig{Backend: "none"},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Storage.UserBackend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "storage.dsn is required")

	cfg = valid()
	cfg.Storage.NonceBackend = "etcd"
	assert.ErrorContains(t, cfg.Validate(), "unknown storage.nonce_backend")

	cfg = valid()
	cfg.Events.Backend = "kafka"
	cfg.Auth.NonceTTL = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "unknown events.backend")
	assert.ErrorContains(t, err, "auth.nonce_ttl must be positive")

	cfg = valid()
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.10", "proxy.internal"}
	err = cfg.Validate()
	assert.ErrorContains(t, err, `"proxy.internal" is not an IP or CIDR`)
	assert.NotContains(t, err.Error(), "10.0.0.0/8")

	cfg = valid()
	cfg.RateLimit = RateLimitConfig{RPS: 5, Burst: 0}
	assert.ErrorContains(t, cfg.Validate(), "ratelimit.burst must be positive")

	cfg = valid()
	cfg.RateLimit = RateLimitConfig{RPS: -1}
	assert.ErrorContains(t, cfg.Validate(), "ratelimit.rps must not be negative")

	cfg = valid()
	cfg.RateLimit = RateLimitConfig{}
	assert.NoError(t, cfg.Validate())
}
