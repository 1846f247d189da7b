package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 100, cfg.Server.RateLimitRequests)
	require.Equal(t, time.Minute, cfg.Server.RateLimitWindow)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "snipurl:", cfg.Cache.Redis.KeyPrefix)

	require.Equal(t, time.Hour, cfg.Auth.JWT.AccessTTL)
	require.Equal(t, 168*time.Hour, cfg.Auth.JWT.RefreshTTL)
	require.Equal(t, 12, cfg.Auth.HashCost)

	require.Equal(t, 5*time.Minute, cfg.Email.Verification.CodeTTL)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "@every 10m", cfg.Maintenance.Schedule)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9100
  log_level: debug
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 6543
    database: snipurl
    username: app
    password: secret
auth:
  jwt:
    access_secret: a-secret
    refresh_secret: r-secret
    access_token_ttl: 30m
email:
  verification:
    code_ttl: 2m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.AccessTTL)
	require.Equal(t, 2*time.Minute, cfg.Email.Verification.CodeTTL)

	dbCfg := cfg.DatabaseSettings()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 6543, dbCfg.Port)
	require.Equal(t, "snipurl", dbCfg.Name)
	require.Equal(t, "app", dbCfg.User)
	require.Equal(t, "secret", dbCfg.Password)

	tokenCfg := cfg.TokenSettings()
	require.Equal(t, "a-secret", tokenCfg.AccessSecret)
	require.Equal(t, "r-secret", tokenCfg.RefreshSecret)
	require.Equal(t, 30*time.Minute, tokenCfg.AccessTokenTTL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SNIPURL_SERVER_PORT", "9999")
	t.Setenv("SNIPURL_AUTH_JWT_ACCESS_SECRET", "env-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.AccessSecret)
}
