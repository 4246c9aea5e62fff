package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "chatflow.yaml", `
log_level: debug
log_format: json
server:
  port: 9090
templates:
  dir: ./flows
  cache_ttl: 5m
sessions:
  backend: redis
  redis:
    addr: redis:6379
    ttl: 24h
providers:
  timeout: 10s
  openai:
    model: gpt-4o
actions:
  webhook_url: https://crm.example/actions
  headers:
    X-Tenant: acme
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "./flows", cfg.Templates.Dir)
	assert.Equal(t, 5*time.Minute, cfg.Templates.CacheTTL)
	assert.Equal(t, BackendRedis, cfg.Sessions.Backend)
	assert.Equal(t, "redis:6379", cfg.Sessions.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Sessions.Redis.TTL)
	assert.Equal(t, 10*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 1, cfg.Providers.MaxRetries, "default kept")
	assert.Equal(t, "gpt-4o", cfg.Providers.OpenAI.Model)
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, cfg.Actions.Headers)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "chatflow.json", `{"server": {"port": 7000}, "sessions": {"backend": "file"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Sessions.Backend)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeFile(t, "chatflow.yaml", `
log_level: chatty
log_format: xml
sessions:
  backend: mongo
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "mongo")
	assert.Contains(t, err.Error(), "log_format")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CHATFLOW_PORT":             "3000",
		"CHATFLOW_SESSIONS_BACKEND": "sqlite",
		"CHATFLOW_SESSIONS_SQLITE":  "file:sessions.db",
		"CHATFLOW_SESSION_TTL":      "2h",
		"OPENAI_API_KEY":            "sk-plain",
		"CHATFLOW_MINIMAX_API_KEY":  "mm-prefixed",
		"MINIMAX_API_KEY":           "mm-plain",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Sessions.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.Redis.TTL)
	assert.Equal(t, "sk-plain", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "mm-prefixed", cfg.Providers.Minimax.APIKey, "prefixed variable wins")
}

func TestApplyEnv_Malformed(t *testing.T) {
	lookup := func(k string) (string, bool) {
		switch k {
		case "CHATFLOW_PORT":
			return "eighty", true
		case "CHATFLOW_PROVIDER_TIMEOUT":
			return "soon", true
		}
		return "", false
	}

	err := Default().applyEnv(lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHATFLOW_PORT")
	assert.Contains(t, err.Error(), "CHATFLOW_PROVIDER_TIMEOUT")
}
