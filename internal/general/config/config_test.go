package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
realtime:
  port: 8088
  stale_after_seconds: 120
  reap_every_seconds: 15
  ping_seconds: 10
jwt:
  secret_key: test-secret
client:
  endpoint_url: ws://localhost:8088/ws
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Realtime.Port)
	assert.Equal(t, 2*time.Minute, cfg.Realtime.StaleAfter())
	assert.Equal(t, 15*time.Second, cfg.Realtime.ReapEvery())
	assert.Equal(t, 10*time.Second, cfg.Realtime.PingInterval())
	assert.Equal(t, "test-secret", cfg.JWT.SecretKey)
	assert.Equal(t, "ws://localhost:8088/ws", cfg.Client.EndpointURL)
}

func TestLoadFromFile_DefaultsFillOmittedFields(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret_key: test-secret
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9092, cfg.Realtime.Port)
	assert.Equal(t, 5*time.Minute, cfg.Realtime.StaleAfter())
	assert.Equal(t, time.Minute, cfg.Realtime.ReapEvery())
	assert.Equal(t, 30*time.Second, cfg.Realtime.PingInterval())
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
realtime:
  port: 8088
jwt:
  secret_key: file-secret
client:
  endpoint_url: ws://localhost:8088/ws
`)

	t.Setenv("REALTIME_PORT", "9999")
	t.Setenv("REALTIME_ENDPOINT_URL", "ws://edge:9999/ws")
	t.Setenv("JWT_SECRET_KEY", "env-secret")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Realtime.Port)
	assert.Equal(t, "ws://edge:9999/ws", cfg.Client.EndpointURL)
	assert.Equal(t, "env-secret", cfg.JWT.SecretKey)
}

func TestLoadFromFile_InvalidEnvPortIgnored(t *testing.T) {
	path := writeConfig(t, `
realtime:
  port: 8088
jwt:
  secret_key: test-secret
`)

	t.Setenv("REALTIME_PORT", "not-a-port")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Realtime.Port)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing secret",
			body: "realtime:\n  port: 8088\n",
			want: "jwt.secret_key",
		},
		{
			name: "bad port",
			body: "realtime:\n  port: 70000\njwt:\n  secret_key: s\n",
			want: "realtime.port",
		},
		{
			name: "bad staleness",
			body: "realtime:\n  stale_after_seconds: -1\njwt:\n  secret_key: s\n",
			want: "realtime.stale_after_seconds",
		},
		{
			name: "bad reap period",
			body: "realtime:\n  reap_every_seconds: -5\njwt:\n  secret_key: s\n",
			want: "realtime.reap_every_seconds",
		},
		{
			name: "bad ping period",
			body: "realtime:\n  ping_seconds: 0\njwt:\n  secret_key: s\n",
			want: "realtime.ping_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "realtime: [not a map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
