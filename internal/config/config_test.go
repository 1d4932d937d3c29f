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

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "multiplay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Second, cfg.Status.Interval)
	assert.Equal(t, 15*time.Second, cfg.AdminTimeout)
	assert.Equal(t, 200, cfg.LogCapacity)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9000
storage:
  type: redis
  redis_url: redis://localhost:6379/2
status:
  interval: 3s
  hidden_interval: 30s
admin_timeout: 20s
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, 3*time.Second, cfg.Status.Interval)
	assert.Equal(t, 30*time.Second, cfg.Status.HiddenInterval)
	assert.Equal(t, 20*time.Second, cfg.AdminTimeout)
	assert.Equal(t, "http://127.0.0.1:47810", cfg.Backend.URL)
}

func TestLoadMissingOptionalFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoadMissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "server: [")
	_, err := Load(path, true)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MULTIPLAY_PORT":          "1234",
		"MULTIPLAY_STORAGE":       "MEMORY",
		"MULTIPLAY_BACKEND_URL":   "http://agent:1",
		"MULTIPLAY_POLL_INTERVAL": "500ms",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1234, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, "http://agent:1", cfg.Backend.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Status.Interval)
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) string {
		if k == "MULTIPLAY_PORT" {
			return "abc"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown storage":       func(c *Config) { c.Storage.Type = "etcd" },
		"redis without url":     func(c *Config) { c.Storage.Type = StorageRedis },
		"bad port":              func(c *Config) { c.Server.Port = 0 },
		"hidden shorter":        func(c *Config) { c.Status.HiddenInterval = time.Second },
		"non-positive log cap":  func(c *Config) { c.LogCapacity = 0 },
		"non-positive interval": func(c *Config) { c.Status.Interval = 0 },
		"unknown log level":     func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
