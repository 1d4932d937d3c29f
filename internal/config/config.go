// Package config loads the daemon configuration from an optional YAML file
// with MULTIPLAY_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage types
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the daemon configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Status  StatusConfig  `yaml:"status"`

	LogCapacity  int           `yaml:"log_capacity"`
	AdminTimeout time.Duration `yaml:"admin_timeout"`
	LogLevel     string        `yaml:"log_level"`
}

// ServerConfig configures the local HTTP API
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// TokenHash is a bcrypt hash of the bearer token clients must send; empty disables auth
	TokenHash string `yaml:"token_hash"`
}

// BackendConfig configures the privileged agent connection
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Token   string        `yaml:"token"`
}

// StorageConfig selects and configures persistence
type StorageConfig struct {
	Type           string `yaml:"type"`
	RedisURL       string `yaml:"redis_url"`
	RedisNamespace string `yaml:"redis_namespace"`
	SQLitePath     string `yaml:"sqlite_path"`
}

// StatusConfig configures the status poller
type StatusConfig struct {
	Interval       time.Duration `yaml:"interval"`
	HiddenInterval time.Duration `yaml:"hidden_interval"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 47811,
		},
		Backend: BackendConfig{
			URL:     "http://127.0.0.1:47810",
			Timeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Type:           StorageSQLite,
			RedisNamespace: "multiplay",
			SQLitePath:     "multiplay.db",
		},
		Status: StatusConfig{
			Interval:       2 * time.Second,
			HiddenInterval: 10 * time.Second,
		},
		LogCapacity:  200,
		AdminTimeout: 15 * time.Second,
		LogLevel:     "info",
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment. A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("MULTIPLAY_HOST", &c.Server.Host)
	setString("MULTIPLAY_TOKEN_HASH", &c.Server.TokenHash)
	setString("MULTIPLAY_BACKEND_URL", &c.Backend.URL)
	setString("MULTIPLAY_BACKEND_TOKEN", &c.Backend.Token)
	setString("MULTIPLAY_STORAGE", &c.Storage.Type)
	setString("MULTIPLAY_REDIS_URL", &c.Storage.RedisURL)
	setString("MULTIPLAY_SQLITE_PATH", &c.Storage.SQLitePath)
	setString("MULTIPLAY_LOG_LEVEL", &c.LogLevel)

	if v := getenv("MULTIPLAY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MULTIPLAY_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("MULTIPLAY_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MULTIPLAY_POLL_INTERVAL %q: %w", v, err)
		}
		c.Status.Interval = d
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	switch c.Storage.Type {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required when storage.type is redis")
		}
	default:
		return fmt.Errorf("invalid storage.type %q: must be memory, redis or sqlite", c.Storage.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Status.Interval <= 0 || c.Status.HiddenInterval < c.Status.Interval {
		return errors.New("status intervals must be positive and hidden_interval must not be shorter than interval")
	}
	if c.LogCapacity <= 0 {
		return errors.New("log_capacity must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel (debug, info, warn, error)
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
