package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Session   SessionConfig   `toml:"session"`
	Library   LibraryConfig   `toml:"library"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Log       LogConfig       `toml:"log"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                     string `toml:"host"`
	Port                     int    `toml:"port"`
	PublicURL                string `toml:"public_url"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SessionConfig selects the session backend and the handshake session lifetime.
type SessionConfig struct {
	Backend    string `toml:"backend"`
	TTLSeconds int64  `toml:"ttl_seconds"`
	RedisURL   string `toml:"redis_url"`
}

// LibraryConfig describes where the music collection lives on disk.
type LibraryConfig struct {
	MusicDir string `toml:"music_dir"`
}

// RateLimitConfig limits protocol requests per client address.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	// TrustForwarded keys clients on X-Forwarded-For. Enable only behind a proxy that sets it.
	TrustForwarded bool `toml:"trust_forwarded"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadHeaderTimeout returns the configured header timeout as a [time.Duration].
func (c ServerConfig) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.ReadHeaderTimeoutSeconds) * time.Second
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	switch c.Session.Backend {
	case "sqlite", "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("%w: redis backend requires session.redis_url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}
	if c.Session.TTLSeconds <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
