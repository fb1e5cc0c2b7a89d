// Package config loads the process configuration from the environment.
//
// Every setting has a TIKUHUB_-prefixed variable and a sane default; the
// only required value is the database DSN.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig contains connection pool settings. The pool follows the
// classic base-plus-overflow sizing: 10 steady connections, bursting to 30.
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// EmbeddingConfig points at the OpenAI-compatible embedding service. An
// empty BaseURL disables semantic lookup; the cache then runs in
// exact-match-only mode.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int
}

// EngineConfig contains fan-out settings.
type EngineConfig struct {
	MaxConcurrent int64
	HTTPTimeout   time.Duration
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Engine    EngineConfig
	Logging   LoggingConfig
}

// Load reads configuration from the environment and applies defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envString("TIKUHUB_HOST", "0.0.0.0"),
			Port: envInt("TIKUHUB_PORT", 8080),
		},
		Database: DatabaseConfig{
			DSN:             envString("TIKUHUB_DATABASE_DSN", ""),
			MaxConns:        int32(envInt("TIKUHUB_DATABASE_MAX_CONNS", 30)),
			MinConns:        int32(envInt("TIKUHUB_DATABASE_MIN_CONNS", 10)),
			ConnMaxLifetime: envDuration("TIKUHUB_DATABASE_CONN_LIFETIME", time.Hour),
		},
		Embedding: EmbeddingConfig{
			BaseURL: envString("TIKUHUB_EMBEDDING_BASE_URL", ""),
			APIKey:  envString("TIKUHUB_EMBEDDING_API_KEY", ""),
			Model:   envString("TIKUHUB_EMBEDDING_MODEL", "BAAI/bge-m3"),
			Dim:     envInt("TIKUHUB_EMBEDDING_DIM", 1024),
		},
		Engine: EngineConfig{
			MaxConcurrent: int64(envInt("TIKUHUB_MAX_CONCURRENT", 20)),
			HTTPTimeout:   envDuration("TIKUHUB_HTTP_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  envString("TIKUHUB_LOG_LEVEL", "INFO"),
			Format: envString("TIKUHUB_LOG_FORMAT", "json"),
		},
	}
}

// Validate checks and normalizes the configuration.
func (cfg *Config) Validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server port must be 1..65535")
	}
	if cfg.Database.DSN == "" {
		return errors.New("TIKUHUB_DATABASE_DSN is required")
	}
	if cfg.Embedding.BaseURL != "" && cfg.Embedding.Dim <= 0 {
		return errors.New("embedding dimension must be positive")
	}
	if cfg.Engine.MaxConcurrent <= 0 {
		cfg.Engine.MaxConcurrent = 20
	}
	if cfg.Engine.HTTPTimeout <= 0 {
		cfg.Engine.HTTPTimeout = 30 * time.Second
	}
	cfg.Logging.Level = strings.ToUpper(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
