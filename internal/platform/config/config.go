package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"

	minPollInterval = 500 * time.Millisecond
)

type Config struct {
	AppEnv     string `env:"APP_ENV" default:"development"`
	APIBaseURL string `env:"API_BASE_URL"`

	TokenStore string `env:"TOKEN_STORE" default:"file"`
	TokenFile  string `env:"TOKEN_FILE"`
	TokenKey   string `env:"TOKEN_KEY"`
	RedisURL   string `env:"REDIS_URL"`
	RedisKey   string `env:"REDIS_TOKEN_KEY" default:"resumeinsider:token"`

	PollInterval time.Duration `env:"POLL_INTERVAL" default:"5s"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" default:"10s"`
	APIRateLimit float64       `env:"API_RATE_LIMIT" default:"5"`
	APIBurst     int           `env:"API_BURST" default:"10"`

	GatewayPort string `env:"GATEWAY_PORT" default:"8090"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if !strings.HasSuffix(cfg.APIBaseURL, "/") {
		return errors.New("API_BASE_URL must end with a slash")
	}

	switch cfg.TokenStore {
	case TokenStoreFile, TokenStoreMemory:
	case TokenStoreRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when TOKEN_STORE=redis")
		}
	default:
		return fmt.Errorf("TOKEN_STORE must be one of file, redis, memory, got %q", cfg.TokenStore)
	}

	if cfg.TokenKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenKey)
		if err != nil {
			return fmt.Errorf("TOKEN_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.PollInterval < minPollInterval {
		return fmt.Errorf("POLL_INTERVAL must be at least %s", minPollInterval)
	}
	if cfg.APIRateLimit <= 0 {
		return errors.New("API_RATE_LIMIT must be positive")
	}
	if cfg.APIBurst < 1 {
		return errors.New("API_BURST must be at least 1")
	}

	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "resumeinsider", "token")
}
