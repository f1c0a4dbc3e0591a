// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the presence service.
package server

import (
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the server configuration settings including security controls.
// Field tags name the environment variables read by NewConfigFromEnv.
type Config struct {
	Port             string   `envconfig:"SERVER_PORT"`
	AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
	FrontendURL      string   `envconfig:"FRONTEND_URL"`
	AdminFrontendURL string   `envconfig:"ADMIN_FRONTEND_URL"`
	MaxMessageSize   int64    `envconfig:"MAX_MESSAGE_SIZE"`
	SendBufferSize   int      `envconfig:"SEND_BUFFER_SIZE"`

	RateLimitBurst          int           `envconfig:"RATE_LIMIT_BURST"`
	RateLimitRefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL"`

	LogLevel        string        `envconfig:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`

	// RedisAddr enables the status mirror when set.
	RedisAddr       string `envconfig:"REDIS_ADDR"`
	RedisPassword   string `envconfig:"REDIS_PASSWORD"`
	RedisDB         int    `envconfig:"REDIS_DB"`
	StatusQueueSize int    `envconfig:"STATUS_QUEUE_SIZE"`
}

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
	defaultRateLimitBurst  = 10
	defaultRefillInterval  = time.Second
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 10 * time.Second
	defaultStatusQueueSize = 1024
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
		},
		MaxMessageSize:          defaultMaxMessageSize,
		SendBufferSize:          defaultSendBufferSize,
		RateLimitBurst:          defaultRateLimitBurst,
		RateLimitRefillInterval: defaultRefillInterval,
		LogLevel:                defaultLogLevel,
		ShutdownTimeout:         defaultShutdownTimeout,
		StatusQueueSize:         defaultStatusQueueSize,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config from environment variables, after loading
// any of the given dotenv files that exist. Unset variables keep their
// defaults; values that parse but make no sense are reset to defaults.
func NewConfigFromEnv(dotenvFiles ...string) (*Config, error) {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "load %s", file)
		}
	}

	cfg := defaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}

	sanitized := sanitizeConfig(cfg)
	return &sanitized, nil
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}

	if cfg.RateLimitRefillInterval <= 0 {
		cfg.RateLimitRefillInterval = defaultRefillInterval
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.StatusQueueSize <= 0 {
		cfg.StatusQueueSize = defaultStatusQueueSize
	}

	origins := append([]string(nil), cfg.AllowedOrigins...)
	for _, extra := range []string{cfg.FrontendURL, cfg.AdminFrontendURL} {
		if extra != "" {
			origins = append(origins, extra)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg
}
