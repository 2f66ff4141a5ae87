package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = 4096
	defaultRateLimitBurst  = 10
	defaultRefillInterval  = time.Second
	defaultSendBufferSize  = 256
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay settings. Every field is read from the environment.
type Config struct {
	Port                    string        `env:"SERVER_PORT,default=:8080"`
	AllowedOrigins          string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize          int           `env:"MAX_MESSAGE_SIZE,default=4096"`
	RateLimitBurst          int           `env:"RATE_LIMIT_BURST,default=10"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	SendBufferSize          int           `env:"SEND_BUFFER_SIZE,default=256"`
	ShutdownTimeout         time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel                string        `env:"LOG_LEVEL,default=INFO"`
}

// NewConfig returns the configuration with every default applied.
func NewConfig() Config {
	var cfg Config
	if err := env.Unmarshal(env.EnvSet{}, &cfg); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return cfg.sanitize()
}

// NewConfigFromEnv reads the configuration from environment variables,
// falling back to defaults for anything unset or out of range.
func NewConfigFromEnv() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg.sanitize(), nil
}

// Origins splits AllowedOrigins on commas.
func (c Config) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitRefillInterval}
}

func (c Config) sanitize() Config {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultRateLimitBurst
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = defaultRefillInterval
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	return c
}
