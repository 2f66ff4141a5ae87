package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	req := require.New(t)

	cfg := NewConfig()

	req.Equal(":8080", cfg.Port)
	req.Equal([]string{"http://localhost:8080"}, cfg.Origins())
	req.Equal(4096, cfg.MaxMessageSize)
	req.Equal(RateLimitConfig{Burst: 10, RefillInterval: time.Second}, cfg.RateLimit())
	req.Equal(256, cfg.SendBufferSize)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
	req.Equal("INFO", cfg.LogLevel)
}

func TestNewConfigFromEnv(t *testing.T) {
	req := require.New(t)

	// Given a fully customised environment
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("SEND_BUFFER_SIZE", "16")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "DEBUG")

	// When the configuration is loaded
	cfg, err := NewConfigFromEnv()

	// Then every value is taken from the environment
	req.NoError(err)
	req.Equal(":9090", cfg.Port)
	req.Equal([]string{"https://a.example.com", "https://b.example.com"}, cfg.Origins())
	req.Equal(1024, cfg.MaxMessageSize)
	req.Equal(RateLimitConfig{Burst: 3, RefillInterval: 500 * time.Millisecond}, cfg.RateLimit())
	req.Equal(16, cfg.SendBufferSize)
	req.Equal(2*time.Second, cfg.ShutdownTimeout)
	req.Equal("DEBUG", cfg.LogLevel)
}

func TestNewConfigFromEnv_Non_Positive_Values_Fall_Back(t *testing.T) {
	req := require.New(t)

	t.Setenv("MAX_MESSAGE_SIZE", "0")
	t.Setenv("RATE_LIMIT_BURST", "-1")
	t.Setenv("SEND_BUFFER_SIZE", "-5")

	cfg, err := NewConfigFromEnv()

	req.NoError(err)
	req.Equal(defaultMaxMessageSize, cfg.MaxMessageSize)
	req.Equal(defaultRateLimitBurst, cfg.RateLimitBurst)
	req.Equal(defaultSendBufferSize, cfg.SendBufferSize)
}

func TestNewConfigFromEnv_Invalid_Value(t *testing.T) {
	req := require.New(t)

	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := NewConfigFromEnv()

	req.Error(err)
}

func TestConfig_Origins(t *testing.T) {
	tests := []struct {
		name    string
		origins string
		want    []string
	}{
		{name: "empty", origins: "", want: nil},
		{name: "blank", origins: "   ", want: nil},
		{name: "single", origins: "http://a", want: []string{"http://a"}},
		{name: "trimmed", origins: " http://a ,http://b", want: []string{"http://a", "http://b"}},
		{name: "wildcard", origins: "*", want: []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{AllowedOrigins: tt.origins}
			require.Equal(t, tt.want, cfg.Origins())
		})
	}
}
