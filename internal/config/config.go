package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

const (
	PayloadFormatJSON      = "json"
	PayloadFormatMultipart = "multipart"
)

// Config is loaded once at start and treated as read-only afterwards.
type Config struct {
	Port string

	WebhookURL     string
	PayloadFormat  string
	WebhookTimeout time.Duration
	TokenDelay     time.Duration

	AllowedOrigin  string
	AllowedHeaders string

	PostgresURL string
	JWTSecret   string
}

func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using process environment")
	}

	timeout, err := getDurationWithDefault("WEBHOOK_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	delay, err := getDurationWithDefault("STREAM_TOKEN_DELAY", 25*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnvWithDefault("PORT", "8080"),
		WebhookURL:     os.Getenv("N8N_WEBHOOK_URL"),
		PayloadFormat:  strings.ToLower(getEnvWithDefault("WEBHOOK_PAYLOAD_FORMAT", PayloadFormatJSON)),
		WebhookTimeout: timeout,
		TokenDelay:     delay,
		AllowedOrigin:  getEnvWithDefault("CORS_ALLOWED_ORIGIN", "*"),
		AllowedHeaders: "authorization, x-client-info, apikey, content-type",
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		JWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("N8N_WEBHOOK_URL is not set in environment variables")
	}
	switch c.PayloadFormat {
	case PayloadFormatJSON, PayloadFormatMultipart:
	default:
		return fmt.Errorf("unsupported WEBHOOK_PAYLOAD_FORMAT %q, use 'json' or 'multipart'", c.PayloadFormat)
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
	}
	if c.TokenDelay < 0 {
		return fmt.Errorf("STREAM_TOKEN_DELAY must not be negative")
	}
	if c.PostgresURL != "" && c.JWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required when POSTGRES_URL is set")
	}
	return nil
}

// HistoryEnabled reports whether a database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.PostgresURL != ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
