package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Redis backs the attempt limiter when set; Postgres is used otherwise
	RedisURL string `envconfig:"REDIS_URL"`

	// Provider
	ProviderType     string `envconfig:"PROVIDER_TYPE" default:"deepface"`
	LivenessProvider string `envconfig:"LIVENESS_PROVIDER"`
	DeepFaceURL      string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`

	// HTTP rate limit per API key
	HTTPRateLimit float64 `envconfig:"HTTP_RATE_LIMIT" default:"20"`
	HTTPRateBurst int     `envconfig:"HTTP_RATE_BURST" default:"40"`

	// Audit events are also forwarded, signed, when a collector URL is set
	AuditWebhookURL    string `envconfig:"AUDIT_WEBHOOK_URL"`
	AuditWebhookSecret string `envconfig:"AUDIT_WEBHOOK_SECRET"`

	// Security
	TokenSecret string `envconfig:"TOKEN_SECRET" required:"true"`

	Verification Verification `envconfig:"VERIFY"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Verification.Profile != "" {
		if err := cfg.Verification.ApplyProfile(cfg.Verification.Profile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := cfg.Verification.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.AuditWebhookURL != "" && cfg.AuditWebhookSecret == "" {
		return nil, fmt.Errorf("load config: AUDIT_WEBHOOK_SECRET is required when AUDIT_WEBHOOK_URL is set")
	}

	return &cfg, nil
}

// LivenessProviderType returns the landmark source, defaulting to the descriptor source
func (c *Config) LivenessProviderType() string {
	if c.LivenessProvider == "" {
		return c.ProviderType
	}
	return c.LivenessProvider
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Database is the subset of Config needed by the operator tools
type Database struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

// LoadDatabase reads only DATABASE_URL, so migrations run without the service secrets
func LoadDatabase() (*Database, error) {
	var cfg Database
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	return &cfg, nil
}
