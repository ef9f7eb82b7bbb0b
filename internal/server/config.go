package server

import (
	"time"

	"github.com/agentstation/attrmap/internal/validation"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string `json:"host"`
	Port int    `json:"port" validate:"gte=1,lte=65535"`

	// API settings
	PathPrefix string `json:"prefix" validate:"required,startswith=/"`

	// CORS settings
	CORSEnabled bool     `json:"cors"`
	CORSOrigins []string `json:"cors_origins"`

	// Authentication settings
	AuthEnabled bool   `json:"auth"`
	AuthHeader  string `json:"auth_header" validate:"required_if=AuthEnabled true"`
	APIKey      string `json:"api_key" validate:"required_if=AuthEnabled true"`

	// Performance settings
	RateLimit int           `json:"rate_limit" validate:"gte=0"` // Requests per minute per IP (0 to disable)
	ResultTTL time.Duration `json:"result_ttl" validate:"gte=0"` // How long build results stay retrievable by run id

	// HTTP timeouts
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`

	// Features
	MetricsEnabled bool `json:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSEnabled:    false,
		CORSOrigins:    []string{},
		AuthEnabled:    false,
		AuthHeader:     "X-API-Key",
		RateLimit:      100,
		ResultTTL:      15 * time.Minute,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.Struct(c)
}
