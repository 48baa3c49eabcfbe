package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session provider and role mapping configuration
//   - backend.go: Sales-ops backend API configuration
//   - http.go: HTTP server configuration
//   - storage.go: Auth-state storage configuration
type AppConfig struct {
	// IsDev controls development mode behavior (dev session provider,
	// embedded dev backend). Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Backend API configuration
	Backend BackendConfig `envPrefix:"BACKEND_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Auth-state storage configuration
	State StateConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Backend.Sanitize()
	c.State.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
