package config

import "time"

// BackendConfig contains the sales-ops backend API client configuration.
type BackendConfig struct {
	// BaseURL is the root of the backend REST API. In dev mode with no
	// value set, the embedded dev backend is mounted and used instead.
	BaseURL string `env:"BASE_URL" envDefault:""`

	// Timeout bounds each outbound backend request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	if b.Timeout <= 0 {
		b.Timeout = 15 * time.Second
	}
}
