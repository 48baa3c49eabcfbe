package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the session provider mode for the application.
type AuthMode string

const (
	// AuthModeOIDC verifies backend-issued access tokens against an OIDC
	// issuer's published keys.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeDev verifies tokens with a shared HMAC secret (development
	// only, pairs with the embedded dev backend).
	AuthModeDev AuthMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, dev)", v)
	}
}

// OIDCConfig contains OIDC verifier configuration (used when Mode=oidc).
type OIDCConfig struct {
	// IssuerURL is the OIDC issuer; discovery runs against
	// <issuer>/.well-known/openid-configuration.
	IssuerURL string `env:"ISSUER_URL"`

	// ClientID checked against the token audience. Leave empty to skip
	// the audience check (backend-issued tokens often omit it).
	ClientID string `env:"CLIENT_ID" envDefault:""`
}

// DevAuthConfig controls dev session verification.
// Used when AUTH_MODE=dev for development and testing.
type DevAuthConfig struct {
	// TokenSecret is the shared HS256 secret; must match the token issuer.
	TokenSecret string `env:"TOKEN_SECRET" envDefault:"salesops-dev-secret"`

	// SeedUsername/SeedPassword/SeedEmail seed the embedded dev backend's
	// approved super-admin account.
	SeedUsername string `env:"SEED_USERNAME" envDefault:"root"`
	SeedPassword string `env:"SEED_PASSWORD" envDefault:"root"`
	SeedEmail    string `env:"SEED_EMAIL"    envDefault:"root@example.com"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which session provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=dev).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// RoleClaimPath is the JMESPath expression that extracts the role hint
	// from provider claims (e.g. "role" or "realm_access.roles[0]").
	RoleClaimPath string `env:"AUTH_ROLE_CLAIM_PATH" envDefault:"role"`

	// SessionTTL bounds how long an established session lives when the
	// provider token carries no expiry of its own.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = 8 * time.Hour
	}
	if a.RoleClaimPath == "" {
		a.RoleClaimPath = "role"
	}
}
