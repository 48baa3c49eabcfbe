package oidcsession

// Package oidcsession provides the production session provider: it
// verifies backend-issued access tokens against an OIDC issuer's JWKS and
// maps the verified claims to a domain Identity.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
	"golang.org/x/oauth2"
)

// ProviderConfig holds configuration for the OIDC session provider.
type ProviderConfig struct {
	// IssuerURL is the OIDC issuer (discovery document at
	// <issuer>/.well-known/openid-configuration).
	IssuerURL string
	// ClientID is the audience expected in verified tokens. Empty skips
	// the audience check (some deployments issue audience-less tokens).
	ClientID string
	// SessionTTL caps the provider session lifetime when the token carries
	// no expiry. Default 8h when zero.
	SessionTTL time.Duration
	// Roles maps verified claims to a provisional role hint. Optional.
	Roles ports.RoleMapper
	// HTTPClient is used for discovery, JWKS, and userinfo fetches.
	// Optional; defaults to a 30s-timeout client.
	HTTPClient *http.Client
}

// Provider implements ports.SessionProvider using go-oidc.
type Provider struct {
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
	sessionTTL   time.Duration
	roles        ports.RoleMapper
	httpClient   *http.Client
}

// NewProvider creates an OIDC session provider. It performs the discovery
// fetch once at construction.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = 8 * time.Hour
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(strings.TrimSuffix(cfg.IssuerURL, "/"), "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	verifierCfg := &gooidc.Config{ClientID: cfg.ClientID}
	if cfg.ClientID == "" {
		verifierCfg.SkipClientIDCheck = true
	}

	return &Provider{
		oidcProvider: op,
		verifier:     op.Verifier(verifierCfg),
		sessionTTL:   ttl,
		roles:        cfg.Roles,
		httpClient:   httpClient,
	}, nil
}

var _ ports.SessionProvider = (*Provider)(nil)

// tokenClaims is the superset of claim shapes seen across providers.
type tokenClaims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Username          string `json:"username"`
}

// Exchange verifies the access token signature, issuer, and expiry, then
// maps its claims to an Identity. Missing email falls back to a userinfo
// fetch authorized by the same token.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error) {
	if in.AccessToken == "" {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("access token is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	verified, err := p.verifier.Verify(ctx, in.AccessToken)
	if err != nil {
		return domainauth.Identity{}, domainauth.Session{}, fmt.Errorf("verify access token: %w", err)
	}

	var claims tokenClaims
	if claimsErr := verified.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, domainauth.Session{}, fmt.Errorf("parse token claims: %w", claimsErr)
	}
	if claims.Sub == "" {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("access token missing subject")
	}

	identity := domainauth.Identity{
		ID:       claims.Sub,
		Email:    claims.Email,
		Username: firstNonEmpty(claims.PreferredUsername, claims.Username),
	}

	if identity.Email == "" {
		if fillErr := p.fillFromUserInfo(ctx, in.AccessToken, &identity); fillErr != nil {
			return domainauth.Identity{}, domainauth.Session{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}

	if p.roles != nil {
		var raw map[string]any
		if rawErr := verified.Claims(&raw); rawErr == nil {
			identity.RoleHint = p.roles.Map(raw)
		}
	}

	expiresAt := time.Now().Add(p.sessionTTL)
	if !verified.Expiry.IsZero() {
		expiresAt = verified.Expiry
	}

	session := domainauth.Session{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	return identity, session, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, identity *domainauth.Identity) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var claims tokenClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	if identity.Email == "" {
		identity.Email = claims.Email
	}
	if identity.Username == "" {
		identity.Username = firstNonEmpty(claims.PreferredUsername, claims.Username)
	}
	return nil
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
