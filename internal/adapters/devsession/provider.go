package devsession

// Package devsession provides the session provider for local development.
// It verifies HS256 tokens minted by the embedded dev backend with a
// shared secret, standing in for the hosted identity provider.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
)

// Config controls the dev session provider.
type Config struct {
	// TokenSecret is the HS256 secret shared with the dev backend.
	TokenSecret string
	// SessionTTL caps the provider session lifetime when the token carries
	// no expiry. Default 8h when zero.
	SessionTTL time.Duration
	// Roles maps token claims to a provisional role hint. Optional.
	Roles ports.RoleMapper
}

// Provider implements ports.SessionProvider against dev-backend tokens.
type Provider struct {
	secret     []byte
	sessionTTL time.Duration
	roles      ports.RoleMapper
}

// NewProvider constructs a dev session provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("dev session: token secret is required")
	}
	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &Provider{secret: []byte(cfg.TokenSecret), sessionTTL: ttl, roles: cfg.Roles}, nil
}

var _ ports.SessionProvider = (*Provider)(nil)

// Exchange verifies the access token and returns the identity it carries
// together with a provider session wrapping the token pair.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error) {
	if in.AccessToken == "" {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("access token is required")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(in.AccessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		return domainauth.Identity{}, domainauth.Session{}, fmt.Errorf("verify access token: %w", err)
	}
	if !token.Valid {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("invalid access token")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("access token missing subject")
	}

	identity := domainauth.Identity{
		ID:       sub,
		Email:    stringClaim(claims, "email"),
		Username: stringClaim(claims, "username"),
	}
	if p.roles != nil {
		identity.RoleHint = p.roles.Map(claims)
	}

	expiresAt := time.Now().Add(p.sessionTTL)
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		expiresAt = exp.Time
	}

	session := domainauth.Session{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	return identity, session, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
