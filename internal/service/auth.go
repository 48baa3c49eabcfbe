package service

import (
	"context"
	"fmt"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	apperrors "github.com/salesops/ui-api/internal/errors"
	"github.com/salesops/ui-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Backend  ports.BackendGateway
	Provider ports.SessionProvider
}

// AuthService is the request/response boundary for authentication: backend
// login, registration, logout, and provider token exchange. It never
// mutates the auth-state container — composing the login sequence
// (login, exchange, profile fetch, state update, navigation) is the HTTP
// layer's job, which keeps each step testable in isolation.
type AuthService struct {
	backend  ports.BackendGateway
	provider ports.SessionProvider
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	return &AuthService{
		backend:  opts.Backend,
		provider: opts.Provider,
	}
}

// Login authenticates the credentials against the backend and returns the
// issued token pair with the backend user. Invalid credentials and
// pending-approval accounts surface as distinguishable typed errors; the
// auth state is untouched either way.
func (s *AuthService) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error) {
	if creds.Username == "" {
		return domainauth.LoginResult{}, apperrors.ValidationField("username", "username is required")
	}
	if creds.Password == "" {
		return domainauth.LoginResult{}, apperrors.ValidationField("password", "password is required")
	}

	result, err := s.backend.Login(ctx, creds)
	if err != nil {
		return domainauth.LoginResult{}, fmt.Errorf("backend login: %w", err)
	}
	if result.Session.AccessToken == "" {
		return domainauth.LoginResult{}, apperrors.Internal("backend login returned no access token")
	}
	return result, nil
}

// Register creates the account on the backend. No session is implied; the
// caller redirects to login.
func (s *AuthService) Register(ctx context.Context, reg domainauth.Registration) (domainauth.BackendUser, error) {
	if reg.Username == "" {
		return domainauth.BackendUser{}, apperrors.ValidationField("username", "username is required")
	}
	if reg.Password == "" {
		return domainauth.BackendUser{}, apperrors.ValidationField("password", "password is required")
	}
	if reg.Email == "" {
		return domainauth.BackendUser{}, apperrors.ValidationField("email", "email is required")
	}

	user, err := s.backend.Register(ctx, reg)
	if err != nil {
		return domainauth.BackendUser{}, fmt.Errorf("backend register: %w", err)
	}
	return user, nil
}

// Logout invalidates the server-side session. It does not clear local
// auth state; server and client logout stay decoupled so either can be
// retried independently.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		return fmt.Errorf("backend logout: %w", err)
	}
	return nil
}

// ExchangeSession forwards the backend-issued tokens to the session
// provider and returns the provider-native identity and session.
func (s *AuthService) ExchangeSession(ctx context.Context, pair domainauth.TokenPair) (domainauth.Identity, domainauth.Session, error) {
	if pair.AccessToken == "" {
		return domainauth.Identity{}, domainauth.Session{}, apperrors.Validation("access token is required")
	}

	identity, session, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return domainauth.Identity{}, domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeProvider, "exchange session")
	}
	if identity.ID == "" {
		return domainauth.Identity{}, domainauth.Session{}, apperrors.Provider("provider returned empty identity")
	}
	return identity, session, nil
}
