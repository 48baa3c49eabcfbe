package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
)

// ExchangeInput groups the backend-issued tokens forwarded to the session
// provider.
type ExchangeInput struct {
	AccessToken  string
	RefreshToken string
}

// SessionProvider establishes a provider-native session from backend-issued
// tokens. It is the only boundary to the external identity provider; its
// internal protocol is opaque to the rest of the system.
type SessionProvider interface {
	// Exchange verifies the token pair and returns the authenticated
	// identity together with the provider session. A rejection surfaces as
	// an error; no partial results are returned.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, domainauth.Session, error)
}

// StateStorage persists auth-state records keyed by browser state ID.
// Load returns ErrStateNotFound when no record exists for the ID.
type StateStorage interface {
	Save(ctx context.Context, id string, rec domainauth.StateRecord, ttl time.Duration) error
	Load(ctx context.Context, id string) (domainauth.StateRecord, error)
	Delete(ctx context.Context, id string) error
}

// ErrStateNotFound is returned by StateStorage.Load for unknown IDs.
type stateNotFoundError struct{}

func (stateNotFoundError) Error() string { return "auth state not found" }

var ErrStateNotFound error = stateNotFoundError{}

// BackendGateway is the outbound boundary to the sales-ops backend API.
// Requests are decorated with the current access credential by the
// implementation; callers never handle tokens directly.
type BackendGateway interface {
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error)
	Register(ctx context.Context, reg domainauth.Registration) (domainauth.BackendUser, error)
	Logout(ctx context.Context) error
	ProfileByUserID(ctx context.Context, userID string) (domainauth.Profile, error)
	ApproveProfile(ctx context.Context, profileID string, status domainauth.ApprovalStatus) (domainauth.Profile, error)
}

// ProfileSource is the subset of BackendGateway the profile resolver needs.
type ProfileSource interface {
	ProfileByUserID(ctx context.Context, userID string) (domainauth.Profile, error)
}

// CredentialSource yields the access credential to attach to an outbound
// request. It is consulted immediately before each send; an empty string
// means the request goes out unauthenticated.
type CredentialSource interface {
	AccessToken(ctx context.Context) string
}

// CredentialSourceFunc adapts a function to the CredentialSource interface.
type CredentialSourceFunc func(ctx context.Context) string

func (f CredentialSourceFunc) AccessToken(ctx context.Context) string { return f(ctx) }

// RoleMapper extracts a provisional role from a provider claim document.
type RoleMapper interface {
	Map(claims map[string]any) domainauth.Role
}
