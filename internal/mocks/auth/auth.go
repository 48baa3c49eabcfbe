package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionProvider = (*MockSessionProvider)(nil)
	_ ports.BackendGateway  = (*MockBackendGateway)(nil)
	_ ports.RoleMapper      = (*StaticRoleMapper)(nil)
)

// MockSessionProvider simulates the external session provider with
// deterministic identities for tests.
type MockSessionProvider struct {
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error)

	// Deterministic values for predictable testing
	DefaultIdentity domainauth.Identity
	SessionTTL      time.Duration

	// Internal state tracking
	Calls []ports.ExchangeInput
	mu    sync.Mutex
}

// NewMockSessionProvider creates a MockSessionProvider with sensible defaults.
func NewMockSessionProvider() *MockSessionProvider {
	return &MockSessionProvider{
		DefaultIdentity: domainauth.Identity{
			ID:       "mock-user-1",
			Email:    "mock.user@example.com",
			Username: "mockuser",
			RoleHint: domainauth.RoleSales,
		},
		SessionTTL: time.Hour,
	}
}

func (m *MockSessionProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, in)
	m.mu.Unlock()

	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	ttl := m.SessionTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	session := domainauth.Session{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		ExpiresAt:    time.Now().Add(ttl),
	}
	return m.DefaultIdentity, session, nil
}

// MockBackendGateway is a func-field double for the backend API boundary.
// Unset funcs return zero values and no error, except Login which returns
// LoginResult carrying placeholder tokens so happy-path flows compose.
type MockBackendGateway struct {
	LoginFunc           func(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error)
	RegisterFunc        func(ctx context.Context, reg domainauth.Registration) (domainauth.BackendUser, error)
	LogoutFunc          func(ctx context.Context) error
	ProfileByUserIDFunc func(ctx context.Context, userID string) (domainauth.Profile, error)
	ApproveProfileFunc  func(ctx context.Context, profileID string, status domainauth.ApprovalStatus) (domainauth.Profile, error)

	LogoutCalls int
	mu          sync.Mutex
}

func (m *MockBackendGateway) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return domainauth.LoginResult{
		Session: domainauth.TokenPair{AccessToken: "mock-access", RefreshToken: "mock-refresh"},
		User:    domainauth.BackendUser{ID: "mock-user-1", Username: creds.Username},
	}, nil
}

func (m *MockBackendGateway) Register(ctx context.Context, reg domainauth.Registration) (domainauth.BackendUser, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return domainauth.BackendUser{ID: "mock-user-2", Username: reg.Username, Email: reg.Email}, nil
}

func (m *MockBackendGateway) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.LogoutCalls++
	m.mu.Unlock()
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockBackendGateway) ProfileByUserID(ctx context.Context, userID string) (domainauth.Profile, error) {
	if m.ProfileByUserIDFunc != nil {
		return m.ProfileByUserIDFunc(ctx, userID)
	}
	return domainauth.Profile{
		ID:       "mock-profile-1",
		UserID:   userID,
		Username: "mockuser",
		Role:     domainauth.RoleSales,
		Status:   domainauth.ApprovalApproved,
	}, nil
}

func (m *MockBackendGateway) ApproveProfile(ctx context.Context, profileID string, status domainauth.ApprovalStatus) (domainauth.Profile, error) {
	if m.ApproveProfileFunc != nil {
		return m.ApproveProfileFunc(ctx, profileID, status)
	}
	return domainauth.Profile{ID: profileID, UserID: "mock-user-1", Status: status}, nil
}

// StaticRoleMapper always maps to the configured role.
type StaticRoleMapper struct {
	Role domainauth.Role
}

func (s StaticRoleMapper) Map(map[string]any) domainauth.Role { return s.Role }
