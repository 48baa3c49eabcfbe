package service

import (
	"context"
	"errors"
	"testing"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	apperrors "github.com/salesops/ui-api/internal/errors"
	mockauth "github.com/salesops/ui-api/internal/mocks/auth"
	"github.com/salesops/ui-api/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(backend *mockauth.MockBackendGateway, provider *mockauth.MockSessionProvider) *AuthService {
	if backend == nil {
		backend = &mockauth.MockBackendGateway{}
	}
	if provider == nil {
		provider = mockauth.NewMockSessionProvider()
	}
	return NewAuthService(AuthServiceOptions{Backend: backend, Provider: provider})
}

func TestLoginValidatesCredentials(t *testing.T) {
	svc := newAuthService(nil, nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, domainauth.Credentials{Password: "pw"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "username", apperrors.GetField(err))

	_, err = svc.Login(ctx, domainauth.Credentials{Username: "alice"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password", apperrors.GetField(err))
}

func TestLoginReturnsBackendTokens(t *testing.T) {
	backend := &mockauth.MockBackendGateway{
		LoginFunc: func(_ context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error) {
			assert.Equal(t, "alice", creds.Username)
			return domainauth.LoginResult{
				Session: domainauth.TokenPair{AccessToken: "t1", RefreshToken: "r1"},
				User:    domainauth.BackendUser{ID: "u1", Username: "alice"},
			}, nil
		},
	}
	svc := newAuthService(backend, nil)

	result, err := svc.Login(context.Background(), domainauth.Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", result.Session.AccessToken)
	assert.Equal(t, "u1", result.User.ID)
}

func TestLoginPendingApprovalPassesThrough(t *testing.T) {
	backend := &mockauth.MockBackendGateway{
		LoginFunc: func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
			return domainauth.LoginResult{}, apperrors.PendingApproval("account is awaiting approval")
		},
	}
	svc := newAuthService(backend, nil)

	_, err := svc.Login(context.Background(), domainauth.Credentials{Username: "bob", Password: "pw"})
	assert.True(t, apperrors.IsPendingApproval(err), "the distinguished code survives wrapping")
}

func TestLoginRejectsEmptyAccessToken(t *testing.T) {
	backend := &mockauth.MockBackendGateway{
		LoginFunc: func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
			return domainauth.LoginResult{User: domainauth.BackendUser{ID: "u1"}}, nil
		},
	}
	svc := newAuthService(backend, nil)

	_, err := svc.Login(context.Background(), domainauth.Credentials{Username: "alice", Password: "pw"})
	assert.True(t, apperrors.IsInternal(err))
}

func TestRegisterValidatesFields(t *testing.T) {
	svc := newAuthService(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		reg   domainauth.Registration
		field string
	}{
		{"missing username", domainauth.Registration{Password: "pw", Email: "a@b.c"}, "username"},
		{"missing password", domainauth.Registration{Username: "a", Email: "a@b.c"}, "password"},
		{"missing email", domainauth.Registration{Username: "a", Password: "pw"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.reg)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestRegisterReturnsUserWithoutSession(t *testing.T) {
	svc := newAuthService(nil, nil)

	user, err := svc.Register(context.Background(), domainauth.Registration{
		Username: "carol", Password: "pw", Email: "carol@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
}

func TestLogoutWrapsBackendError(t *testing.T) {
	backend := &mockauth.MockBackendGateway{
		LogoutFunc: func(context.Context) error { return errors.New("backend down") },
	}
	svc := newAuthService(backend, nil)

	err := svc.Logout(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, backend.LogoutCalls)
}

func TestExchangeSessionRequiresAccessToken(t *testing.T) {
	svc := newAuthService(nil, nil)

	_, _, err := svc.ExchangeSession(context.Background(), domainauth.TokenPair{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestExchangeSessionForwardsTokenPair(t *testing.T) {
	provider := mockauth.NewMockSessionProvider()
	svc := newAuthService(nil, provider)

	identity, session, err := svc.ExchangeSession(context.Background(), domainauth.TokenPair{
		AccessToken: "t1", RefreshToken: "r1",
	})
	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", identity.ID)
	assert.Equal(t, "t1", session.AccessToken)

	require.Len(t, provider.Calls, 1)
	assert.Equal(t, ports.ExchangeInput{AccessToken: "t1", RefreshToken: "r1"}, provider.Calls[0])
}

func TestExchangeSessionProviderErrorIsTyped(t *testing.T) {
	provider := mockauth.NewMockSessionProvider()
	provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error) {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("signature mismatch")
	}
	svc := newAuthService(nil, provider)

	_, _, err := svc.ExchangeSession(context.Background(), domainauth.TokenPair{AccessToken: "bad"})
	assert.True(t, apperrors.IsProvider(err))
}

func TestExchangeSessionRejectsEmptyIdentity(t *testing.T) {
	provider := mockauth.NewMockSessionProvider()
	provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error) {
		return domainauth.Identity{}, domainauth.Session{AccessToken: "t1"}, nil
	}
	svc := newAuthService(nil, provider)

	_, _, err := svc.ExchangeSession(context.Background(), domainauth.TokenPair{AccessToken: "t1"})
	assert.True(t, apperrors.IsProvider(err))
}
