package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/salesops/ui-api/internal/adapters/memstate"
	"github.com/salesops/ui-api/internal/authstate"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	apperrors "github.com/salesops/ui-api/internal/errors"
	mockauth "github.com/salesops/ui-api/internal/mocks/auth"
	"github.com/salesops/ui-api/internal/ports"
	"github.com/salesops/ui-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authHandlersFixture struct {
	handlers *AuthHandlers
	backend  *mockauth.MockBackendGateway
	provider *mockauth.MockSessionProvider
	resolver *service.ProfileResolver
	store    *authstate.Store
}

func newAuthHandlersFixture(t *testing.T) *authHandlersFixture {
	t.Helper()
	backend := &mockauth.MockBackendGateway{}
	provider := mockauth.NewMockSessionProvider()
	resolver := service.NewProfileResolver(service.ProfileResolverOptions{Source: backend, Logger: testLogger()})

	return &authHandlersFixture{
		handlers: &AuthHandlers{
			Svc:      service.NewAuthService(service.AuthServiceOptions{Backend: backend, Provider: provider}),
			Profiles: resolver,
			Logger:   testLogger(),
		},
		backend:  backend,
		provider: provider,
		resolver: resolver,
		store:    authstate.New("s1", memstate.New(), authstate.Options{Logger: testLogger()}),
	}
}

func (f *authHandlersFixture) post(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(authstate.WithStore(req.Context(), f.store))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLoginHappyPath(t *testing.T) {
	f := newAuthHandlersFixture(t)
	f.provider.DefaultIdentity = domainauth.Identity{ID: "u1", Email: "alice@example.com", Username: "alice"}

	w := httptest.NewRecorder()
	f.handlers.Login(w, f.post("/auth/login", `{"username":"alice","password":"secret"}`))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "/dashboard", body["redirect_to"])

	// The state container holds the full tuple and the profile is cached.
	assert.True(t, f.store.Authenticated())
	assert.Equal(t, "u1", f.store.State().Identity.ID)
	_, state := f.resolver.Cached("u1")
	assert.Equal(t, service.ProfileLoaded, state)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthHandlersFixture(t)
	f.backend.LoginFunc = func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
		return domainauth.LoginResult{}, apperrors.Unauthorized("invalid username or password")
	}

	w := httptest.NewRecorder()
	f.handlers.Login(w, f.post("/auth/login", `{"username":"alice","password":"wrong"}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, f.store.Authenticated())
}

func TestLoginPendingApprovalDialog(t *testing.T) {
	f := newAuthHandlersFixture(t)
	f.backend.LoginFunc = func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
		return domainauth.LoginResult{}, apperrors.PendingApproval("account is awaiting approval")
	}

	w := httptest.NewRecorder()
	f.handlers.Login(w, f.post("/auth/login", `{"username":"bob","password":"pw"}`))

	require.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "account_pending_approval", body["error"])
	assert.Equal(t, "pending_approval", body["dialog"])

	// The credentials were valid; the state still must not change.
	assert.False(t, f.store.Authenticated())
}

func TestLoginExchangeFailureAbortsBeforeProfile(t *testing.T) {
	f := newAuthHandlersFixture(t)
	f.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, domainauth.Session, error) {
		return domainauth.Identity{}, domainauth.Session{}, errors.New("jwks unreachable")
	}
	profileCalls := 0
	f.backend.ProfileByUserIDFunc = func(context.Context, string) (domainauth.Profile, error) {
		profileCalls++
		return domainauth.Profile{}, nil
	}

	w := httptest.NewRecorder()
	f.handlers.Login(w, f.post("/auth/login", `{"username":"alice","password":"secret"}`))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "session_exchange_failed")
	assert.False(t, f.store.Authenticated(), "nothing persisted when the exchange fails")
	assert.Zero(t, profileCalls, "the sequence stops before the profile fetch")
}

func TestLoginProfileFetchFailureIsRecoverable(t *testing.T) {
	f := newAuthHandlersFixture(t)
	f.provider.DefaultIdentity = domainauth.Identity{ID: "u1"}
	f.backend.ProfileByUserIDFunc = func(context.Context, string) (domainauth.Profile, error) {
		return domainauth.Profile{}, errors.New("profiles endpoint down")
	}

	w := httptest.NewRecorder()
	f.handlers.Login(w, f.post("/auth/login", `{"username":"alice","password":"secret"}`))

	// Login stands; guards fail closed off the failed profile state.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.store.Authenticated())
	_, state := f.resolver.Cached("u1")
	assert.Equal(t, service.ProfileFailed, state)
}

func TestLoginMalformedBody(t *testing.T) {
	f := newAuthHandlersFixture(t)

	w := httptest.NewRecorder()
	f.handlers.Login(w, f.post("/auth/login", `{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRedirectsToLogin(t *testing.T) {
	f := newAuthHandlersFixture(t)

	w := httptest.NewRecorder()
	f.handlers.Register(w, f.post("/auth/register", `{"username":"carol","password":"pw","email":"carol@example.com"}`))

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "/login", body["redirect_to"])
	assert.False(t, f.store.Authenticated(), "registration implies no session")
}

func TestLogoutClearsStateAndProfiles(t *testing.T) {
	f := newAuthHandlersFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetIdentity(ctx, &domainauth.Identity{ID: "u1"}))
	require.NoError(t, f.store.SetSession(ctx, &domainauth.Session{AccessToken: "t1"}))
	_, err := f.resolver.FetchProfileByUserID(ctx, "u1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	f.handlers.Logout(w, f.post("/auth/logout", `{}`))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "signed_out", body["status"])
	assert.Equal(t, "/login", body["redirect_to"])

	assert.False(t, f.store.Authenticated())
	assert.Equal(t, 1, f.backend.LogoutCalls)
	_, state := f.resolver.Cached("u1")
	assert.Equal(t, service.ProfileUnloaded, state)
}

func TestLogoutBackendFailureStillClearsLocally(t *testing.T) {
	f := newAuthHandlersFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetIdentity(ctx, &domainauth.Identity{ID: "u1"}))
	require.NoError(t, f.store.SetSession(ctx, &domainauth.Session{AccessToken: "t1"}))
	f.backend.LogoutFunc = func(context.Context) error { return errors.New("backend down") }

	w := httptest.NewRecorder()
	f.handlers.Logout(w, f.post("/auth/logout", `{}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.store.Authenticated(), "local sign-out does not depend on the backend call")
}

func TestLogoutIdempotentWhenSignedOut(t *testing.T) {
	f := newAuthHandlersFixture(t)

	w := httptest.NewRecorder()
	f.handlers.Logout(w, f.post("/auth/logout", `{}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, f.backend.LogoutCalls, "no backend call for an already-empty state")
}

func TestStatusUnauthenticated(t *testing.T) {
	f := newAuthHandlersFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req = req.WithContext(authstate.WithStore(req.Context(), f.store))
	w := httptest.NewRecorder()
	f.handlers.Status(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["authenticated"])
	assert.NotContains(t, body, "user")
}

func TestStatusAuthenticatedWithProfile(t *testing.T) {
	f := newAuthHandlersFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetIdentity(ctx, &domainauth.Identity{ID: "u1", Username: "alice"}))
	require.NoError(t, f.store.SetSession(ctx, &domainauth.Session{AccessToken: "t1"}))
	_, err := f.resolver.FetchProfileByUserID(ctx, "u1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req = req.WithContext(authstate.WithStore(req.Context(), f.store))
	w := httptest.NewRecorder()
	f.handlers.Status(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "loaded", body["profile_state"])
	assert.Contains(t, body, "profile")
}
