package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salesops/ui-api/internal/adapters/authroles"
	"github.com/salesops/ui-api/internal/adapters/devsession"
	"github.com/salesops/ui-api/internal/adapters/memstate"
	"github.com/salesops/ui-api/internal/apiclient"
	"github.com/salesops/ui-api/internal/authstate"
	"github.com/salesops/ui-api/internal/devbackend"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const e2eSecret = "e2e-secret"

// newGateway wires the full stack — dev backend, dev session provider,
// backend client, state manager, router — behind one test server.
func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	logger := testLogger()

	backendImpl, err := devbackend.New(devbackend.Config{
		TokenSecret:  e2eSecret,
		SeedUsername: "root",
		SeedPassword: "rootpw",
		SeedEmail:    "root@example.com",
		Logger:       logger,
	})
	require.NoError(t, err)
	backendSrv := httptest.NewServer(backendImpl)
	t.Cleanup(backendSrv.Close)

	roles, err := authroles.NewClaimRoleMapper("role", domainauth.RoleSales)
	require.NoError(t, err)
	provider, err := devsession.NewProvider(devsession.Config{
		TokenSecret: e2eSecret,
		SessionTTL:  time.Hour,
		Roles:       roles,
	})
	require.NoError(t, err)

	client, err := apiclient.New(apiclient.Options{
		BaseURL:        backendSrv.URL,
		Credentials:    authstate.ContextCredentials{},
		OnUnauthorized: authstate.SignOutCurrent,
		Logger:         logger,
	})
	require.NoError(t, err)

	states := authstate.NewManager(authstate.ManagerOptions{Storage: memstate.New(), Logger: logger})
	resolver := service.NewProfileResolver(service.ProfileResolverOptions{Source: client, Logger: logger})

	router := NewRouter(RouterServices{
		Auth:     service.NewAuthService(service.AuthServiceOptions{Backend: client, Provider: provider}),
		Profiles: resolver,
		Backend:  client,
		States:   states,
		Logger:   logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// newBrowser is an HTTP client with its own cookie jar that does not
// follow redirects, so guard responses stay observable.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func getPage(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp, readJSON(t, resp)
}

func getJSON(t *testing.T, client *http.Client, url string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp, readJSON(t, resp)
}

func readJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) == 0 {
		return nil
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestFullLoginFlow(t *testing.T) {
	srv := newGateway(t)
	browser := newBrowser(t)

	// Unauthenticated page navigation bounces to the login page.
	resp := getPage(t, browser, srv.URL+"/dashboard")
	_ = resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login")

	// Login with the seeded account.
	resp, body := postJSON(t, browser, srv.URL+"/auth/login", map[string]string{
		"username": "root", "password": "rootpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "/dashboard", body["redirect_to"])

	// The dashboard now renders.
	resp = getPage(t, browser, srv.URL+"/dashboard")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Status reflects the loaded profile.
	resp, body = getJSON(t, browser, srv.URL+"/auth/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "loaded", body["profile_state"])
	profile, ok := body["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "superadmin", profile["role"])

	// The super-admin page admits the seeded account.
	resp = getPage(t, browser, srv.URL+"/admin/system")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout clears everything; guards deny again.
	resp, body = postJSON(t, browser, srv.URL+"/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "signed_out", body["status"])

	resp, body = getJSON(t, browser, srv.URL+"/auth/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["authenticated"])

	resp = getPage(t, browser, srv.URL+"/dashboard")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestFailedReloginKeepsSession(t *testing.T) {
	srv := newGateway(t)
	browser := newBrowser(t)

	resp, _ := postJSON(t, browser, srv.URL+"/auth/login", map[string]string{
		"username": "root", "password": "rootpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A re-login attempt with bad credentials fails, but the existing
	// session survives it.
	resp, _ = postJSON(t, browser, srv.URL+"/auth/login", map[string]string{
		"username": "root", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := getJSON(t, browser, srv.URL+"/auth/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])

	resp = getPage(t, browser, srv.URL+"/dashboard")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegistrationApprovalFlow(t *testing.T) {
	srv := newGateway(t)

	// A fresh registration starts pending.
	visitor := newBrowser(t)
	resp, body := postJSON(t, visitor, srv.URL+"/auth/register", map[string]string{
		"username": "bob", "password": "bobpw", "email": "bob@example.com", "role": "sales",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/login", body["redirect_to"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	bobID, _ := user["id"].(string)
	require.NotEmpty(t, bobID)

	// Pending accounts get the approval dialog, not a credential error.
	resp, body = postJSON(t, visitor, srv.URL+"/auth/login", map[string]string{
		"username": "bob", "password": "bobpw",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "account_pending_approval", body["error"])
	assert.Equal(t, "pending_approval", body["dialog"])

	// An admin approves the profile through the gateway.
	admin := newBrowser(t)
	resp, _ = postJSON(t, admin, srv.URL+"/auth/login", map[string]string{
		"username": "root", "password": "rootpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = getJSON(t, admin, srv.URL+"/api/profiles/user/"+bobID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	profileID, _ := body["id"].(string)
	require.NotEmpty(t, profileID)

	resp, body = postJSON(t, admin, fmt.Sprintf("%s/api/profiles/%s/approve", srv.URL, profileID), map[string]string{
		"status": "approved",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "approved", body["status"])

	// Bob can now sign in, but the admin pages stay closed to a sales role.
	resp, body = postJSON(t, visitor, srv.URL+"/auth/login", map[string]string{
		"username": "bob", "password": "bobpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])

	resp = getPage(t, visitor, srv.URL+"/admin")
	_ = resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/settings", resp.Header.Get("Location"))

	resp = getPage(t, visitor, srv.URL+"/settings")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProfilesAPIRequiresAuth(t *testing.T) {
	srv := newGateway(t)
	browser := newBrowser(t)

	resp, body := getJSON(t, browser, srv.URL+"/api/profiles/user/u1")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication_required", body["error"])
}

func TestApproveRequiresAdminRole(t *testing.T) {
	srv := newGateway(t)

	// Register and approve a sales user via the seeded admin, then verify
	// the approval endpoint rejects the sales user.
	admin := newBrowser(t)
	resp, _ := postJSON(t, admin, srv.URL+"/auth/login", map[string]string{
		"username": "root", "password": "rootpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postJSON(t, admin, srv.URL+"/auth/register", map[string]string{
		"username": "carol", "password": "carolpw", "email": "carol@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]any)
	carolID := user["id"].(string)

	resp, body = getJSON(t, admin, srv.URL+"/api/profiles/user/"+carolID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profileID := body["id"].(string)

	resp, _ = postJSON(t, admin, fmt.Sprintf("%s/api/profiles/%s/approve", srv.URL, profileID), map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	carol := newBrowser(t)
	resp, _ = postJSON(t, carol, srv.URL+"/auth/login", map[string]string{
		"username": "carol", "password": "carolpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = postJSON(t, carol, fmt.Sprintf("%s/api/profiles/%s/approve", srv.URL, profileID), map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "insufficient_permissions", body["error"])
}

func TestHealthz(t *testing.T) {
	srv := newGateway(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
