package apiclient

// Package apiclient is the single HTTP entry point to the sales-ops
// backend API. It decorates every outbound request with the current access
// credential, read from an injected CredentialSource immediately before
// send, and funnels authorization failures (401) into a sign-out hook.
// The credential-establishing endpoints (login, register) are exempt from
// the hook: their own 401 reports bad submitted credentials, not an
// expired session. All other error statuses pass through as typed errors;
// nothing is retried or transformed.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	apperrors "github.com/salesops/ui-api/internal/errors"
	"github.com/salesops/ui-api/internal/ports"
)

const defaultTimeout = 30 * time.Second

// legacyPendingMessage is the hardcoded server message older backends used
// to signal pending approval before the structured error code existed.
const legacyPendingMessage = "not approved"

// Options groups dependencies for New.
type Options struct {
	// BaseURL is the backend API root, e.g. "https://api.example.com".
	BaseURL string
	// Credentials yields the access credential per request. Optional; a
	// nil source sends every request unauthenticated.
	Credentials ports.CredentialSource
	// OnUnauthorized runs after any 401 response, before the error is
	// returned to the caller. Optional.
	OnUnauthorized func(ctx context.Context)
	// HTTPClient is the underlying transport. Optional.
	HTTPClient *http.Client
	// Logger receives request-level warnings. Optional.
	Logger *slog.Logger
}

// Client implements ports.BackendGateway over the backend REST contract.
type Client struct {
	baseURL        string
	credentials    ports.CredentialSource
	onUnauthorized func(ctx context.Context)
	httpClient     *http.Client
	logger         *slog.Logger
}

// New constructs a backend client.
func New(opts Options) (*Client, error) {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        base,
		credentials:    opts.Credentials,
		onUnauthorized: opts.OnUnauthorized,
		httpClient:     httpClient,
		logger:         logger,
	}, nil
}

var _ ports.BackendGateway = (*Client)(nil)

// Login calls POST /auth/login. Invalid credentials surface as an
// unauthorized error; an account awaiting approval surfaces as the
// distinguished pending-approval error.
func (c *Client) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error) {
	// A 401 here means the submitted credentials are wrong; any session the
	// caller already holds must survive it.
	var result domainauth.LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &result, false); err != nil {
		return domainauth.LoginResult{}, err
	}
	return result, nil
}

// Register calls POST /auth/register. It returns the created user; no
// session is implied.
func (c *Client) Register(ctx context.Context, reg domainauth.Registration) (domainauth.BackendUser, error) {
	var user domainauth.BackendUser
	if err := c.do(ctx, http.MethodPost, "/auth/register", reg, &user, false); err != nil {
		return domainauth.BackendUser{}, err
	}
	return user, nil
}

// Logout calls POST /auth/logout. It invalidates the server-side session
// only; clearing local state is the caller's responsibility.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
}

// ProfileByUserID calls GET /profiles/user/{userID}.
func (c *Client) ProfileByUserID(ctx context.Context, userID string) (domainauth.Profile, error) {
	if userID == "" {
		return domainauth.Profile{}, apperrors.Validation("user ID is required")
	}
	var profile domainauth.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles/user/"+url.PathEscape(userID), nil, &profile, true); err != nil {
		return domainauth.Profile{}, err
	}
	return profile, nil
}

// ApproveProfile calls POST /profiles/{id}/approve.
func (c *Client) ApproveProfile(ctx context.Context, profileID string, status domainauth.ApprovalStatus) (domainauth.Profile, error) {
	if profileID == "" {
		return domainauth.Profile{}, apperrors.Validation("profile ID is required")
	}
	body := map[string]domainauth.ApprovalStatus{"status": status}
	var profile domainauth.Profile
	if err := c.do(ctx, http.MethodPost, "/profiles/"+url.PathEscape(profileID)+"/approve", body, &profile, true); err != nil {
		return domainauth.Profile{}, err
	}
	return profile, nil
}

// errorBody is the backend's JSON error shape.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs one request: encode, decorate, send, intercept, decode.
// signOutOn401 is false for the credential-establishing endpoints, whose
// own 401 must not clear the current session.
func (c *Client) do(ctx context.Context, method, path string, body, dst any, signOutOn401 bool) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Request interceptor: read the credential at send time, attach only
	// when non-empty.
	if c.credentials != nil {
		if token := c.credentials.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(ctx, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.WarnContext(ctx, "close response body failed", "error", closeErr)
		}
	}()

	if resp.StatusCode >= 400 {
		appErr := c.errorFromResponse(resp)
		// Response interceptor: an authorization failure on an
		// authenticated endpoint clears the session state so the
		// authenticated flag flips app-wide.
		if resp.StatusCode == http.StatusUnauthorized && signOutOn401 && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return appErr
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(dst); decodeErr != nil {
		return apperrors.Wrap(decodeErr, apperrors.ErrCodeInternal, "decode response body")
	}
	return nil
}

// errorFromResponse maps a backend error response to a typed AppError.
func (c *Client) errorFromResponse(resp *http.Response) *apperrors.AppError {
	var body errorBody
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if readErr == nil {
		// Best effort; an unparseable body falls through to status mapping.
		_ = json.Unmarshal(data, &body)
	}

	message := body.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	if isPendingApproval(resp.StatusCode, body) {
		return apperrors.PendingApproval(message)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case http.StatusForbidden:
		return apperrors.Forbidden(message)
	case http.StatusNotFound:
		return apperrors.NotFound(message)
	case http.StatusConflict:
		return apperrors.Conflict(message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validation(message)
	default:
		return apperrors.Internalf("backend returned %d: %s", resp.StatusCode, message)
	}
}

// isPendingApproval prefers the structured error code and falls back to
// the legacy message substring for backends that predate it.
func isPendingApproval(status int, body errorBody) bool {
	if body.Error == string(apperrors.ErrCodePendingApproval) {
		return true
	}
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	return strings.Contains(strings.ToLower(body.Message), legacyPendingMessage)
}

func mapTransportError(ctx context.Context, err error) *apperrors.AppError {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "backend request timed out")
	case context.Canceled:
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "backend request canceled")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "backend request failed")
	}
}
