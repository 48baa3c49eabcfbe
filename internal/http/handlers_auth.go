package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/salesops/ui-api/internal/authstate"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	apperrors "github.com/salesops/ui-api/internal/errors"
	"github.com/salesops/ui-api/internal/service"
)

// dashboardPath is where a completed login navigates.
const dashboardPath = "/dashboard"

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc      *service.AuthService
	Profiles *service.ProfileResolver
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login handles the credential login endpoint.
// POST /auth/login {username, password}.
//
// The sequence is strictly ordered: backend login yields tokens, the
// token exchange establishes the provider session, the state store is
// updated, the profile is fetched, and only then does the response carry
// the dashboard navigation target. Each step awaits the previous one so
// guards never evaluate against a half-built state.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds domainauth.Credentials
	if !DecodeJSON(w, r, &creds) {
		return
	}

	ctx := r.Context()
	store := authstate.FromContext(ctx)
	if store == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "state_unavailable",
			Err:     errors.New("auth state not bound to request"),
		})
		return
	}

	result, err := h.Svc.Login(ctx, creds)
	if err != nil {
		// Pending approval is a dialog state, not a credential error; the
		// auth state stays untouched either way.
		if apperrors.IsPendingApproval(err) {
			WriteJSON(w, http.StatusForbidden, map[string]any{
				"error":   string(apperrors.ErrCodePendingApproval),
				"message": "account is awaiting approval",
				"dialog":  "pending_approval",
			})
			return
		}
		WriteAppError(w, err)
		return
	}

	identity, session, err := h.Svc.ExchangeSession(ctx, result.Session)
	if err != nil {
		// Abort before the profile fetch; nothing was persisted yet.
		h.logger().ErrorContext(ctx, "session exchange failed", "username", creds.Username, "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadGateway,
			ErrCode: "session_exchange_failed",
			Err:     errors.New("could not establish session"),
		})
		return
	}

	if err := store.SetIdentity(ctx, &identity); err != nil {
		h.logger().ErrorContext(ctx, "persist identity failed", "user_id", identity.ID, "error", err)
	}
	if err := store.SetSession(ctx, &session); err != nil {
		h.logger().ErrorContext(ctx, "persist session failed", "user_id", identity.ID, "error", err)
	}

	// A profile fetch failure is recoverable: guards fail closed until a
	// retry succeeds, but the login itself stands.
	if _, err := h.Profiles.FetchProfileByUserID(ctx, identity.ID); err != nil {
		h.logger().WarnContext(ctx, "profile fetch after login failed", "user_id", identity.ID, "error", err)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          identity,
		"redirect_to":   dashboardPath,
	})
}

// Register handles the registration endpoint.
// POST /auth/register {username, password, email, phone, role}.
// Registration implies no session; the caller redirects to login.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var reg domainauth.Registration
	if !DecodeJSON(w, r, &reg) {
		return
	}

	user, err := h.Svc.Register(r.Context(), reg)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":        user,
		"redirect_to": "/login",
	})
}

// Logout handles the logout endpoint.
// POST /auth/logout.
//
// Server-side and client-side logout are decoupled: a failed backend call
// is logged and the local state still clears, so a retry of either half
// is safe. The handler is idempotent for already-signed-out callers.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := authstate.FromContext(ctx)

	if store != nil && store.Authenticated() {
		if err := h.Svc.Logout(ctx); err != nil {
			h.logger().WarnContext(ctx, "backend logout failed", "error", err)
		}
	}

	if store != nil {
		if err := store.Logout(ctx); err != nil {
			h.logger().WarnContext(ctx, "clear auth state failed", "error", err)
		}
	}
	h.Profiles.ClearProfileData()

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "signed_out",
		"redirect_to": "/login",
	})
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	store := authstate.FromContext(r.Context())
	if store == nil || !store.Authenticated() {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	state := store.State()
	payload := map[string]any{
		"authenticated": true,
		"user":          state.Identity,
		"expires_at":    state.Session.ExpiresAt,
	}

	profile, loadState := h.Profiles.Cached(state.Identity.ID)
	payload["profile_state"] = loadState.String()
	if loadState == service.ProfileLoaded {
		payload["profile"] = profile
	}

	WriteJSON(w, http.StatusOK, payload)
}
