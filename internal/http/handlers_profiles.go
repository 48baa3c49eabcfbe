package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	apperrors "github.com/salesops/ui-api/internal/errors"
	"github.com/salesops/ui-api/internal/ports"
	"github.com/salesops/ui-api/internal/service"
)

// ProfileHandlers provides HTTP handlers for authorization profiles.
type ProfileHandlers struct {
	Resolver *service.ProfileResolver
	Backend  ports.BackendGateway
	Logger   *slog.Logger
}

// GetByUserID returns the profile for a user, fetching through the
// resolver so the guard cache stays warm.
// GET /api/profiles/user/{userID}.
func (h *ProfileHandlers) GetByUserID(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		WriteAppError(w, apperrors.ValidationField("userID", "user ID is required"))
		return
	}

	profile, err := h.Resolver.FetchProfileByUserID(r.Context(), userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// approveRequest is the body of an approval action.
type approveRequest struct {
	Status domainauth.ApprovalStatus `json:"status"`
}

// Approve applies an approval decision to a profile.
// POST /api/profiles/{id}/approve {status}.
func (h *ProfileHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")
	if profileID == "" {
		WriteAppError(w, apperrors.ValidationField("id", "profile ID is required"))
		return
	}

	var req approveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	switch req.Status {
	case domainauth.ApprovalApproved, domainauth.ApprovalRejected, domainauth.ApprovalPending:
	default:
		WriteAppError(w, apperrors.ValidationField("status", "status must be pending, approved, or rejected"))
		return
	}

	profile, err := h.Backend.ApproveProfile(r.Context(), profileID, req.Status)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	// The decision changed the user's authorization; drop any cached copy
	// so guards see the new role/status on next load.
	h.Resolver.Clear(profile.UserID)

	WriteJSON(w, http.StatusOK, profile)
}
