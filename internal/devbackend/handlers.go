package devbackend

import (
	"encoding/json"
	"net/http"
	"strings"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type approveRequest struct {
	Status domainauth.ApprovalStatus `json:"status"`
}

// POST /auth/login
func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !b.decode(w, r, &req) {
		return
	}

	// Snapshot under the lock; a concurrent approval may rewrite the
	// profile status at any time.
	b.mu.RLock()
	acct, ok := b.byUsername[strings.ToLower(strings.TrimSpace(req.Username))]
	var snapshot account
	if ok {
		snapshot = *acct
	}
	b.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(snapshot.passwordHash, []byte(req.Password)) != nil {
		b.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	if snapshot.profile.Status != domainauth.ApprovalApproved {
		b.writeError(w, http.StatusForbidden, "account_pending_approval", "account is not approved yet")
		return
	}

	tokens, err := b.issueTokens(snapshot.user, snapshot.profile.Role)
	if err != nil {
		b.logger.Error("issue tokens failed", "username", snapshot.user.Username, "error", err)
		b.writeError(w, http.StatusInternalServerError, "internal", "could not issue session tokens")
		return
	}

	b.writeJSON(w, http.StatusOK, map[string]any{
		"session": tokens,
		"user":    snapshot.user,
	})
}

// POST /auth/register
func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !b.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		b.writeError(w, http.StatusBadRequest, "validation", "username and password are required")
		return
	}

	role := domainauth.RoleSales
	if req.Role != "" {
		parsed, err := domainauth.ParseRole(req.Role)
		if err != nil {
			b.writeError(w, http.StatusBadRequest, "validation", "unknown role")
			return
		}
		role = parsed
	}

	// Self-registered accounts start pending and cannot sign in until an
	// administrator approves the profile.
	acct, err := b.createAccount(req.Username, req.Password, req.Email, role, domainauth.ApprovalPending)
	if err != nil {
		if err == errUsernameTaken {
			b.writeError(w, http.StatusConflict, "conflict", "username already taken")
			return
		}
		b.writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	b.writeJSON(w, http.StatusCreated, map[string]any{"user": acct.user})
}

// POST /auth/logout
func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Best effort: revoke the caller's refresh tokens when the bearer is
	// still valid, and report success regardless.
	if acct, err := b.authenticate(r); err == nil {
		b.mu.Lock()
		for token, userID := range b.refresh {
			if userID == acct.user.ID {
				delete(b.refresh, token)
			}
		}
		b.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /profiles/user/{userID}
func (b *Backend) handleProfileByUser(w http.ResponseWriter, r *http.Request) {
	if _, err := b.authenticate(r); err != nil {
		b.writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	userID := r.PathValue("userID")
	b.mu.RLock()
	acct, ok := b.byUserID[userID]
	var profile domainauth.Profile
	if ok {
		profile = acct.profile
	}
	b.mu.RUnlock()
	if !ok {
		b.writeError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}

	b.writeJSON(w, http.StatusOK, profile)
}

// POST /profiles/{id}/approve
func (b *Backend) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller, err := b.authenticate(r)
	if err != nil {
		b.writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	if !caller.profile.Role.IsAdmin() {
		b.writeError(w, http.StatusForbidden, "forbidden", "approval requires an admin role")
		return
	}

	var req approveRequest
	if !b.decode(w, r, &req) {
		return
	}
	switch req.Status {
	case domainauth.ApprovalApproved, domainauth.ApprovalRejected, domainauth.ApprovalPending:
	default:
		b.writeError(w, http.StatusBadRequest, "validation", "status must be pending, approved, or rejected")
		return
	}

	profileID := r.PathValue("id")
	b.mu.Lock()
	acct, ok := b.byProfile[profileID]
	var updated domainauth.Profile
	if ok {
		acct.profile.Status = req.Status
		updated = acct.profile
	}
	b.mu.Unlock()
	if !ok {
		b.writeError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}

	b.writeJSON(w, http.StatusOK, updated)
}

func (b *Backend) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		b.writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	return true
}

func (b *Backend) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		b.logger.Error("encode response failed", "error", err)
	}
}

func (b *Backend) writeError(w http.ResponseWriter, code int, errCode, message string) {
	b.writeJSON(w, code, map[string]string{"error": errCode, "message": message})
}
