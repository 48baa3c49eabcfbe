package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and wire transport.
// Valid values are defined as constants below.
type Role string

const (
	RoleSales      Role = "sales"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole normalizes a wire role value. The backend historically used
// "ceo" for the super-admin role; accept it as an alias on decode.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sales":
		return RoleSales, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	case "superadmin", "super-admin", "ceo":
		return RoleSuperAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsAdmin reports whether the role carries admin-level authorization.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// IsSuperAdmin reports whether the role is the super-admin role.
func (r Role) IsSuperAdmin() bool { return r == RoleSuperAdmin }

// UnmarshalJSON decodes a role from its wire form, accepting legacy aliases.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ApprovalStatus is the lifecycle state of a profile's account approval.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Identity is the minimal authenticated-user record supplied by the
// session provider. RoleHint is a provisional role extracted from provider
// claims; authorization decisions use the Profile, never the hint.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	RoleHint Role   `json:"role_hint,omitempty"`
}

// Session is the provider-issued credential pair authorizing backend API
// access. It is replaced wholesale on refresh and destroyed on logout.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session credential is past its expiry.
// Sessions without an expiry never expire locally; the backend decides.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Profile is the application-level authorization record for an Identity.
type Profile struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Username string         `json:"username"`
	Role     Role           `json:"role"`
	Status   ApprovalStatus `json:"status"`
}

// Approved reports whether the profile has passed admin approval.
func (p Profile) Approved() bool { return p.Status == ApprovalApproved }

// AuthState is the (Identity, Session) tuple held by the auth-state
// container. The authenticated flag is always derived, never stored.
type AuthState struct {
	Identity *Identity
	Session  *Session
}

// Authenticated reports whether both Identity and Session are present.
// This is the single definition of "is logged in"; callers must not cache
// it across mutations.
func (s AuthState) Authenticated() bool {
	return s.Identity != nil && s.Session != nil
}

// AccessToken returns the current access credential, or "" when absent.
func (s AuthState) AccessToken() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.AccessToken
}

// StateRecord is the durable form of AuthState: the raw fields only.
// The derived authenticated flag is deliberately not persisted so that
// rehydration always recomputes it from the stored values.
type StateRecord struct {
	User    *Identity `json:"user"`
	Session *Session  `json:"session"`
}

// Credentials are the username/password pair submitted at login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration carries the fields of a registration request.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
}

// BackendUser is the user record returned by the backend auth endpoints.
type BackendUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenPair is the backend-issued credential pair handed to the session
// provider during exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is the backend login response: the token pair plus the
// backend's view of the user.
type LoginResult struct {
	Session TokenPair   `json:"session"`
	User    BackendUser `json:"user"`
}
