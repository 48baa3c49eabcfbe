package devbackend

// Package devbackend is an in-memory stand-in for the external sales-ops
// backend API, serving the auth and profile endpoints the gateway
// consumes. It exists so the full login flow (login, exchange, profile
// fetch, guards) runs locally with zero external infrastructure. It is
// wired only in dev mode and in tests.

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "salesops-dev"

// Config controls the dev backend.
type Config struct {
	// TokenSecret signs issued HS256 access tokens. Required; must match
	// the dev session provider's secret.
	TokenSecret string
	// TokenTTL is the access token lifetime. Default 8h when zero.
	TokenTTL time.Duration
	// SeedUsername/SeedPassword/SeedEmail create an approved super-admin
	// account at startup so the approval flow has an approver.
	SeedUsername string
	SeedPassword string
	SeedEmail    string
	// Logger is optional.
	Logger *slog.Logger
}

type account struct {
	user         domainauth.BackendUser
	passwordHash []byte
	profile      domainauth.Profile
}

// Backend implements the backend REST contract in memory.
type Backend struct {
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
	mux      *http.ServeMux

	mu         sync.RWMutex
	byUsername map[string]*account
	byUserID   map[string]*account
	byProfile  map[string]*account
	refresh    map[string]string // refresh token -> user ID
}

// New constructs a dev backend with the seeded super-admin account.
func New(cfg Config) (*Backend, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("dev backend: token secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Backend{
		secret:     []byte(cfg.TokenSecret),
		tokenTTL:   ttl,
		logger:     logger,
		byUsername: make(map[string]*account),
		byUserID:   make(map[string]*account),
		byProfile:  make(map[string]*account),
		refresh:    make(map[string]string),
	}

	if cfg.SeedUsername != "" {
		if cfg.SeedPassword == "" {
			return nil, errors.New("dev backend: seed password is required when seed username is set")
		}
		if _, err := b.createAccount(cfg.SeedUsername, cfg.SeedPassword, cfg.SeedEmail, domainauth.RoleSuperAdmin, domainauth.ApprovalApproved); err != nil {
			return nil, fmt.Errorf("seed account: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/register", b.handleRegister)
	mux.HandleFunc("POST /auth/logout", b.handleLogout)
	mux.HandleFunc("GET /profiles/user/{userID}", b.handleProfileByUser)
	mux.HandleFunc("POST /profiles/{id}/approve", b.handleApprove)
	b.mux = mux

	return b, nil
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func (b *Backend) createAccount(username, password, email string, role domainauth.Role, status domainauth.ApprovalStatus) (*account, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, errors.New("username is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()
	acct := &account{
		user:         domainauth.BackendUser{ID: userID, Username: username, Email: email},
		passwordHash: hash,
		profile: domainauth.Profile{
			ID:       uuid.NewString(),
			UserID:   userID,
			Username: username,
			Role:     role,
			Status:   status,
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byUsername[username]; exists {
		return nil, errUsernameTaken
	}
	b.byUsername[username] = acct
	b.byUserID[userID] = acct
	b.byProfile[acct.profile.ID] = acct
	return acct, nil
}

var errUsernameTaken = errors.New("username already taken")

// issueTokens mints an HS256 access token carrying the identity claims the
// session provider and claim role mapper expect, plus an opaque refresh token.
func (b *Backend) issueTokens(user domainauth.BackendUser, role domainauth.Role) (domainauth.TokenPair, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":      tokenIssuer,
		"sub":      user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     string(role),
		"iat":      jwt.NewNumericDate(now),
		"exp":      jwt.NewNumericDate(now.Add(b.tokenTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken := uuid.NewString()
	b.mu.Lock()
	b.refresh[refreshToken] = user.ID
	b.mu.Unlock()

	return domainauth.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// authenticate resolves the bearer token on a request to a copy of the
// account, taken under the lock so later profile reads cannot race a
// concurrent approval.
func (b *Backend) authenticate(r *http.Request) (account, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return account{}, errors.New("missing bearer token")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, prefix), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return b.secret, nil
	})
	if err != nil || !token.Valid {
		return account{}, errors.New("invalid bearer token")
	}

	sub, _ := claims["sub"].(string)
	b.mu.RLock()
	acct, ok := b.byUserID[sub]
	var snapshot account
	if ok {
		snapshot = *acct
	}
	b.mu.RUnlock()
	if !ok {
		return account{}, errors.New("unknown token subject")
	}
	return snapshot, nil
}
