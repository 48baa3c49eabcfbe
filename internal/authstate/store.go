package authstate

// Package authstate holds the auth-state container: the single writer of
// the (Identity, Session) tuple and the only component that talks to
// durable state storage. Persistence is an injected observer so tests can
// substitute an in-memory storage stub.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
)

// DefaultTTL bounds how long a persisted state record outlives a session
// without an explicit expiry.
const DefaultTTL = 8 * time.Hour

// Store is the auth-state container for one browser session. All mutations
// go through SetIdentity, SetSession, and Logout; the authenticated flag is
// recomputed from the fields on every read and never stored.
type Store struct {
	id      string
	storage ports.StateStorage
	ttl     time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	state domainauth.AuthState
}

// Options groups optional Store settings.
type Options struct {
	// TTL bounds the lifetime of the persisted record. Zero means DefaultTTL.
	TTL time.Duration
	// Logger receives persistence failures. Nil means slog.Default.
	Logger *slog.Logger
}

// New returns an empty Store persisting under the given state ID.
func New(id string, storage ports.StateStorage, opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{id: id, storage: storage, ttl: ttl, logger: logger}
}

// Load rehydrates a Store from durable storage. A missing record yields an
// empty store. The authenticated flag is recomputed from the rehydrated
// fields; nothing persisted is trusted beyond the raw Identity and Session.
func Load(ctx context.Context, id string, storage ports.StateStorage, opts Options) (*Store, error) {
	s := New(id, storage, opts)
	rec, err := storage.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrStateNotFound) {
			return s, nil
		}
		return nil, err
	}
	s.state = domainauth.AuthState{Identity: rec.User, Session: rec.Session}
	return s, nil
}

// ID returns the browser state ID this store persists under.
func (s *Store) ID() string { return s.id }

// State returns a snapshot of the current auth state.
func (s *Store) State() domainauth.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether both Identity and Session are present.
func (s *Store) Authenticated() bool {
	return s.State().Authenticated()
}

// AccessToken returns the current access credential, or "" when absent.
func (s *Store) AccessToken() string {
	return s.State().AccessToken()
}

// SetIdentity replaces the Identity, leaving the Session untouched, and
// persists the change.
func (s *Store) SetIdentity(ctx context.Context, identity *domainauth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Identity = identity
	return s.persistLocked(ctx)
}

// SetSession replaces the Session, leaving the Identity untouched, and
// persists the change.
func (s *Store) SetSession(ctx context.Context, session *domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session = session
	return s.persistLocked(ctx)
}

// Logout clears both fields and removes the persisted record. Calling it
// on an already-empty store is a no-op, so duplicate interceptor-triggered
// logouts are safe.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Identity == nil && s.state.Session == nil {
		return nil
	}
	s.state = domainauth.AuthState{}
	return s.persistLocked(ctx)
}

// persistLocked writes the current state through the storage observer.
// An empty state deletes the record instead of persisting nulls.
// Callers must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	if s.state.Identity == nil && s.state.Session == nil {
		if err := s.storage.Delete(ctx, s.id); err != nil {
			s.logger.WarnContext(ctx, "delete auth state failed", "state_id", s.id, "error", err)
			return err
		}
		return nil
	}
	rec := domainauth.StateRecord{User: s.state.Identity, Session: s.state.Session}
	if err := s.storage.Save(ctx, s.id, rec, s.recordTTLLocked()); err != nil {
		s.logger.WarnContext(ctx, "persist auth state failed", "state_id", s.id, "error", err)
		return err
	}
	return nil
}

// recordTTLLocked derives the storage TTL from the session expiry when one
// is set, clamped to at least a minute so a near-expiry write still lands.
func (s *Store) recordTTLLocked() time.Duration {
	if s.state.Session != nil && !s.state.Session.ExpiresAt.IsZero() {
		if until := time.Until(s.state.Session.ExpiresAt); until > time.Minute {
			return until
		}
		return time.Minute
	}
	return s.ttl
}
