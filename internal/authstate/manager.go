package authstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/salesops/ui-api/internal/ports"
)

// Manager hands out Store instances keyed by browser state ID, rehydrating
// them from durable storage.
type Manager struct {
	storage ports.StateStorage
	ttl     time.Duration
	logger  *slog.Logger
}

// ManagerOptions groups dependencies for NewManager.
type ManagerOptions struct {
	Storage ports.StateStorage
	TTL     time.Duration
	Logger  *slog.Logger
}

// NewManager constructs a Manager.
func NewManager(opts ManagerOptions) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{storage: opts.Storage, ttl: ttl, logger: logger}
}

// NewID generates a fresh browser state ID.
func (m *Manager) NewID() string { return uuid.NewString() }

// Get returns the Store for the given state ID, rehydrated from storage.
// Unknown IDs yield an empty store under that ID.
func (m *Manager) Get(ctx context.Context, id string) (*Store, error) {
	return Load(ctx, id, m.storage, Options{TTL: m.ttl, Logger: m.logger})
}

// storeKey is an unexported context key type for the request-scoped Store.
type storeKey struct{}

// WithStore returns a child context carrying the given store.
func WithStore(ctx context.Context, store *Store) context.Context {
	if store == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the request-scoped Store, or nil when absent.
func FromContext(ctx context.Context) *Store {
	if s, ok := ctx.Value(storeKey{}).(*Store); ok {
		return s
	}
	return nil
}

// ContextCredentials is a ports.CredentialSource reading the access
// credential from the request-scoped Store at send time. Requests outside
// a store scope go out unauthenticated.
type ContextCredentials struct{}

func (ContextCredentials) AccessToken(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.AccessToken()
	}
	return ""
}

// SignOutCurrent clears the request-scoped Store, if any. It is the
// 401-interceptor hook: after it runs, every read of the authenticated
// flag reflects the invalidated session.
func SignOutCurrent(ctx context.Context) {
	if s := FromContext(ctx); s != nil {
		// Persistence failures are logged inside Logout; the in-memory
		// clear still takes effect.
		_ = s.Logout(ctx)
	}
}
