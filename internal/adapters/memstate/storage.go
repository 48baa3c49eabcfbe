package memstate

// Package memstate provides an in-memory StateStorage for development mode
// and tests. Records honor TTL semantics like the Redis adapter.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
)

type entry struct {
	rec       domainauth.StateRecord
	expiresAt time.Time
}

// Storage is a map-backed StateStorage.
type Storage struct {
	mu      sync.RWMutex
	entries map[string]entry
	nowFunc func() time.Time
}

// New constructs an empty Storage.
func New() *Storage {
	return &Storage{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

var _ ports.StateStorage = (*Storage)(nil)

func (s *Storage) Save(_ context.Context, id string, rec domainauth.StateRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.nowFunc().Add(ttl)
	}
	s.entries[id] = entry{rec: rec, expiresAt: expiresAt}
	return nil
}

func (s *Storage) Load(_ context.Context, id string) (domainauth.StateRecord, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return domainauth.StateRecord{}, ports.ErrStateNotFound
	}
	if !e.expiresAt.IsZero() && s.nowFunc().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return domainauth.StateRecord{}, ports.ErrStateNotFound
	}
	return e.rec, nil
}

func (s *Storage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len reports the number of live records; used by tests.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
