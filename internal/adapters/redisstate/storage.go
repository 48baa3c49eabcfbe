package redisstate

// Package redisstate provides the Redis-based StateStorage for production use.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
)

const defaultPrefix = "authstate:"

// Storage persists auth-state records as JSON values with a TTL.
type Storage struct {
	client redis.UniversalClient
	prefix string
}

// New creates a Redis-backed StateStorage with the default key prefix.
func New(client redis.UniversalClient) *Storage {
	return &Storage{client: client, prefix: defaultPrefix}
}

// NewWithPrefix creates a Redis-backed StateStorage with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *Storage {
	return &Storage{client: client, prefix: prefix}
}

var _ ports.StateStorage = (*Storage)(nil)

func (s *Storage) Save(ctx context.Context, id string, rec domainauth.StateRecord, ttl time.Duration) error {
	if id == "" {
		return errors.New("state ID cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("state TTL must be positive")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}

	return s.client.Set(ctx, s.prefix+id, data, ttl).Err()
}

func (s *Storage) Load(ctx context.Context, id string) (domainauth.StateRecord, error) {
	if id == "" {
		return domainauth.StateRecord{}, ports.ErrStateNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.StateRecord{}, ports.ErrStateNotFound
		}
		return domainauth.StateRecord{}, fmt.Errorf("redis get: %w", err)
	}

	var rec domainauth.StateRecord
	if unmarshalErr := json.Unmarshal([]byte(data), &rec); unmarshalErr != nil {
		// A corrupted record is unreadable state, not an outage; treat it
		// as absent so the caller falls back to an unauthenticated state.
		if delErr := s.Delete(ctx, id); delErr != nil {
			return domainauth.StateRecord{}, fmt.Errorf("cleanup corrupted state: %w", delErr)
		}
		return domainauth.StateRecord{}, ports.ErrStateNotFound
	}

	// Redis TTL should handle session expiry, but be defensive: a record
	// whose session is past expiry must not rehydrate as authenticated.
	if rec.Session != nil && rec.Session.Expired(time.Now()) {
		rec.Session = nil
	}

	return rec, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}
