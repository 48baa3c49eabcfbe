package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salesops/ui-api/config"
	"github.com/salesops/ui-api/internal/adapters/memstate"
	"github.com/salesops/ui-api/internal/adapters/redisstate"
	"github.com/salesops/ui-api/internal/ports"
)

// ConnectRedis establishes a connection to Redis. The URI may be a bare
// host:port or a full redis:// URL.
//
//nolint:ireturn // redis.UniversalClient keeps client selection flexible.
func ConnectRedis(cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	var client redis.UniversalClient
	addrDesc := cfg.URI

	if strings.Contains(cfg.URI, "://") {
		opts, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse redis URI: %w", err)
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.URI,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if logger != nil {
		// Log connection without credentials
		if u, parseErr := url.Parse(addrDesc); parseErr == nil && u.User != nil {
			u.User = url.User("*")
			addrDesc = u.Redacted()
		}
		logger.Info("redis connected", "addr", addrDesc)
	}

	return client, nil
}

// StateStorageResult bundles the storage with its closer (nil for memory).
type StateStorageResult struct {
	Storage ports.StateStorage
	Close   func() error
}

// BuildStateStorage constructs the auth-state storage per configuration.
func BuildStateStorage(cfg config.StateConfig, logger *slog.Logger) (StateStorageResult, error) {
	switch cfg.Mode {
	case config.StateModeRedis:
		client, err := ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return StateStorageResult{}, fmt.Errorf("connect redis: %w", err)
		}
		return StateStorageResult{
			Storage: redisstate.New(client),
			Close:   client.Close,
		}, nil
	case config.StateModeMemory, "":
		return StateStorageResult{Storage: memstate.New()}, nil
	default:
		return StateStorageResult{}, fmt.Errorf("unknown state mode %q", cfg.Mode)
	}
}
