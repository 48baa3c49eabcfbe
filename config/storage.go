package config

import (
	"fmt"
	"strings"
	"time"
)

// StateMode selects the auth-state storage backend.
type StateMode string

const (
	// StateModeMemory keeps auth state in process memory. States do not
	// survive a restart; suitable for dev and single-instance setups.
	StateModeMemory StateMode = "memory"
	// StateModeRedis persists auth state in Redis so sessions survive
	// restarts and are shared across instances.
	StateModeRedis StateMode = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StateMode.
func (s *StateMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "redis":
		*s = StateMode(v)
		return nil
	default:
		return fmt.Errorf("invalid StateMode: %q (valid options: memory, redis)", v)
	}
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	// URI is either host:port or a full redis:// URL.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// StateConfig groups auth-state storage configuration.
type StateConfig struct {
	// Mode selects the storage backend.
	Mode StateMode `env:"STATE_MODE" envDefault:"memory"`

	// Redis connection (used when Mode=redis).
	Redis RedisConfig `envPrefix:"STATE_REDIS_"`

	// TTL is the fallback record lifetime when a state carries no session
	// expiry of its own.
	TTL time.Duration `env:"STATE_TTL" envDefault:"8h"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StateConfig) Sanitize() {
	if s.TTL <= 0 {
		s.TTL = 8 * time.Hour
	}
}
