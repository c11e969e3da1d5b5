// Package persistence provides the session key/value store used by the
// dispatch core for handoff depth counters, handoff markers and escalation
// markers.
//
// Supported backends:
// - Memory: For development and testing (default)
// - Redis: For distributed production deployments
package persistence

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreConfig is the configuration for all session store implementations
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// KeyPrefix is the prefix for all Redis keys
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`

	// TTL is how long an idle session is kept (0 = forever)
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisStoreConfig `json:"redis" yaml:"redis"`
}

// RedisStoreConfig contains Redis-specific configuration
type RedisStoreConfig struct {
	// Host is the Redis server host
	Host string `json:"host" yaml:"host"`

	// Port is the Redis server port
	Port int `json:"port" yaml:"port"`

	// Password is the Redis password (optional)
	Password string `json:"password" yaml:"password"`

	// DB is the Redis database number
	DB int `json:"db" yaml:"db"`

	// PoolSize is the connection pool size
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:      StoreTypeMemory,
		KeyPrefix: "agentdesk:",
		TTL:       24 * time.Hour,
		Redis: RedisStoreConfig{
			Host:     "localhost",
			Port:     6379,
			DB:       0,
			PoolSize: 10,
		},
	}
}

// Store is the base interface for all persistent stores
type Store interface {
	// Close closes the store and releases resources
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// SessionStore is the key/value session contract.
type SessionStore interface {
	// GetData returns the session payload, or nil when the session is unknown.
	GetData(ctx context.Context, sessionID string) (map[string]any, error)

	// SetData stores one key of the session payload.
	SetData(ctx context.Context, sessionID, key string, value any) error
}

// ManagedSessionStore is a SessionStore with a lifecycle.
type ManagedSessionStore interface {
	SessionStore
	Store
}
