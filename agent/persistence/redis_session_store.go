package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore is a Redis-based implementation of SessionStore.
// Suitable for distributed production deployments.
// Each session is a hash whose fields hold JSON-encoded values.
type RedisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSessionStore creates a new Redis-based session store
func NewRedisSessionStore(config StoreConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSessionStoreFromClient(client, config), nil
}

// NewRedisSessionStoreFromClient wraps an existing client.
func NewRedisSessionStoreFromClient(client redis.UniversalClient, config StoreConfig) *RedisSessionStore {
	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "agentdesk:"
	}
	return &RedisSessionStore{
		client:    client,
		keyPrefix: keyPrefix + "session:",
		ttl:       config.TTL,
	}
}

// Close closes the store
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// sessionKey returns the Redis key for a session hash
func (s *RedisSessionStore) sessionKey(sessionID string) string {
	return s.keyPrefix + sessionID
}

// GetData returns the decoded session payload, nil when the hash is absent.
func (s *RedisSessionStore) GetData(ctx context.Context, sessionID string) (map[string]any, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	fields, err := s.client.HGetAll(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	data := make(map[string]any, len(fields))
	for field, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			// Values written by other tools are kept verbatim.
			v = raw
		}
		data[field] = v
	}
	return data, nil
}

// SetData stores one JSON-encoded field and refreshes the session TTL.
func (s *RedisSessionStore) SetData(ctx context.Context, sessionID, key string, value any) error {
	if sessionID == "" || key == "" {
		return ErrInvalidInput
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal session value %s: %w", key, err)
	}

	redisKey := s.sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKey, key, encoded)
	if s.ttl > 0 {
		pipe.Expire(ctx, redisKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session %s: %w", sessionID, err)
	}
	return nil
}
