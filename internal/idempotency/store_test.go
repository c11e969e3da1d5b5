package idempotency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	HandoffID string `json:"handoff_id"`
	Success   bool   `json:"success"`
}

func testStores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "test:"),
	}
}

func TestStore_Contract(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "k1", payload{HandoffID: "hoff_1", Success: true}, time.Hour))
			raw, ok, err := store.Get(ctx, "k1")
			require.NoError(t, err)
			require.True(t, ok)

			var got payload
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, payload{HandoffID: "hoff_1", Success: true}, got)
		})
	}
}

func TestStore_MarshalError(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Set(context.Background(), "k", make(chan int), time.Minute)
			assert.ErrorContains(t, err, "marshal")
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, s.Set(ctx, "default", 2, 0))

	now = now.Add(2 * time.Minute)
	_, ok, _ := s.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "default")
	assert.True(t, ok)

	now = now.Add(DefaultTTL)
	assert.Equal(t, 1, s.Cleanup())
	assert.Empty(t, s.entries)
}

func TestRedisStore_TTLAndPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedisStore(client, "agentdesk:")

	require.NoError(t, s.Set(context.Background(), "abc", payload{HandoffID: "h"}, 90*time.Second))

	assert.True(t, mr.Exists("agentdesk:idempotency:abc"))
	assert.Equal(t, 90*time.Second, mr.TTL("agentdesk:idempotency:abc"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := NewRedisStore(client, "")
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "k", 1, time.Second))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("s-1", "retry-7"), Key("s-1", "retry-7"))
	assert.NotEqual(t, Key("s-1", "retry-7"), Key("s-2", "retry-7"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key("s", "k"), 64)
}
