package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

func newRedisStatsStore(t *testing.T) (*RedisStatsStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStatsStore(client, "test:"), mr
}

func statsStores(t *testing.T) map[string]StatsStore {
	t.Helper()
	rs, _ := newRedisStatsStore(t)
	return map[string]StatsStore{
		"memory": NewMemoryStatsStore(),
		"redis":  rs,
	}
}

func TestStatsStore_Record(t *testing.T) {
	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, found, err := store.Get(ctx, "search", "booking")
			require.NoError(t, err)
			assert.False(t, found)

			s, err := store.Record(ctx, "search", "booking", true, 100*time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, int64(1), s.Attempts)
			assert.Equal(t, 1.0, s.SuccessRate)
			assert.Equal(t, 100*time.Millisecond, s.AvgDuration)

			s, err = store.Record(ctx, "search", "booking", false, 300*time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, int64(2), s.Attempts)
			assert.InDelta(t, 0.5, s.SuccessRate, 1e-12)
			assert.Equal(t, 200*time.Millisecond, s.AvgDuration)

			got, found, err := store.Get(ctx, "search", "booking")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, s, got)
		})
	}
}

func TestStatsStore_AllSorted(t *testing.T) {
	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, pair := range [][2]string{{"search", "faq"}, {"faq", "human"}, {"search", "booking"}} {
				_, err := store.Record(ctx, pair[0], pair[1], true, time.Millisecond)
				require.NoError(t, err)
			}

			all, err := store.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "faq", all[0].Source)
			assert.Equal(t, "booking", all[1].Target)
			assert.Equal(t, "faq", all[2].Target)
		})
	}
}

func TestStatsStore_ConcurrentRecords(t *testing.T) {
	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var g errgroup.Group
			for i := 0; i < 50; i++ {
				success := i%2 == 0
				g.Go(func() error {
					_, err := store.Record(ctx, "order", "complaint", success, 10*time.Millisecond)
					return err
				})
			}
			require.NoError(t, g.Wait())

			s, _, err := store.Get(ctx, "order", "complaint")
			require.NoError(t, err)
			assert.Equal(t, int64(50), s.Attempts)
			assert.InDelta(t, 0.5, s.SuccessRate, 1e-9)
			assert.InDelta(t, float64(10*time.Millisecond), float64(s.AvgDuration), 1)
		})
	}
}

func TestRedisStatsStore_KeyLayout(t *testing.T) {
	store, mr := newRedisStatsStore(t)
	_, err := store.Record(context.Background(), "search", "booking", true, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "1", mr.HGet("test:handoff_stats:search|booking", "attempts"))
	members, err := mr.Members("test:handoff_stats:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"search|booking"}, members)
}

func TestRedisStatsStore_ConnectionError(t *testing.T) {
	store, mr := newRedisStatsStore(t)
	mr.Close()

	_, err := store.Record(context.Background(), "a", "b", true, time.Second)
	assert.Error(t, err)
	_, _, err = store.Get(context.Background(), "a", "b")
	assert.Error(t, err)
	_, err = store.All(context.Background())
	assert.Error(t, err)
}

// The stored running means equal the arithmetic means of every recorded outcome.
func TestStats_OnlineMeanProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		outcomes := rapid.SliceOfN(rapid.Bool(), 1, 60).Draw(rt, "outcomes")
		durations := rapid.SliceOfN(rapid.Int64Range(0, int64(10*time.Second)), len(outcomes), len(outcomes)).Draw(rt, "durations")

		store := NewMemoryStatsStore()
		var successes, total float64
		var s Stats
		for i, ok := range outcomes {
			var err error
			s, err = store.Record(context.Background(), "src", "dst", ok, time.Duration(durations[i]))
			if err != nil {
				rt.Fatalf("record: %v", err)
			}
			if ok {
				successes++
			}
			total += float64(durations[i])
		}

		n := float64(len(outcomes))
		if s.Attempts != int64(len(outcomes)) {
			rt.Fatalf("attempts = %d, want %d", s.Attempts, len(outcomes))
		}
		if s.SuccessRate < 0 || s.SuccessRate > 1 {
			rt.Fatalf("success rate %v out of [0,1]", s.SuccessRate)
		}
		if diff := s.SuccessRate - successes/n; diff > 1e-9 || diff < -1e-9 {
			rt.Fatalf("success rate = %v, want %v", s.SuccessRate, successes/n)
		}
		// Duration truncation loses at most one nanosecond per update.
		if diff := float64(s.AvgDuration) - total/n; diff > n || diff < -n {
			rt.Fatalf("avg duration = %v, want %v", s.AvgDuration, total/n)
		}
	})
}

func TestRedisStatsStore_MatchesMemory(t *testing.T) {
	rs, mr := newRedisStatsStore(t)
	rapid.Check(t, func(rt *rapid.T) {
		mr.FlushAll()
		ms := NewMemoryStatsStore()
		outcomes := rapid.SliceOfN(rapid.Bool(), 1, 20).Draw(rt, "outcomes")
		for i, ok := range outcomes {
			d := time.Duration(rapid.Int64Range(0, int64(time.Second)).Draw(rt, "d"))
			want, _ := ms.Record(context.Background(), "a", "b", ok, d)
			got, err := rs.Record(context.Background(), "a", "b", ok, d)
			if err != nil {
				rt.Fatalf("record %d: %v", i, err)
			}
			if got.Attempts != want.Attempts {
				rt.Fatalf("attempts = %d, want %d", got.Attempts, want.Attempts)
			}
			if diff := got.SuccessRate - want.SuccessRate; diff > 1e-9 || diff < -1e-9 {
				rt.Fatalf("success rate = %v, want %v", got.SuccessRate, want.SuccessRate)
			}
		}
	})
}
