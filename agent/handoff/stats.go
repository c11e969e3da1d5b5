package handoff

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stats is the running performance record of one (source, target) pair.
type Stats struct {
	Source      string        `json:"source"`
	Target      string        `json:"target"`
	Attempts    int64         `json:"attempts"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// StatsStore keeps running statistics. Record must apply the online mean
// update atomically per key.
type StatsStore interface {
	Record(ctx context.Context, source, target string, success bool, d time.Duration) (Stats, error)
	Get(ctx context.Context, source, target string) (Stats, bool, error)
	All(ctx context.Context) ([]Stats, error)
}

// update applies one outcome to s with exact online means.
func (s Stats) update(success bool, d time.Duration) Stats {
	n := float64(s.Attempts)
	outcome := 0.0
	if success {
		outcome = 1
	}
	s.SuccessRate = (s.SuccessRate*n + outcome) / (n + 1)
	s.AvgDuration = time.Duration((float64(s.AvgDuration)*n + float64(d)) / (n + 1))
	s.Attempts++
	return s
}

func sortStats(all []Stats) {
	sort.Slice(all, func(i, j int) bool {
		if all[i].Source != all[j].Source {
			return all[i].Source < all[j].Source
		}
		return all[i].Target < all[j].Target
	})
}

type statsKey struct {
	source string
	target string
}

// MemoryStatsStore keeps statistics in process.
type MemoryStatsStore struct {
	mu    sync.Mutex
	stats map[statsKey]Stats
}

// NewMemoryStatsStore creates an empty in-memory stats store.
func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{stats: make(map[statsKey]Stats)}
}

// Record implements StatsStore.
func (m *MemoryStatsStore) Record(_ context.Context, source, target string, success bool, d time.Duration) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := statsKey{source, target}
	s, ok := m.stats[key]
	if !ok {
		s = Stats{Source: source, Target: target}
	}
	s = s.update(success, d)
	m.stats[key] = s
	return s, nil
}

// Get implements StatsStore.
func (m *MemoryStatsStore) Get(_ context.Context, source, target string) (Stats, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[statsKey{source, target}]
	return s, ok, nil
}

// All implements StatsStore.
func (m *MemoryStatsStore) All(_ context.Context) ([]Stats, error) {
	m.mu.Lock()
	out := make([]Stats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, s)
	}
	m.mu.Unlock()
	sortStats(out)
	return out, nil
}

// recordScript applies the online mean update inside Redis so concurrent
// writers on the same key never lose an update. Floats travel as strings
// because Redis truncates Lua numbers to integers.
var recordScript = redis.NewScript(`
local n = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
local rate = tonumber(redis.call('HGET', KEYS[1], 'success_rate') or '0')
local avg = tonumber(redis.call('HGET', KEYS[1], 'avg_duration_ns') or '0')
local s = tonumber(ARGV[1])
local d = tonumber(ARGV[2])
rate = (rate * n + s) / (n + 1)
avg = (avg * n + d) / (n + 1)
n = n + 1
redis.call('HSET', KEYS[1], 'attempts', n, 'success_rate', string.format('%.17g', rate), 'avg_duration_ns', string.format('%.17g', avg))
redis.call('SADD', KEYS[2], ARGV[3])
return {tostring(n), string.format('%.17g', rate), string.format('%.17g', avg)}
`)

// RedisStatsStore keeps statistics in Redis hashes, one per pair, plus an
// index set of pair members.
type RedisStatsStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStatsStore creates a Redis-backed stats store.
func NewRedisStatsStore(client redis.UniversalClient, keyPrefix string) *RedisStatsStore {
	if keyPrefix == "" {
		keyPrefix = "agentdesk:"
	}
	return &RedisStatsStore{client: client, keyPrefix: keyPrefix + "handoff_stats:"}
}

func (r *RedisStatsStore) indexKey() string { return r.keyPrefix + "index" }

func (r *RedisStatsStore) pairKey(member string) string { return r.keyPrefix + member }

func member(source, target string) string { return source + "|" + target }

// Record implements StatsStore.
func (r *RedisStatsStore) Record(ctx context.Context, source, target string, success bool, d time.Duration) (Stats, error) {
	outcome := 0
	if success {
		outcome = 1
	}
	m := member(source, target)
	vals, err := recordScript.Run(ctx, r.client,
		[]string{r.pairKey(m), r.indexKey()},
		outcome, int64(d), m,
	).StringSlice()
	if err != nil {
		return Stats{}, fmt.Errorf("record handoff stats %s: %w", m, err)
	}
	if len(vals) != 3 {
		return Stats{}, fmt.Errorf("record handoff stats %s: unexpected reply %v", m, vals)
	}
	return parseStats(source, target, vals[0], vals[1], vals[2])
}

// Get implements StatsStore.
func (r *RedisStatsStore) Get(ctx context.Context, source, target string) (Stats, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.pairKey(member(source, target))).Result()
	if err != nil {
		return Stats{}, false, fmt.Errorf("load handoff stats: %w", err)
	}
	if len(fields) == 0 {
		return Stats{}, false, nil
	}
	s, err := parseStats(source, target, fields["attempts"], fields["success_rate"], fields["avg_duration_ns"])
	if err != nil {
		return Stats{}, false, err
	}
	return s, true, nil
}

// All implements StatsStore.
func (r *RedisStatsStore) All(ctx context.Context) ([]Stats, error) {
	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list handoff stats: %w", err)
	}
	out := make([]Stats, 0, len(members))
	for _, m := range members {
		source, target, ok := strings.Cut(m, "|")
		if !ok {
			continue
		}
		s, found, err := r.Get(ctx, source, target)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, s)
		}
	}
	sortStats(out)
	return out, nil
}

func parseStats(source, target, attempts, rate, avg string) (Stats, error) {
	n, err := strconv.ParseFloat(attempts, 64)
	if err != nil {
		return Stats{}, fmt.Errorf("parse attempts %q: %w", attempts, err)
	}
	sr, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return Stats{}, fmt.Errorf("parse success rate %q: %w", rate, err)
	}
	ad, err := strconv.ParseFloat(avg, 64)
	if err != nil {
		return Stats{}, fmt.Errorf("parse avg duration %q: %w", avg, err)
	}
	return Stats{
		Source:      source,
		Target:      target,
		Attempts:    int64(n),
		SuccessRate: sr,
		AvgDuration: time.Duration(ad),
	}, nil
}
