package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/testutil/mocks"
	"github.com/BaSui01/agentdesk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errBackend = errors.New("503 service unavailable")

// fakeClock is advanced manually.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := New(cfg, zap.NewNop())
	b.now = clock.now
	return b, clock
}

func fail(b *Breaker, n int) {
	for range n {
		if b.Allow() {
			b.Done(errBackend)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{HalfOpenMaxCalls: -1}, nil)
	assert.Equal(t, DefaultConfig().Threshold, b.cfg.Threshold)
	assert.Equal(t, DefaultConfig().ResetTimeout, b.cfg.ResetTimeout)
	assert.Equal(t, 1, b.cfg.HalfOpenMaxCalls)
	assert.Equal(t, StateClosed, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Minute})

	fail(b, 2)
	assert.Equal(t, StateClosed, b.State())

	fail(b, 1)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3})

	fail(b, 2)
	require.True(t, b.Allow())
	b.Done(nil)
	fail(b, 2)

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2})

	for _, err := range []error{
		context.Canceled,
		types.NewError(types.ErrInvalidRequest, "bad schema"),
		types.NewError(types.ErrArgumentParse, "bad json"),
	} {
		require.True(t, b.Allow())
		b.Done(err)
	}
	assert.Equal(t, StateClosed, b.State())

	require.True(t, b.Allow())
	b.Done(context.DeadlineExceeded)
	require.True(t, b.Allow())
	b.Done(types.NewError(types.ErrUpstreamTimeout, "slow"))
	assert.Equal(t, StateOpen, b.State(), "timeouts count")
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: 10 * time.Second, HalfOpenMaxCalls: 1})

	fail(b, 1)
	require.Equal(t, StateOpen, b.State())

	clock.advance(5 * time.Second)
	assert.False(t, b.Allow())

	clock.advance(6 * time.Second)
	require.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one probe in flight")

	b.Done(nil)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second})

	fail(b, 1)
	clock.advance(2 * time.Second)
	require.True(t, b.Allow())
	b.Done(errBackend)

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_OnStateChange(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	b, clock := newTestBreaker(Config{
		Threshold:    1,
		ResetTimeout: time.Second,
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	fail(b, 1)
	clock.advance(2 * time.Second)
	require.True(t, b.Allow())
	b.Done(nil)
	b.Reset()

	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1})
	fail(b, 1)
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_Concurrent(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1000})

	var g errgroup.Group
	for i := range 50 {
		g.Go(func() error {
			if b.Allow() {
				if i%2 == 0 {
					b.Done(errBackend)
				} else {
					b.Done(nil)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, StateClosed, b.State())
}

func TestProvider_RejectsWhileOpen(t *testing.T) {
	backend := mocks.NewMockProvider().WithError(errBackend)
	b, _ := newTestBreaker(Config{Threshold: 2, ResetTimeout: time.Minute})
	p := Wrap(backend, b)
	req := &llm.ChatRequest{Model: "gpt-4o-mini"}

	for range 2 {
		_, err := p.Chat(context.Background(), req)
		require.ErrorIs(t, err, errBackend)
	}

	_, err := p.Chat(context.Background(), req)
	require.ErrorIs(t, err, ErrOpen)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.True(t, types.IsRetryable(err))
	assert.Equal(t, 2, backend.CallCount(), "open breaker must not reach the backend")
	assert.Equal(t, "mock", p.Name())
	assert.Same(t, b, p.Breaker())
}

func TestProvider_PassesThrough(t *testing.T) {
	backend := mocks.NewMockProvider().WithResponse("hello")
	p := Wrap(backend, New(DefaultConfig(), zap.NewNop()))

	resp, err := p.Chat(context.Background(), &llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}
