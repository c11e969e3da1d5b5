// Package circuitbreaker 为生成后端调用提供熔断保护。
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/types"
	"go.uber.org/zap"
)

// State 熔断器状态
type State int

const (
	// StateClosed 正常放行
	StateClosed State = iota
	// StateOpen 熔断中，直接拒绝
	StateOpen
	// StateHalfOpen 试探性放行有限次数
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is the cause of errors returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败多少次后打开
	Threshold int
	// ResetTimeout 打开后多久进入半开
	ResetTimeout time.Duration
	// HalfOpenMaxCalls 半开状态下同时放行的试探调用数
	HalfOpenMaxCalls int
	// OnStateChange 在持锁状态外同步调用
	OnStateChange func(from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker counts consecutive backend failures. Client-side errors and
// caller cancellations never count.
type Breaker struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
}

// New creates a breaker; non-positive fields take DefaultConfig values.
func New(cfg Config, logger *zap.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "circuit_breaker")),
		now:    time.Now,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state, b.failures, b.inFlight = StateClosed, 0, 0
	b.mu.Unlock()
	b.notify(from, StateClosed)
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by exactly one Done.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return false
		}
		b.state, b.inFlight = StateHalfOpen, 0
		fallthrough
	case StateHalfOpen:
		if b.inFlight >= b.cfg.HalfOpenMaxCalls {
			b.mu.Unlock()
			return false
		}
		b.inFlight++
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return true
}

// Done records the outcome of an allowed call.
func (b *Breaker) Done(err error) {
	b.mu.Lock()
	from := b.state
	if b.state == StateHalfOpen && b.inFlight > 0 {
		b.inFlight--
	}

	switch {
	case !countsAsFailure(err):
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
		b.failures = 0
	case b.state == StateHalfOpen:
		b.state, b.openedAt = StateOpen, b.now()
	default:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.state, b.openedAt = StateOpen, b.now()
		}
	}
	to, failures := b.state, b.failures
	b.mu.Unlock()

	if from != to && to == StateOpen {
		b.logger.Warn("circuit opened", zap.Int("consecutive_failures", failures), zap.Error(err))
	}
	b.notify(from, to)
}

func (b *Breaker) notify(from, to State) {
	if from == to {
		return
	}
	b.logger.Info("circuit state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

// countsAsFailure is false for success, caller cancellation and request
// errors that would fail again on any healthy backend.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch types.GetErrorCode(err) {
	case types.ErrInvalidRequest, types.ErrArgumentParse:
		return false
	}
	return true
}

// =============================================================================
// Provider decorator
// =============================================================================

// Provider guards an llm.Provider with a Breaker.
type Provider struct {
	next    llm.Provider
	breaker *Breaker
}

// Wrap returns p guarded by b.
func Wrap(p llm.Provider, b *Breaker) *Provider {
	return &Provider{next: p, breaker: b}
}

// Name returns the wrapped provider's name.
func (p *Provider) Name() string { return p.next.Name() }

// Breaker exposes the guarding breaker.
func (p *Provider) Breaker() *Breaker { return p.breaker }

// Chat forwards to the wrapped provider unless the breaker is open.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if !p.breaker.Allow() {
		return nil, types.NewError(types.ErrUpstreamError, p.next.Name()+" backend unavailable").
			WithCause(ErrOpen).
			WithRetryable(true)
	}
	resp, err := p.next.Chat(ctx, req)
	p.breaker.Done(err)
	return resp, err
}
