package handoff

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/agent/persistence"
	"github.com/BaSui01/agentdesk/internal/bound"
	"github.com/BaSui01/agentdesk/internal/metrics"
	"github.com/BaSui01/agentdesk/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName = "github.com/BaSui01/agentdesk/agent/handoff"

	depthExceededMessage = "Maximum handoff depth exceeded"
)

// ErrNoPendingAck is returned by Acknowledge when nothing awaits acknowledgment.
var ErrNoPendingAck = errors.New("no pending handoff acknowledgment")

// Resolver finds the target agent of a delegation.
type Resolver interface {
	Resolve(target string) (agent.Agent, bool)
}

// TransitionNotifier delivers the transition text to the user.
type TransitionNotifier interface {
	Notify(ctx context.Context, sessionID, message string) error
}

// Config configures the protocol.
type Config struct {
	// MaxDepth 每个会话允许的最大嵌套交接深度
	MaxDepth int
	Stats    StatsStore
	Notifier TransitionNotifier
	Metrics  *metrics.Collector
	Tracer   trace.Tracer
}

// Protocol delegates conversations between agents.
type Protocol struct {
	resolver Resolver
	sessions persistence.SessionStore
	stats    StatsStore
	notifier TransitionNotifier
	depth    bound.Limit
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	active map[string]ActiveHandoff
}

// NewProtocol creates a handoff protocol.
func NewProtocol(resolver Resolver, sessions persistence.SessionStore, cfg Config, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = NewMemoryStatsStore()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Protocol{
		resolver: resolver,
		sessions: sessions,
		stats:    stats,
		notifier: cfg.Notifier,
		depth:    bound.NewLimit("handoff_depth", cfg.MaxDepth, DefaultMaxDepth),
		metrics:  cfg.Metrics,
		tracer:   tracer,
		logger:   logger.With(zap.String("component", "handoff_protocol")),
		now:      time.Now,
		active:   make(map[string]ActiveHandoff),
	}
}

// MaxDepth returns the effective depth limit.
func (p *Protocol) MaxDepth() int { return p.depth.Max }

// Handoff runs one delegation. c is the source turn; it is never modified.
func (p *Protocol) Handoff(ctx context.Context, req Request, c *agent.Context) *Result {
	start := p.now()
	handoffID := "hoff_" + uuid.NewString()
	if c == nil {
		c = &agent.Context{}
	}
	sessionID := c.SessionID

	ctx = types.WithHandoffID(ctx, handoffID)
	ctx, span := p.tracer.Start(ctx, "handoff.delegate", trace.WithAttributes(
		attribute.String("handoff.id", handoffID),
		attribute.String("handoff.source", req.Source),
		attribute.String("handoff.target", req.Target),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	logger := p.logger.With(
		zap.String("handoff_id", handoffID),
		zap.String("source", req.Source),
		zap.String("target", req.Target),
		zap.String("session_id", sessionID),
	)

	res := &Result{
		HandoffID: handoffID,
		Target:    req.Target,
		Chain:     []Event{{AgentID: req.Source, Action: ActionHandedOff, Timestamp: start}},
	}

	p.track(ActiveHandoff{HandoffID: handoffID, Source: req.Source, Target: req.Target, SessionID: sessionID, StartedAt: start})
	defer p.release(handoffID)

	defer func() {
		res.Duration = p.now().Sub(start)
		span.SetAttributes(
			attribute.Bool("handoff.success", res.Success),
			attribute.Int("handoff.chain_length", len(res.Chain)),
		)
		if !res.Success {
			span.SetStatus(codes.Error, res.Error)
		}
	}()

	// Depth check. Get and set are separate store calls, so two concurrent
	// handoffs on one session may both pass.
	data, err := p.sessions.GetData(ctx, sessionID)
	if err != nil {
		if req.Target == HumanTarget {
			// Escalation never fails; depth bookkeeping is skipped.
			logger.Warn("failed to read session, escalating without depth check", zap.Error(err))
			return p.escalate(ctx, req, sessionID, res, start, logger)
		}
		logger.Error("failed to read session", zap.Error(err))
		return p.abort(res, types.NewError(types.ErrSessionStore, "failed to read session").WithCause(err))
	}
	depth := persistence.HandoffDepth(data)
	candidate, err := p.depth.Admit(depth)
	if err != nil {
		logger.Warn("handoff depth exceeded",
			zap.Int("depth", depth),
			zap.Int("max_depth", p.depth.Max))
		p.metrics.RecordDepthRejection(req.Source)
		p.metrics.RecordHandoff(req.Source, req.Target, "depth_exceeded", p.now().Sub(start))
		return p.abort(res, types.NewError(types.ErrHandoffDepthExceeded, depthExceededMessage).WithCause(err))
	}

	if err := p.sessions.SetData(ctx, sessionID, persistence.KeyHandoffDepth, candidate); err != nil {
		if req.Target == HumanTarget {
			logger.Warn("failed to persist handoff depth, escalating anyway", zap.Error(err))
			return p.escalate(ctx, req, sessionID, res, start, logger)
		}
		logger.Error("failed to persist handoff depth", zap.Error(err))
		return p.abort(res, types.NewError(types.ErrSessionStore, "failed to persist handoff depth").WithCause(err))
	}
	marker := LastHandoff{HandoffID: handoffID, From: req.Source, To: req.Target, Reason: req.Reason, Timestamp: start}
	if err := p.sessions.SetData(ctx, sessionID, persistence.KeyLastHandoff, marker); err != nil {
		logger.Warn("failed to persist last handoff marker", zap.Error(err))
	}

	if req.Target == HumanTarget {
		return p.escalate(ctx, req, sessionID, res, start, logger)
	}

	target, ok := p.resolver.Resolve(req.Target)
	if !ok {
		return p.fail(ctx, req, req.Target, res, start, logger,
			types.NewError(types.ErrAgentNotFound, fmt.Sprintf("Agent %s not found", req.Target)))
	}
	targetCfg := target.Config()
	res.Target = targetCfg.ID
	res.Chain = append(res.Chain, Event{AgentID: targetCfg.ID, Action: ActionReceived, Timestamp: p.now()})

	augmented := p.augment(c, req, handoffID)

	if req.Options.TransitionMessage {
		res.TransitionMessage = TransitionText(req.Options, targetCfg, req.Reason)
		if p.notifier != nil {
			if err := p.notifier.Notify(ctx, sessionID, res.TransitionMessage); err != nil {
				logger.Warn("failed to deliver transition message", zap.Error(err))
			}
		}
	}
	if req.Options.RequireAcknowledgment {
		if err := p.sessions.SetData(ctx, sessionID, persistence.KeyPendingAck, handoffID); err != nil {
			logger.Warn("failed to persist pending acknowledgment", zap.Error(err))
		}
	}

	logger.Info("delegating to target agent", zap.String("target_id", targetCfg.ID), zap.Int("depth", candidate))
	out, err := target.Execute(ctx, augmented)
	if err != nil {
		terr, ok := types.AsError(err)
		if !ok {
			terr = types.NewError(types.ErrInternalError, err.Error()).WithCause(err)
		}
		return p.fail(ctx, req, targetCfg.ID, res, start, logger, terr)
	}

	res.Chain = append(res.Chain, Event{AgentID: targetCfg.ID, Action: ActionProcessed, Timestamp: p.now()})
	res.Success = true
	res.Result = out

	d := p.now().Sub(start)
	p.record(ctx, req.Source, targetCfg.ID, true, d, logger)
	p.metrics.RecordHandoff(req.Source, targetCfg.ID, "success", d)

	if err := p.sessions.SetData(ctx, sessionID, persistence.KeyHandoffDepth, 0); err != nil {
		logger.Warn("failed to reset handoff depth", zap.Error(err))
	}

	logger.Info("handoff completed", zap.Duration("duration", d))
	return res
}

// escalate routes the conversation to a human operator. It never fails.
func (p *Protocol) escalate(ctx context.Context, req Request, sessionID string, res *Result, start time.Time, logger *zap.Logger) *Result {
	priority := req.Context.Priority
	if !priority.Valid() {
		priority = ParsePriority(string(priority))
	}

	markers := []struct {
		key   string
		value any
	}{
		{persistence.KeyEscalationReason, req.Reason},
		{persistence.KeyEscalationPriority, string(priority)},
		{persistence.KeyEscalatedAt, start.UTC().Format(time.RFC3339)},
		{persistence.KeyHumanHandoff, true},
	}
	for _, m := range markers {
		if err := p.sessions.SetData(ctx, sessionID, m.key, m.value); err != nil {
			logger.Warn("failed to persist escalation marker", zap.String("key", m.key), zap.Error(err))
		}
	}

	res.Chain = append(res.Chain, Event{AgentID: HumanTarget, Action: ActionReceived, Timestamp: p.now()})
	res.Success = true
	res.Response = HumanResponse(priority, sessionID)

	p.metrics.RecordHumanEscalation(string(priority))
	p.metrics.RecordHandoff(req.Source, HumanTarget, "escalated", p.now().Sub(start))
	logger.Info("escalated to human operator", zap.String("priority", string(priority)))
	return res
}

// fail handles an error after the depth was admitted.
func (p *Protocol) fail(ctx context.Context, req Request, statsTarget string, res *Result, start time.Time, logger *zap.Logger, err *types.Error) *Result {
	d := p.now().Sub(start)
	p.record(ctx, req.Source, statsTarget, false, d, logger)
	p.metrics.RecordHandoff(req.Source, statsTarget, "failure", d)

	if req.Options.AllowBounceBack {
		res.Chain = append(res.Chain, Event{AgentID: req.Source, Action: ActionBouncedBack, Timestamp: p.now()})
	}
	logger.Warn("handoff failed", zap.String("code", string(err.Code)), zap.Error(err))
	return p.abort(res, err)
}

func (p *Protocol) abort(res *Result, err *types.Error) *Result {
	res.Success = false
	res.Error = err.Message
	res.ErrorCode = err.Code
	return res
}

func (p *Protocol) record(ctx context.Context, source, target string, success bool, d time.Duration, logger *zap.Logger) {
	if _, err := p.stats.Record(ctx, source, target, success, d); err != nil {
		logger.Warn("failed to record handoff stats", zap.Error(err))
	}
}

// augment builds the target's context from the source turn.
func (p *Protocol) augment(c *agent.Context, req Request, handoffID string) *agent.Context {
	out := c.Clone()
	if req.Context.OriginalMessage != "" {
		out.Message = req.Context.OriginalMessage
	}
	priority := req.Context.Priority
	if !priority.Valid() {
		priority = ParsePriority(string(priority))
	}
	out.Session[agent.SessionKeyHandoff] = Metadata{
		HandoffID:     handoffID,
		From:          req.Source,
		Reason:        req.Reason,
		ExtractedData: req.Context.ExtractedData,
		Priority:      priority,
		Summary:       req.Context.Summary,
	}
	return out
}

// Acknowledge clears the pending acknowledgment of a session and returns the
// handoff ID it referred to.
func (p *Protocol) Acknowledge(ctx context.Context, sessionID string) (string, error) {
	data, err := p.sessions.GetData(ctx, sessionID)
	if err != nil {
		return "", types.NewError(types.ErrSessionStore, "failed to read session").WithCause(err)
	}
	pending, _ := data[persistence.KeyPendingAck].(string)
	if pending == "" {
		return "", ErrNoPendingAck
	}
	if err := p.sessions.SetData(ctx, sessionID, persistence.KeyPendingAck, ""); err != nil {
		return "", types.NewError(types.ErrSessionStore, "failed to clear acknowledgment").WithCause(err)
	}
	p.logger.Debug("handoff acknowledged", zap.String("handoff_id", pending), zap.String("session_id", sessionID))
	return pending, nil
}

// Stats returns the statistics of one (source, target) pair.
func (p *Protocol) Stats(ctx context.Context, source, target string) (Stats, bool, error) {
	return p.stats.Get(ctx, source, target)
}

// AllStats returns every recorded pair, sorted by source then target.
func (p *Protocol) AllStats(ctx context.Context) ([]Stats, error) {
	return p.stats.All(ctx)
}

// ActiveHandoffs returns the delegations currently in progress, oldest first.
func (p *Protocol) ActiveHandoffs() []ActiveHandoff {
	p.mu.RLock()
	out := make([]ActiveHandoff, 0, len(p.active))
	for _, a := range p.active {
		out = append(out, a)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (p *Protocol) track(a ActiveHandoff) {
	p.mu.Lock()
	p.active[a.HandoffID] = a
	p.mu.Unlock()
	p.metrics.HandoffStarted()
}

func (p *Protocol) release(handoffID string) {
	p.mu.Lock()
	delete(p.active, handoffID)
	p.mu.Unlock()
	p.metrics.HandoffFinished()
}
