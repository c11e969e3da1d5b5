package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/BaSui01/agentdesk/internal/bound"
	"github.com/BaSui01/agentdesk/internal/metrics"
	"github.com/BaSui01/agentdesk/llm"
	"github.com/BaSui01/agentdesk/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxIterations bounds backend round trips per turn.
const DefaultMaxIterations = 5

const tracerName = "github.com/BaSui01/agentdesk/agent"

// LoopConfig 执行循环配置
type LoopConfig struct {
	// MaxIterations 每回合最多的生成后端往返次数
	MaxIterations int
	Metrics       *metrics.Collector
	Tracer        trace.Tracer
}

// Loop runs one agent against one turn: it calls the backend, resolves
// function calls one at a time and stops on final text or at the bound.
type Loop struct {
	provider llm.Provider
	executor FunctionExecutor
	limit    bound.Limit
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewLoop 创建执行循环
func NewLoop(provider llm.Provider, executor FunctionExecutor, cfg LoopConfig, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Loop{
		provider: provider,
		executor: executor,
		limit:    bound.NewLimit("function_iterations", cfg.MaxIterations, DefaultMaxIterations),
		metrics:  cfg.Metrics,
		tracer:   tracer,
		logger:   logger.With(zap.String("component", "agent_loop")),
	}
}

// MaxIterations returns the effective round-trip bound.
func (l *Loop) MaxIterations() int { return l.limit.Max }

// Run executes one turn. It never returns nil and never panics: backend,
// argument parsing and executor failures, as well as panics raised by
// collaborators, degrade into a Result carrying ErrorApology.
func (l *Loop) Run(ctx context.Context, a Agent, c *Context) (res *Result) {
	start := time.Now()
	cfg := a.Config()
	if c == nil {
		c = &Context{}
	}

	ctx = types.WithAgentID(ctx, cfg.ID)
	if c.SessionID != "" {
		ctx = types.WithSessionID(ctx, c.SessionID)
	}
	ctx, span := l.tracer.Start(ctx, "agent.turn", trace.WithAttributes(
		attribute.String("agent.id", cfg.ID),
		attribute.String("agent.type", string(cfg.Type)),
		attribute.String("session.id", c.SessionID),
	))
	defer span.End()

	logger := l.logger.With(
		zap.String("agent_id", cfg.ID),
		zap.String("session_id", c.SessionID),
	)

	res = &Result{FunctionsCalled: []string{}}
	counter := l.limit.Counter()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during turn",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res.Content = ErrorApology
			res.Error = fmt.Sprintf("panic: %v", r)
			span.SetStatus(codes.Error, res.Error)
		}
		res.Duration = time.Since(start)

		outcome := "success"
		if res.Degraded() {
			outcome = "error"
		}
		span.SetAttributes(
			attribute.Int("agent.backend_calls", counter.Count()),
			attribute.Int("agent.functions_called", len(res.FunctionsCalled)),
		)
		l.metrics.RecordTurn(cfg.ID, string(cfg.Type), outcome, counter.Count(), res.Duration)
	}()

	if err := l.run(ctx, a, c, counter, res, logger); err != nil {
		logger.Warn("turn degraded",
			zap.Error(err),
			zap.Strings("functions_called", res.FunctionsCalled))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Content = ErrorApology
		res.Error = err.Error()
		return res
	}

	if res.Content == "" {
		res.Content = EmptyResponseApology
	}
	return res
}

func (l *Loop) run(ctx context.Context, a Agent, c *Context, counter *bound.Counter, res *Result, logger *zap.Logger) error {
	if l.provider == nil {
		return types.NewError(types.ErrProviderNotSet, "generation backend not configured").WithCause(ErrProviderNotSet)
	}

	cfg := a.Config()
	req := &llm.ChatRequest{
		Model:       cfg.Model,
		Messages:    l.buildMessages(a, c),
		Functions:   a.Functions(),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	resp, err := l.chat(ctx, counter, req, res)
	if err != nil {
		return err
	}

	for resp.IsFunctionCall() {
		if counter.Exhausted() {
			logger.Warn("function iteration bound reached",
				zap.Int("max_iterations", l.limit.Max),
				zap.String("pending_function", resp.FunctionCall.Name))
			break
		}

		call := *resp.FunctionCall
		args, err := call.ParseArguments()
		if err != nil {
			l.metrics.RecordFunctionCall(call.Name, "parse_error")
			return err
		}

		logger.Debug("executing function",
			zap.String("function", call.Name),
			zap.Int("iteration", counter.Count()))

		out, err := l.execute(ctx, call.Name, args, c)
		if err != nil {
			l.metrics.RecordFunctionCall(call.Name, "error")
			return err
		}
		l.metrics.RecordFunctionCall(call.Name, "success")
		res.FunctionsCalled = append(res.FunctionsCalled, call.Name)

		payload, err := json.Marshal(out)
		if err != nil {
			return types.NewError(types.ErrFunctionExecution, "cannot serialize result of "+call.Name).WithCause(err)
		}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		req.Messages = append(req.Messages,
			types.NewFunctionCallMessage(call),
			types.NewFunctionResultMessage(call.ID, call.Name, string(payload)),
		)

		resp, err = l.chat(ctx, counter, req, res)
		if err != nil {
			return err
		}
	}

	// At the bound a pending call has no text; the empty apology applies.
	res.Content = resp.Content
	return nil
}

// chat performs one admitted backend round trip.
func (l *Loop) chat(ctx context.Context, counter *bound.Counter, req *llm.ChatRequest, res *Result) (*llm.ChatResponse, error) {
	if !counter.Next() {
		return nil, &bound.ExceededError{Name: l.limit.Name, Max: l.limit.Max, Candidate: counter.Count() + 1}
	}

	start := time.Now()
	agentID, _ := types.AgentID(ctx)
	resp, err := l.provider.Chat(ctx, req)
	if err != nil {
		l.metrics.RecordBackendCall(l.provider.Name(), agentID, "error", time.Since(start), 0, 0)
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, llm.UpstreamError(l.provider.Name(), err)
	}
	if resp == nil {
		l.metrics.RecordBackendCall(l.provider.Name(), agentID, "error", time.Since(start), 0, 0)
		return nil, types.NewError(types.ErrUpstreamError, l.provider.Name()+" returned no response")
	}

	var prompt, completion int
	if resp.Usage != nil {
		if res.Usage == nil {
			res.Usage = &types.TokenUsage{}
		}
		res.Usage.Add(*resp.Usage)
		prompt, completion = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	l.metrics.RecordBackendCall(l.provider.Name(), agentID, "success", time.Since(start), prompt, completion)
	return resp, nil
}

func (l *Loop) execute(ctx context.Context, name string, args map[string]any, c *Context) (any, error) {
	if l.executor == nil {
		return nil, types.NewError(types.ErrFunctionNotFound, "no executor for function "+name).WithCause(ErrFunctionNotFound)
	}
	out, err := l.executor.Execute(ctx, name, args, c)
	if err != nil {
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, types.NewError(types.ErrFunctionExecution, "function "+name+" failed").WithCause(err)
	}
	return out, nil
}

// buildMessages assembles system prompt, history and the user message.
func (l *Loop) buildMessages(a Agent, c *Context) []types.Message {
	prompt := a.SystemPrompt(c)
	if p := c.Personalization(); p != "" {
		prompt += "\n\nPersonalization: " + p
	}

	messages := make([]types.Message, 0, len(c.History)+2)
	messages = append(messages, types.NewSystemMessage(prompt))
	messages = append(messages, c.History...)
	messages = append(messages, types.NewUserMessage(c.Message))
	return messages
}
