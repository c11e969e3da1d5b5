package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID   contextKey = "trace_id"
	keyAgentID   contextKey = "agent_id"
	keySessionID contextKey = "session_id"
	keyHandoffID contextKey = "handoff_id"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithAgentID records the agent currently running a turn.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, keyAgentID, agentID)
}

// AgentID extracts the running agent ID from context.
func AgentID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyAgentID).(string)
	return v, ok && v != ""
}

// WithSessionID adds session ID to context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, keySessionID, sessionID)
}

// SessionID extracts session ID from context.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySessionID).(string)
	return v, ok && v != ""
}

// WithHandoffID adds the in-flight handoff ID to context.
func WithHandoffID(ctx context.Context, handoffID string) context.Context {
	return context.WithValue(ctx, keyHandoffID, handoffID)
}

// HandoffID extracts the in-flight handoff ID from context.
func HandoffID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyHandoffID).(string)
	return v, ok && v != ""
}
