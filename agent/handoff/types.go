package handoff

import (
	"strings"
	"time"

	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/types"
)

// HumanTarget routes a handoff to a human operator.
const HumanTarget = "human"

// DefaultMaxDepth bounds nested delegations per session.
const DefaultMaxDepth = 3

// Action is one step of the chain of custody.
type Action string

const (
	ActionHandedOff   Action = "handed_off"
	ActionReceived    Action = "received"
	ActionProcessed   Action = "processed"
	ActionBouncedBack Action = "bounced_back"
)

// Priority of a delegation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority, lowest first.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority normalizes s; unknown or empty values yield PriorityMedium.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "urgent" {
		return PriorityCritical
	}
	if !p.Valid() {
		return PriorityMedium
	}
	return p
}

// Event is a timestamped entry of the chain of custody.
type Event struct {
	AgentID   string    `json:"agent_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Options tunes one delegation.
type Options struct {
	// TransitionMessage asks for a user-facing transition text.
	TransitionMessage bool   `json:"transition_message"`
	CustomMessage     string `json:"custom_message,omitempty"`

	// RequireAcknowledgment leaves a pending_ack marker in the session
	// until Protocol.Acknowledge is called.
	RequireAcknowledgment bool `json:"require_acknowledgment"`

	// Timeout is advisory; callers enforce it on the context.
	Timeout time.Duration `json:"timeout,omitempty"`

	AllowBounceBack bool `json:"allow_bounce_back"`
}

// RequestContext is what the source agent passes along.
type RequestContext struct {
	OriginalMessage string         `json:"original_message,omitempty"`
	ExtractedData   map[string]any `json:"extracted_data,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	Priority        Priority       `json:"priority,omitempty"`
}

// Request asks the protocol to delegate a conversation. Target is an agent
// ID, an agent category or HumanTarget.
type Request struct {
	Source  string         `json:"source"`
	Target  string         `json:"target"`
	Reason  string         `json:"reason"`
	Context RequestContext `json:"context"`
	Options Options        `json:"options"`
}

// Result is the structured outcome of a delegation. Failures are reported
// here, never as Go errors.
type Result struct {
	HandoffID         string          `json:"handoff_id"`
	Success           bool            `json:"success"`
	Target            string          `json:"target,omitempty"`
	Result            *agent.Result   `json:"result,omitempty"`
	Chain             []Event         `json:"chain"`
	Error             string          `json:"error,omitempty"`
	ErrorCode         types.ErrorCode `json:"error_code,omitempty"`
	TransitionMessage string          `json:"transition_message,omitempty"`
	Response          string          `json:"response,omitempty"`
	Duration          time.Duration   `json:"duration"`
}

// Metadata is attached to the target's context under agent.SessionKeyHandoff.
type Metadata struct {
	HandoffID     string         `json:"handoff_id"`
	From          string         `json:"from"`
	Reason        string         `json:"reason"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
	Priority      Priority       `json:"priority"`
	Summary       string         `json:"summary,omitempty"`
}

// HandoffNote implements agent.HandoffNoter.
func (m Metadata) HandoffNote() string {
	var sb strings.Builder
	sb.WriteString("This conversation was handed off to you by the " + m.From + " agent")
	if m.Reason != "" {
		sb.WriteString(" because: " + m.Reason)
	}
	sb.WriteString(".")
	if m.Summary != "" {
		sb.WriteString(" Summary so far: " + m.Summary)
	}
	if m.Priority != "" && m.Priority != PriorityMedium {
		sb.WriteString(" Priority: " + string(m.Priority) + ".")
	}
	return sb.String()
}

// LastHandoff is the marker persisted under persistence.KeyLastHandoff.
type LastHandoff struct {
	HandoffID string    `json:"handoff_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ActiveHandoff describes a delegation in progress.
type ActiveHandoff struct {
	HandoffID string    `json:"handoff_id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}
