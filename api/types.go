package api

import (
	"github.com/BaSui01/agentdesk/agent/handoff"
	"github.com/BaSui01/agentdesk/types"
)

// =============================================================================
// 回合类型
// =============================================================================

// TurnRequest 请求某个 Agent 处理一个对话回合。
// Session 中的字段会覆盖会话存储中的同名键，仅对本回合生效。
type TurnRequest struct {
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	History   []types.Message `json:"history,omitempty"`
	Session   map[string]any  `json:"session,omitempty"`
}

// TurnResponse 是一个回合的结果
type TurnResponse struct {
	AgentID         string            `json:"agent_id"`
	SessionID       string            `json:"session_id"`
	Content         string            `json:"content"`
	FunctionsCalled []string          `json:"functions_called"`
	DurationMS      int64             `json:"duration_ms"`
	Usage           *types.TokenUsage `json:"usage,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// =============================================================================
// 交接类型
// =============================================================================

// HandoffOptions 是 handoff.Options 的线上形式，Timeout 为 Go duration 字符串
type HandoffOptions struct {
	TransitionMessage     bool   `json:"transition_message"`
	CustomMessage         string `json:"custom_message,omitempty"`
	RequireAcknowledgment bool   `json:"require_acknowledgment"`
	Timeout               string `json:"timeout,omitempty" example:"30s"`
	AllowBounceBack       bool   `json:"allow_bounce_back"`
}

// HandoffRequest 请求将对话从 Source 交接到 Target
type HandoffRequest struct {
	SessionID string                 `json:"session_id"`
	Message   string                 `json:"message"`
	History   []types.Message        `json:"history,omitempty"`
	Source    string                 `json:"source"`
	Target    string                 `json:"target"`
	Reason    string                 `json:"reason"`
	Context   handoff.RequestContext `json:"context"`
	Options   HandoffOptions         `json:"options"`
}

// AckResponse 是确认交接的结果
type AckResponse struct {
	SessionID string `json:"session_id"`
	HandoffID string `json:"handoff_id"`
}

// =============================================================================
// Agent 目录类型
// =============================================================================

// AgentInfo 是对外暴露的 Agent 配置
type AgentInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Model       string   `json:"model,omitempty"`
	Temperature float32  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Functions   []string `json:"functions"`
}
