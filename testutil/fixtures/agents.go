// =============================================================================
// 📦 测试数据工厂 - Agent 测试数据
// =============================================================================
// 提供预定义的 Agent 配置与回合上下文，用于测试
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/agentdesk/agent"
	"github.com/BaSui01/agentdesk/types"
)

// =============================================================================
// 🤖 Agent 配置工厂
// =============================================================================

// AgentConfig 返回指定类别的 Agent 配置，ID 与类别同名
func AgentConfig(t agent.AgentType) agent.Config {
	return agent.Config{
		ID:          string(t),
		Name:        string(t) + " agent",
		Type:        t,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// AllAgentConfigs 返回每个类别各一个 Agent 配置
func AllAgentConfigs() []agent.Config {
	all := agent.AllAgentTypes()
	out := make([]agent.Config, len(all))
	for i, t := range all {
		out[i] = AgentConfig(t)
	}
	return out
}

// =============================================================================
// 💬 回合上下文工厂
// =============================================================================

// TurnContext 返回一个带简短历史的回合上下文
func TurnContext(sessionID, message string) *agent.Context {
	return &agent.Context{
		Message:   message,
		SessionID: sessionID,
		History: []types.Message{
			types.NewUserMessage("Hi"),
			types.NewAssistantMessage("Hello! How can I help you today?"),
		},
		Session: map[string]any{},
	}
}
