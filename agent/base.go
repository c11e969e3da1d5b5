package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/BaSui01/agentdesk/types"
)

// HandoffNoter is implemented by delegation metadata stored in the session
// under SessionKeyHandoff.
type HandoffNoter interface {
	HandoffNote() string
}

// BaseAgent 可配置的通用 Agent 实现，所有专职类别都由它承载。
type BaseAgent struct {
	config    Config
	functions []types.FunctionDefinition
	loop      *Loop
}

// NewBaseAgent 创建 BaseAgent
func NewBaseAgent(cfg Config, functions []types.FunctionDefinition, loop *Loop) *BaseAgent {
	return &BaseAgent{
		config:    cfg,
		functions: slices.Clone(functions),
		loop:      loop,
	}
}

// Config implements Agent.
func (b *BaseAgent) Config() Config { return b.config }

// Functions implements Agent.
func (b *BaseAgent) Functions() []types.FunctionDefinition {
	return slices.Clone(b.functions)
}

// SystemPrompt implements Agent. A configured prompt wins over the default;
// either way a delegation note is appended when the turn arrived via handoff.
func (b *BaseAgent) SystemPrompt(c *Context) string {
	prompt := b.config.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("You are %s, the %s specialist of a customer service desk. "+
			"Help the user with %s requests and transfer the conversation when another specialist fits better.",
			b.config.DisplayName(), b.config.Type, b.config.Type)
	}
	if note := handoffNote(c); note != "" {
		prompt += "\n\n" + note
	}
	return prompt
}

// Execute implements Agent by delegating to the execution loop.
func (b *BaseAgent) Execute(ctx context.Context, c *Context) (*Result, error) {
	if b.loop == nil {
		return nil, types.NewError(types.ErrProviderNotSet, "agent "+b.config.ID+" has no execution loop").WithCause(ErrProviderNotSet)
	}
	return b.loop.Run(ctx, b, c), nil
}

func handoffNote(c *Context) string {
	if c == nil || c.Session == nil {
		return ""
	}
	switch v := c.Session[SessionKeyHandoff].(type) {
	case HandoffNoter:
		return v.HandoffNote()
	case map[string]any:
		// Metadata that went through a JSON round trip.
		from, _ := v["from"].(string)
		reason, _ := v["reason"].(string)
		if from == "" {
			return ""
		}
		var sb strings.Builder
		sb.WriteString("This conversation was handed off to you by the " + from + " agent")
		if reason != "" {
			sb.WriteString(" because: " + reason)
		}
		sb.WriteString(".")
		return sb.String()
	}
	return ""
}
