// Package types provides core types shared across the agentdesk packages.
// This package has ZERO dependencies on other agentdesk packages to avoid circular imports.
package types

import (
	"encoding/json"
	"time"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FunctionCall is a request, emitted by the generation backend in place of
// text, to invoke a named function. Arguments arrive either already
// structured (Args) or as a serialized JSON string (RawArguments).
type FunctionCall struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	Args         map[string]any `json:"args,omitempty"`
	RawArguments string         `json:"arguments,omitempty"`
}

// ParseArguments returns the call arguments in structured form.
// Structured Args win over RawArguments; an empty string yields an empty map.
func (c FunctionCall) ParseArguments() (map[string]any, error) {
	if c.Args != nil {
		return c.Args, nil
	}
	if c.RawArguments == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(c.RawArguments), &args); err != nil {
		return nil, NewError(ErrArgumentParse, "malformed arguments for function "+c.Name).WithCause(err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Message represents a conversation message.
//
// A message with FunctionCall set records a call the backend asked for; a
// message with ToolCallID set carries the serialized result of that call.
type Message struct {
	Role         Role          `json:"role"`
	Content      string        `json:"content,omitempty"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
	Timestamp    time.Time     `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewFunctionCallMessage records a function call requested by the backend.
func NewFunctionCallMessage(call FunctionCall) Message {
	return Message{
		Role:         RoleAssistant,
		FunctionCall: &call,
		Timestamp:    time.Now(),
	}
}

// NewFunctionResultMessage carries a function result back to the backend.
// It is assistant-role; ToolCallID links it to the originating call.
func NewFunctionResultMessage(callID, name, content string) Message {
	return Message{
		Role:       RoleAssistant,
		Name:       name,
		Content:    content,
		ToolCallID: callID,
		Timestamp:  time.Now(),
	}
}

// IsFunctionResult reports whether the message carries a function result.
func (m Message) IsFunctionResult() bool {
	return m.ToolCallID != ""
}
