package agent

import (
	"maps"
	"slices"

	"github.com/BaSui01/agentdesk/types"
)

// Well-known session payload keys read by the agent layer.
const (
	SessionKeyPersonalization = "personalization"
	SessionKeyHandoff         = "handoff"
)

// Context carries one conversational turn.
type Context struct {
	Message   string          `json:"message"`
	SessionID string          `json:"session_id"`
	History   []types.Message `json:"history,omitempty"`
	Session   map[string]any  `json:"session,omitempty"`
}

// Clone returns a copy whose History and Session can be modified without
// touching c. Session values themselves are shared.
func (c *Context) Clone() *Context {
	if c == nil {
		return &Context{Session: map[string]any{}}
	}
	out := &Context{
		Message:   c.Message,
		SessionID: c.SessionID,
		History:   slices.Clone(c.History),
		Session:   maps.Clone(c.Session),
	}
	if out.Session == nil {
		out.Session = map[string]any{}
	}
	return out
}

// Personalization returns the personalization note, if any.
func (c *Context) Personalization() string {
	if c == nil || c.Session == nil {
		return ""
	}
	s, _ := c.Session[SessionKeyPersonalization].(string)
	return s
}
