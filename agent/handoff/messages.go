package handoff

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentdesk/agent"
)

const (
	transitionTemplate       = "I'm connecting you with our %s specialist who can better help you with this."
	transitionReasonTemplate = "I'm connecting you with our %s specialist to help with: %s"
)

// TransitionText returns the user-facing transition text: the custom message
// when one is set, the template otherwise. The reason is quoted when present.
func TransitionText(opts Options, target agent.Config, reason string) string {
	if custom := strings.TrimSpace(opts.CustomMessage); custom != "" {
		return custom
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		return fmt.Sprintf(transitionReasonTemplate, target.Type, reason)
	}
	return fmt.Sprintf(transitionTemplate, target.Type)
}

// HumanResponse is the deterministic reply for a human escalation.
func HumanResponse(priority Priority, sessionID string) string {
	return fmt.Sprintf("I've escalated your request to a human agent with %s priority. "+
		"Your reference is %s. Someone from our team will be with you shortly.",
		priority, MaskSessionID(sessionID))
}

// MaskSessionID keeps the last four characters of id.
func MaskSessionID(id string) string {
	r := []rune(id)
	if len(r) <= 4 {
		return "****" + string(r)
	}
	return "****" + string(r[len(r)-4:])
}
