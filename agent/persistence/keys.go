package persistence

import (
	"encoding/json"
	"math"
	"strconv"
)

// Session payload keys written by the handoff protocol.
const (
	KeyHandoffDepth       = "handoff_depth"
	KeyLastHandoff        = "last_handoff"
	KeyEscalationReason   = "escalation_reason"
	KeyEscalationPriority = "escalation_priority"
	KeyEscalatedAt        = "escalated_at"
	KeyHumanHandoff       = "human_handoff"
	KeyPendingAck         = "pending_ack"
)

// IntValue converts a stored session value to int. Values that went through
// a JSON round trip arrive as float64 or json.Number; anything unusable is 0.
func IntValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0
			}
			return int(f)
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// HandoffDepth returns the depth counter stored in data.
func HandoffDepth(data map[string]any) int {
	if data == nil {
		return 0
	}
	return IntValue(data[KeyHandoffDepth])
}
