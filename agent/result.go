package agent

import (
	"time"

	"github.com/BaSui01/agentdesk/types"
)

// Result is the outcome of one turn. A turn that failed inside the loop still
// produces a Result; Error then carries the diagnostic.
type Result struct {
	Content         string            `json:"content"`
	FunctionsCalled []string          `json:"functions_called"`
	Duration        time.Duration     `json:"duration"`
	Usage           *types.TokenUsage `json:"usage,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Degraded reports whether the turn failed inside the loop.
func (r *Result) Degraded() bool {
	return r != nil && r.Error != ""
}
