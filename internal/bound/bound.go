// Package bound provides bounded iteration with an explicit, externally
// visible counter. It backs both the function-calling round-trip bound of
// the execution loop and the per-session handoff depth.
package bound

import (
	"errors"
	"fmt"
)

// ErrExceeded is matched by every *ExceededError.
var ErrExceeded = errors.New("bound exceeded")

// ExceededError reports that admitting one more step would pass the limit.
type ExceededError struct {
	Name      string
	Max       int
	Candidate int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %d exceeds maximum %d", e.Name, e.Candidate, e.Max)
}

// Is lets errors.Is(err, ErrExceeded) match.
func (e *ExceededError) Is(target error) bool {
	return target == ErrExceeded
}

// Limit is a named upper bound on a monotonically increasing counter.
type Limit struct {
	Name string
	Max  int
}

// NewLimit creates a limit. A non-positive max falls back to def.
func NewLimit(name string, max, def int) Limit {
	if max <= 0 {
		max = def
	}
	return Limit{Name: name, Max: max}
}

// Admit takes the current counter value and returns the candidate value for
// one more step. It fails without side effects when the candidate would
// exceed Max; persisting the candidate is the caller's job.
func (l Limit) Admit(current int) (int, error) {
	if current < 0 {
		current = 0
	}
	candidate := current + 1
	if candidate > l.Max {
		return current, &ExceededError{Name: l.Name, Max: l.Max, Candidate: candidate}
	}
	return candidate, nil
}

// Counter returns an in-memory counter governed by this limit.
func (l Limit) Counter() *Counter {
	return &Counter{limit: l}
}

// Counter is the in-memory form of a Limit, owned by a single goroutine.
type Counter struct {
	limit Limit
	n     int
}

// Next admits one more step. It returns false, leaving the count untouched,
// once the limit is reached.
func (c *Counter) Next() bool {
	n, err := c.limit.Admit(c.n)
	if err != nil {
		return false
	}
	c.n = n
	return true
}

// Count returns how many steps have been admitted.
func (c *Counter) Count() int { return c.n }

// Remaining returns how many more steps can be admitted.
func (c *Counter) Remaining() int { return c.limit.Max - c.n }

// Exhausted reports whether no further step can be admitted.
func (c *Counter) Exhausted() bool { return c.n >= c.limit.Max }
