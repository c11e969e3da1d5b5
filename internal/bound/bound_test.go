package bound

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLimit_Admit(t *testing.T) {
	l := Limit{Name: "handoff_depth", Max: 3}

	next, err := l.Admit(0)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	next, err = l.Admit(2)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	next, err = l.Admit(3)
	require.Error(t, err)
	assert.Equal(t, 3, next, "rejected admission returns the unchanged value")
	assert.True(t, errors.Is(err, ErrExceeded))

	var ee *ExceededError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 4, ee.Candidate)
	assert.Equal(t, 3, ee.Max)
}

func TestLimit_NegativeCurrentTreatedAsZero(t *testing.T) {
	next, err := Limit{Name: "x", Max: 1}.Admit(-5)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestNewLimit_Default(t *testing.T) {
	assert.Equal(t, 5, NewLimit("loop", 0, 5).Max)
	assert.Equal(t, 7, NewLimit("loop", 7, 5).Max)
}

func TestCounter(t *testing.T) {
	c := Limit{Name: "loop", Max: 2}.Counter()
	assert.False(t, c.Exhausted())
	assert.True(t, c.Next())
	assert.Equal(t, 1, c.Remaining())
	assert.True(t, c.Next())
	assert.True(t, c.Exhausted())
	assert.False(t, c.Next())
	assert.Equal(t, 2, c.Count())
}

func TestProperty_CounterNeverExceedsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		max := rapid.IntRange(1, 20).Draw(rt, "max")
		attempts := rapid.IntRange(0, 50).Draw(rt, "attempts")

		c := Limit{Name: "p", Max: max}.Counter()
		admitted := 0
		for i := 0; i < attempts; i++ {
			if c.Next() {
				admitted++
			}
		}

		if c.Count() > max {
			rt.Fatalf("count %d exceeds max %d", c.Count(), max)
		}
		want := attempts
		if want > max {
			want = max
		}
		if admitted != want {
			rt.Fatalf("admitted %d, want %d", admitted, want)
		}
	})
}
