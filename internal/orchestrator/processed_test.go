package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessedSet(t *testing.T) {
	t.Parallel()

	s := NewProcessedSet(2)

	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))

	// Seeing "a" again must not protect it from eviction.
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("c"))

	assert.False(t, s.Contains("a"))
	assert.Equal(t, []string{"b", "c"}, s.IDs())
	assert.Equal(t, 2, s.Len())
	assert.Zero(t, s.Trim())
}

func TestProcessedSetDefaultCap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultProcessedCap, NewProcessedSet(0).Cap())
}
