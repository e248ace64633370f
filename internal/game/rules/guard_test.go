package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReentrancyGuard(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		assert.Equal(t, DefaultMaxDepth, NewReentrancyGuard(0).MaxDepth())
		assert.Equal(t, DefaultMaxDepth, NewReentrancyGuard(-3).MaxDepth())
	})

	t.Run("enter refuses at limit", func(t *testing.T) {
		g := NewReentrancyGuard(2)
		require.True(t, g.Enter())
		require.True(t, g.Enter())
		assert.False(t, g.Enter())
		assert.Equal(t, 2, g.Depth())
		assert.Equal(t, 2, g.PeakDepth())
	})

	t.Run("exit signals flush only at outermost frame", func(t *testing.T) {
		g := NewReentrancyGuard(2)
		g.Enter()
		g.Enter()
		g.hold(deferredPublish{event: damage(1)})
		assert.False(t, g.Exit())
		assert.True(t, g.Exit())

		item, ok := g.next()
		require.True(t, ok)
		assert.Equal(t, damage(1), item.event)
		_, ok = g.next()
		assert.False(t, ok)
	})

	t.Run("no flush while flushing", func(t *testing.T) {
		g := NewReentrancyGuard(2)
		g.flushing = true
		g.hold(deferredPublish{event: damage(1)})
		g.Enter()
		assert.False(t, g.Exit())
	})

	t.Run("flushing admits only the replayed publish", func(t *testing.T) {
		g := NewReentrancyGuard(5)
		g.flushing = true
		require.True(t, g.Enter())
		assert.False(t, g.Enter())
		assert.Equal(t, 1, g.Depth())
	})

	t.Run("exit at zero stays at zero", func(t *testing.T) {
		g := NewReentrancyGuard(2)
		assert.False(t, g.Exit())
		assert.Equal(t, 0, g.Depth())
	})

	t.Run("reset", func(t *testing.T) {
		g := NewReentrancyGuard(2)
		g.Enter()
		g.hold(deferredPublish{event: damage(1)})
		g.Reset()
		assert.Zero(t, g.Depth())
		assert.Zero(t, g.Buffered())
		assert.Zero(t, g.PeakDepth())
	})
}

func TestPhaseQueue(t *testing.T) {
	q := NewPhaseQueue(PhaseResolution)
	assert.Equal(t, PhaseResolution, q.Phase())

	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push(PriorityEventEntry{Event: damage(1), Priority: PriorityLow, Sequence: 1})
	q.Push(PriorityEventEntry{Event: damage(2), Priority: PriorityHigh, Sequence: 2})
	q.Push(PriorityEventEntry{Event: damage(3), Priority: PriorityHigh, Sequence: 3})

	top, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, uint64(2), top.Sequence)
	assert.Equal(t, 3, q.Len())

	first, _ := q.Pop()
	assert.Equal(t, damage(2), first.Event)
	assert.Equal(t, []uint32{3, 1}, damageValues(q.Drain()))
	assert.Zero(t, q.Len())
}
