package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	t.Run("default capacity", func(t *testing.T) {
		assert.Equal(t, DefaultHistorySize, NewHistory(0).Cap())
	})

	t.Run("evicts oldest first", func(t *testing.T) {
		h := NewHistory(3)
		for i := uint32(1); i <= 7; i++ {
			h.Record(HistoryRecord{Event: damage(i)})
		}
		assert.Equal(t, 3, h.Len())
		assert.Equal(t, uint64(7), h.Total())
		assert.Equal(t, []uint32{5, 6, 7}, damageValues(h.Events(0)))
		assert.Equal(t, []uint32{7}, damageValues(h.Events(1)))
		assert.Equal(t, []uint32{5, 6, 7}, damageValues(h.Events(10)))
	})

	t.Run("partial fill", func(t *testing.T) {
		h := NewHistory(5)
		h.Record(HistoryRecord{Event: damage(1)})
		h.Record(HistoryRecord{Event: damage(2)})
		assert.Equal(t, []uint32{1, 2}, damageValues(h.Events(0)))
	})

	t.Run("assigns id and timestamp", func(t *testing.T) {
		h := NewHistory(2)
		h.Record(HistoryRecord{Event: damage(1)})
		h.Record(HistoryRecord{Event: damage(2)})
		recs := h.Last(0)
		assert.NotEqual(t, recs[0].ID, recs[1].ID)
		assert.False(t, recs[0].Timestamp.IsZero())
	})

	t.Run("clear", func(t *testing.T) {
		h := NewHistory(2)
		h.Record(HistoryRecord{Event: damage(1)})
		h.Clear()
		assert.Zero(t, h.Len())
		assert.Empty(t, h.Last(0))
		h.Record(HistoryRecord{Event: damage(2)})
		assert.Equal(t, []uint32{2}, damageValues(h.Events(0)))
	})
}
