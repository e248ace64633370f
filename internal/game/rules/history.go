package rules

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistorySize is the number of records kept when no size is configured.
const DefaultHistorySize = 1000

// HistoryRecord describes one dispatched event.
type HistoryRecord struct {
	ID        uuid.UUID
	Event     Event
	Category  EventCategory
	Phase     TurnPhase
	Timestamp time.Time
	// ShortCircuited is set when middleware stopped the handler pass.
	ShortCircuited bool
}

// History is a fixed-capacity ring of the most recent dispatch records.
type History struct {
	records []HistoryRecord
	start   int
	size    int
	total   uint64
}

// NewHistory creates a ring holding capacity records. Non-positive values
// use DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistorySize
	}
	return &History{records: make([]HistoryRecord, capacity)}
}

// Record appends rec, evicting the oldest entry when full.
func (h *History) Record(rec HistoryRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	capacity := len(h.records)
	if h.size < capacity {
		h.records[(h.start+h.size)%capacity] = rec
		h.size++
	} else {
		h.records[h.start] = rec
		h.start = (h.start + 1) % capacity
	}
	h.total++
}

// Last returns up to n most recent records, oldest first. n <= 0 returns all.
func (h *History) Last(n int) []HistoryRecord {
	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]HistoryRecord, n)
	capacity := len(h.records)
	offset := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.records[(h.start+offset+i)%capacity]
	}
	return out
}

// Events is Last without the bookkeeping fields.
func (h *History) Events(n int) []Event {
	records := h.Last(n)
	out := make([]Event, len(records))
	for i, rec := range records {
		out[i] = rec.Event
	}
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int { return h.size }

// Cap returns the ring capacity.
func (h *History) Cap() int { return len(h.records) }

// Total returns how many records were ever appended, evicted ones included.
func (h *History) Total() uint64 { return h.total }

// Clear drops every record but keeps the capacity.
func (h *History) Clear() {
	for i := range h.records {
		h.records[i] = HistoryRecord{}
	}
	h.start = 0
	h.size = 0
}
