// Package trace keeps the explainability log: one immutable entry per
// recompute batch, retained in a bounded ring so a long-lived model cannot
// grow without limit.
package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the ring size used when a model does not override it.
const DefaultCapacity = 256

// Entry records what one input change caused: who triggered it, which nodes
// were recomputed, and how long the batch took. Entries are never mutated
// after being appended.
type Entry struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	TriggerNodeID string        `json:"trigger_node_id"`
	TriggerUserID string        `json:"trigger_user_id"`
	AffectedNodes []string      `json:"affected_nodes"`
	Duration      time.Duration `json:"-"`
	DurationMS    float64       `json:"duration_ms"`
}

// Log is a fixed-capacity append-only ring of entries.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	filled  bool
}

// NewLog creates a log holding at most capacity entries; older entries are
// overwritten once the ring is full. A non-positive capacity falls back to
// DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{entries: make([]Entry, capacity)}
}

// Append records one batch. The entry id and timestamp are assigned here so
// callers only supply the batch facts.
func (l *Log) Append(triggerNode, actor string, affected []string, duration time.Duration) Entry {
	entry := Entry{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		TriggerNodeID: triggerNode,
		TriggerUserID: actor,
		AffectedNodes: append([]string(nil), affected...),
		Duration:      duration,
		DurationMS:    float64(duration) / float64(time.Millisecond),
	}

	l.mu.Lock()
	l.entries[l.next] = entry
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.filled = true
	}
	l.mu.Unlock()
	return entry
}

// Recent returns up to limit entries, most recent first. A non-positive limit
// returns everything retained.
func (l *Log) Recent(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.filled {
		size = len(l.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := l.next - i
		if idx < 0 {
			idx += len(l.entries)
		}
		out = append(out, l.entries[idx])
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.filled {
		return len(l.entries)
	}
	return l.next
}
