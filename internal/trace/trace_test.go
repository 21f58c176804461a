package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsIdentity(t *testing.T) {
	l := NewLog(8)
	entry := l.Append("price", "alice", []string{"revenue"}, 1500*time.Microsecond)

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, "price", entry.TriggerNodeID)
	assert.Equal(t, "alice", entry.TriggerUserID)
	assert.Equal(t, []string{"revenue"}, entry.AffectedNodes)
	assert.InDelta(t, 1.5, entry.DurationMS, 0.001)
}

func TestRecentNewestFirst(t *testing.T) {
	l := NewLog(8)
	l.Append("a", "u", nil, 0)
	l.Append("b", "u", nil, 0)
	l.Append("c", "u", nil, 0)

	entries := l.Recent(2)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].TriggerNodeID)
	assert.Equal(t, "b", entries[1].TriggerNodeID)

	assert.Len(t, l.Recent(0), 3)
	assert.Len(t, l.Recent(100), 3)
}

func TestRingOverwritesOldest(t *testing.T) {
	l := NewLog(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		l.Append(id, "u", nil, 0)
	}

	assert.Equal(t, 3, l.Len())
	entries := l.Recent(0)
	require.Len(t, entries, 3)
	assert.Equal(t, "e", entries[0].TriggerNodeID)
	assert.Equal(t, "d", entries[1].TriggerNodeID)
	assert.Equal(t, "c", entries[2].TriggerNodeID)
}

func TestEntriesAreImmutableCopies(t *testing.T) {
	l := NewLog(4)
	affected := []string{"x"}
	l.Append("a", "u", affected, 0)
	affected[0] = "mutated"

	assert.Equal(t, []string{"x"}, l.Recent(1)[0].AffectedNodes)
}
