// Package history keeps a bounded log of completed moves for undo.
package history

import "github.com/jamesainslie/triage/pkg/triage/types"

// DefaultCapacity is the number of moves kept when no capacity is given.
const DefaultCapacity = 10

// Log is a bounded LIFO of move actions. The oldest entry is evicted once
// the log is full. It is not safe for concurrent use.
type Log struct {
	capacity int
	entries  []types.MoveAction
}

// New returns an empty log. A capacity of zero or less uses DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Capacity returns the maximum number of entries kept.
func (l *Log) Capacity() int {
	return l.capacity
}

// Record appends an action, evicting the oldest one beyond capacity.
func (l *Log) Record(action types.MoveAction) {
	l.entries = append(l.entries, action)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// UndoLast removes and returns the newest action.
func (l *Log) UndoLast() (types.MoveAction, bool) {
	if len(l.entries) == 0 {
		return types.MoveAction{}, false
	}
	last := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return last, true
}

// Restore pushes an action popped by UndoLast back onto the log.
func (l *Log) Restore(action types.MoveAction) {
	l.Record(action)
}

// Peek returns the newest action without removing it.
func (l *Log) Peek() (types.MoveAction, bool) {
	if len(l.entries) == 0 {
		return types.MoveAction{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// HasEntries reports whether anything can be undone.
func (l *Log) HasEntries() bool {
	return len(l.entries) > 0
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []types.MoveAction {
	out := make([]types.MoveAction, len(l.entries))
	copy(out, l.entries)
	return out
}
