package workspace

import (
	"slices"
	"time"

	"github.com/jamesainslie/triage/pkg/triage/queue"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

// Snapshot is the serializable state of a Session.
type Snapshot struct {
	Root      string             `json:"root"`
	Queue     []types.ImagePath  `json:"queue"`
	History   []types.MoveAction `json:"history"`
	Tags      []string           `json:"tags"`
	Simulated []types.ImagePath  `json:"simulated,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Root:      s.root,
		Queue:     s.queue.Items(),
		History:   s.history.Entries(),
		Tags:      s.tags.List(),
		UpdatedAt: time.Now().UTC(),
	}
	for p := range s.simulated {
		snap.Simulated = append(snap.Simulated, p)
	}
	slices.Sort(snap.Simulated)
	return snap
}

// FromSnapshot rebuilds a session. The options apply as for New; history
// and tags beyond the configured capacities are truncated, oldest first.
// The queue is taken as-is; call Reconcile to resync it with disk.
func FromSnapshot(snap Snapshot, opts ...Option) *Session {
	s := New(opts...)
	if snap.Root == "" {
		return s
	}

	s.root = snap.Root
	s.queue = queue.New(snap.Queue)
	for _, action := range snap.History {
		s.history.Record(action)
	}
	for i := len(snap.Tags) - 1; i >= 0; i-- {
		s.tags.Touch(snap.Tags[i])
	}
	for _, p := range snap.Simulated {
		s.simulated[p] = struct{}{}
	}
	return s
}
