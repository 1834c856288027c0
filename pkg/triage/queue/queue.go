// Package queue holds the ordered list of images still awaiting triage.
// The front element is the current image.
package queue

import (
	"fmt"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

// Queue is an ordered, duplicate-free sequence of pending images.
// It is not safe for concurrent use; the workspace session serializes access.
type Queue struct {
	items []types.ImagePath
}

// New builds a queue from paths, keeping the first occurrence of duplicates.
func New(paths []types.ImagePath) *Queue {
	q := &Queue{items: make([]types.ImagePath, 0, len(paths))}
	seen := make(map[types.ImagePath]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		q.items = append(q.items, p)
	}
	return q
}

// Current returns the front image without modifying the queue.
func (q *Queue) Current() (types.ImagePath, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	return q.items[0], true
}

// Skip rotates the queue left by one, sending the front to the back.
func (q *Queue) Skip() {
	if len(q.items) < 2 {
		return
	}
	front := q.items[0]
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = front
}

// ClassifyCurrent removes and returns the front image.
func (q *Queue) ClassifyCurrent() (types.ImagePath, error) {
	if len(q.items) == 0 {
		return "", fmt.Errorf("classify current: %w", types.ErrEmptyQueue)
	}
	front := q.items[0]
	q.items = q.items[1:]
	return front, nil
}

// RemoveIfPresent deletes p wherever it sits and reports whether it was found.
func (q *Queue) RemoveIfPresent(p types.ImagePath) bool {
	i := q.index(p)
	if i < 0 {
		return false
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true
}

// PushFront places p at the front. An already-queued p is moved, not duplicated.
func (q *Queue) PushFront(p types.ImagePath) {
	q.RemoveIfPresent(p)
	q.items = append([]types.ImagePath{p}, q.items...)
}

// Len returns the number of pending images.
func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the pending images in order.
func (q *Queue) Items() []types.ImagePath {
	out := make([]types.ImagePath, len(q.items))
	copy(out, q.items)
	return out
}

// Contains reports whether p is pending.
func (q *Queue) Contains(p types.ImagePath) bool {
	return q.index(p) >= 0
}

func (q *Queue) index(p types.ImagePath) int {
	for i, item := range q.items {
		if item == p {
			return i
		}
	}
	return -1
}
