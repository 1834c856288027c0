// Package session maps browser session IDs to live workspace sessions and
// persists them between requests and restarts.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jamesainslie/triage/pkg/session/store"
	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

// ErrInvalidID is returned for IDs that are not UUIDs.
var ErrInvalidID = errors.New("invalid session ID")

// Registry owns every live workspace session. A nil store keeps sessions
// in memory only.
type Registry struct {
	mu       sync.Mutex
	store    *store.Store
	sessions map[string]*workspace.Session
	opts     []workspace.Option
	logger   *logging.Logger
}

// NewRegistry creates a registry. opts are applied to every session it
// creates or restores.
func NewRegistry(st *store.Store, opts ...workspace.Option) *Registry {
	return &Registry{
		store:    st,
		sessions: make(map[string]*workspace.Session),
		opts:     opts,
		logger:   logging.Get("session"),
	}
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an ID produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the session for id, restoring it from the store or creating
// an empty one on first use. A restored session is reconciled with disk.
func (r *Registry) Get(id string) (*workspace.Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	s := r.restore(id)
	r.sessions[id] = s
	return s, nil
}

// restore must be called with r.mu held.
func (r *Registry) restore(id string) *workspace.Session {
	if r.store == nil {
		return workspace.New(r.opts...)
	}

	snap, err := r.store.Get(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("loading session failed, starting fresh", "id", id, "error", err)
		}
		return workspace.New(r.opts...)
	}

	s := workspace.FromSnapshot(*snap, r.opts...)
	if err := s.Reconcile(); err != nil {
		r.logger.Warn("restored workspace no longer readable", "id", id, "root", snap.Root, "error", err)
		s.Clear()
	}
	r.logger.Debug("session restored", "id", id, "root", s.Root())
	return s
}

// Save persists the session for id. Unknown IDs are ignored.
func (r *Registry) Save(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok || r.store == nil {
		return nil
	}
	if err := r.store.Put(id, s.Snapshot()); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	return nil
}

// SaveAll persists every live session.
func (r *Registry) SaveAll() error {
	var errs []error
	for _, id := range r.IDs() {
		if err := r.Save(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forget drops the session for id from memory and the store.
func (r *Registry) Forget(id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if r.store == nil {
		return nil
	}
	if err := r.store.Delete(id); err != nil {
		return fmt.Errorf("forgetting session %s: %w", id, err)
	}
	return nil
}

// IDs returns the live session IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Roots returns the distinct active roots across live sessions.
func (r *Registry) Roots() []string {
	seen := make(map[string]struct{})
	for _, s := range r.snapshotSessions() {
		if root := s.Root(); root != "" {
			seen[root] = struct{}{}
		}
	}
	roots := make([]string, 0, len(seen))
	for root := range seen {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// ReconcileRoot rescans every live session whose workspace is root and
// returns how many were reconciled.
func (r *Registry) ReconcileRoot(root string) int {
	n := 0
	for id, s := range r.snapshotSessionsByID() {
		if s.Root() != root {
			continue
		}
		if err := s.Reconcile(); err != nil {
			r.logger.Warn("reconcile failed", "id", id, "root", root, "error", err)
			continue
		}
		if err := r.Save(id); err != nil {
			r.logger.Warn("saving reconciled session failed", "id", id, "error", err)
		}
		n++
	}
	return n
}

func (r *Registry) snapshotSessions() []*workspace.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*workspace.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) snapshotSessionsByID() map[string]*workspace.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*workspace.Session, len(r.sessions))
	for id, s := range r.sessions {
		out[id] = s
	}
	return out
}
