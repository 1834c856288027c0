// Package workspace binds discovery, the pending queue, undo history and
// the recent tag cache to a single active root folder.
//
// Every mutation moves files first and commits in-memory state only after
// the filesystem call succeeded, so a failed move leaves the queue and
// history exactly as they were.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/triage/pkg/triage/discovery"
	"github.com/jamesainslie/triage/pkg/triage/history"
	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/triage/manifest"
	"github.com/jamesainslie/triage/pkg/triage/mover"
	"github.com/jamesainslie/triage/pkg/triage/queue"
	"github.com/jamesainslie/triage/pkg/triage/tags"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

// Journal receives a record of every completed move.
type Journal interface {
	LogClassify(root string, action types.MoveAction) (*manifest.Entry, error)
	LogUndo(root string, action types.MoveAction) (*manifest.Entry, error)
}

// Option configures a Session.
type Option func(*Session)

// WithMover replaces the default mover.
func WithMover(m *mover.Mover) Option {
	return func(s *Session) {
		s.mover = m
	}
}

// WithExtensions sets the image extension allow-list used for scans.
func WithExtensions(exts []string) Option {
	return func(s *Session) {
		s.extensions = exts
	}
}

// WithHistorySize sets the undo history capacity.
func WithHistorySize(n int) Option {
	return func(s *Session) {
		s.historySize = n
	}
}

// WithRecentTags sets the recent tag cache capacity.
func WithRecentTags(n int) Option {
	return func(s *Session) {
		s.tagCapacity = n
	}
}

// WithJournal records completed moves. Journal failures are logged only.
func WithJournal(j Journal) Option {
	return func(s *Session) {
		s.journal = j
	}
}

// Session is one user's triage state. It is safe for concurrent use;
// operations are serialized by an internal mutex.
type Session struct {
	mu sync.Mutex

	root    string
	queue   *queue.Queue
	history *history.Log
	tags    *tags.Cache

	// simulated holds sources a dry-run mover pretended to move. They stay
	// on disk, so scans must not bring them back.
	simulated map[types.ImagePath]struct{}

	mover       *mover.Mover
	journal     Journal
	extensions  []string
	historySize int
	tagCapacity int
	logger      *logging.Logger
}

// New returns a session with no active workspace.
func New(opts ...Option) *Session {
	s := &Session{
		extensions: discovery.DefaultExtensions,
		logger:     logging.Get("workspace"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mover == nil {
		s.mover = mover.New()
	}
	s.reset("", nil)
	return s
}

// reset must be called with s.mu held (or before the session is shared).
func (s *Session) reset(root string, pending []types.ImagePath) {
	s.root = root
	s.queue = queue.New(pending)
	s.history = history.New(s.historySize)
	s.tags = tags.New(s.tagCapacity)
	s.simulated = make(map[types.ImagePath]struct{})
}

// withoutSimulated drops paths whose move was only simulated.
func (s *Session) withoutSimulated(paths []types.ImagePath) []types.ImagePath {
	if len(s.simulated) == 0 {
		return paths
	}
	out := paths[:0]
	for _, p := range paths {
		if _, ok := s.simulated[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// Root returns the active root, or "" when no workspace is active.
func (s *Session) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Activate makes root the active workspace. Activating the root that is
// already active keeps the queue, history and tags. Any other root rebuilds
// the queue from disk and empties history and tags. If root cannot be
// scanned the previous state is kept and the error is returned.
func (s *Session) Activate(root string) error {
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("activating workspace: empty path: %w", types.ErrWorkspaceNotFound)
	}
	clean := normalizeRoot(root)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root != "" && s.root == clean {
		return nil
	}

	pending, err := discovery.Scan(clean, discovery.WithExtensions(s.extensions))
	if err != nil {
		return fmt.Errorf("activating workspace: %w", err)
	}

	previous := s.root
	s.reset(clean, pending)
	s.logger.Info("workspace activated", "root", clean, "previous", previous, "pending", len(pending))
	return nil
}

// Clear deactivates the workspace. Files already moved stay where they are.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root != "" {
		s.logger.Info("workspace cleared", "root", s.root)
	}
	s.reset("", nil)
}

// CurrentView returns a read-only projection of the session.
func (s *Session) CurrentView() types.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := types.View{
		Root:          s.root,
		Remaining:     s.queue.Len(),
		UndoAvailable: s.history.HasEntries(),
		RecentTags:    s.tags.List(),
	}
	if cur, ok := s.queue.Current(); ok {
		view.Image = types.StatImage(cur)
	}

	entries := s.history.Entries()
	view.History = make([]types.MoveAction, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		view.History = append(view.History, entries[i])
	}
	return view
}

// Pending returns a copy of the queue in triage order.
func (s *Session) Pending() []types.ImagePath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Items()
}

// Classify moves the current image into root/tag and advances the queue.
func (s *Session) Classify(tag string) (types.MoveAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := tags.Normalize(tag)
	if normalized == "" {
		return types.MoveAction{}, fmt.Errorf("classify: %w", types.ErrEmptyTag)
	}
	cur, ok := s.queue.Current()
	if s.root == "" || !ok {
		return types.MoveAction{}, fmt.Errorf("classify: %w", types.ErrNothingToClassify)
	}
	return s.classifyLocked(cur, normalized)
}

// ClassifyImage is Classify for an explicit image, as submitted by a form
// that may have been rendered before the queue changed. The image must
// still be pending; it need not be at the front.
func (s *Session) ClassifyImage(image types.ImagePath, tag string) (types.MoveAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := tags.Normalize(tag)
	if normalized == "" {
		return types.MoveAction{}, fmt.Errorf("classify: %w", types.ErrEmptyTag)
	}
	if s.root == "" || !s.queue.Contains(image) {
		return types.MoveAction{}, fmt.Errorf("classify %s: %w", image, types.ErrNothingToClassify)
	}
	return s.classifyLocked(image, normalized)
}

func (s *Session) classifyLocked(image types.ImagePath, tag string) (types.MoveAction, error) {
	if err := validateTag(tag); err != nil {
		return types.MoveAction{}, fmt.Errorf("classify: %w", err)
	}

	dest, err := s.mover.Move(image, filepath.Join(s.root, tag), "")
	if err != nil {
		s.logger.Warn("classify failed", "image", image, "tag", tag, "error", err)
		return types.MoveAction{}, fmt.Errorf("classify %s: %w", image.Base(), err)
	}

	action := types.MoveAction{
		Source:      image,
		Destination: dest,
		Tag:         tag,
		At:          time.Now(),
	}
	s.history.Record(action)
	if s.mover.DryRun() {
		s.simulated[image] = struct{}{}
	}
	if cur, _ := s.queue.Current(); cur == image {
		_, _ = s.queue.ClassifyCurrent()
	} else {
		s.queue.RemoveIfPresent(image)
	}
	s.tags.Touch(tag)

	s.logger.Info("classified", "image", image.Base(), "tag", tag, "remaining", s.queue.Len())
	if s.journal != nil {
		if _, err := s.journal.LogClassify(s.root, action); err != nil {
			s.logger.Warn("journal write failed", "error", err)
		}
	}
	return action, nil
}

// Skip sends the current image to the back of the queue.
func (s *Session) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Skip()
}

// Undo reverses the newest move. With an empty history nothing happens and
// Performed is false. When the moved file is no longer at its destination
// the history entry is dropped, the queue is left alone and Skipped is set.
// Any other move failure puts the entry back and returns the error.
func (s *Session) Undo() (types.UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.history.UndoLast()
	if !ok {
		return types.UndoResult{}, nil
	}

	if _, ok := s.simulated[action.Source]; ok {
		delete(s.simulated, action.Source)
		s.queue.PushFront(action.Source)
		s.logger.Info("dry run undo", "image", action.Source.Base(), "tag", action.Tag)
		return types.UndoResult{Performed: true, Action: action}, nil
	}

	if _, err := os.Lstat(string(action.Destination)); errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("undo target missing, dropping history entry", "destination", action.Destination)
		return types.UndoResult{Performed: true, Skipped: true, Action: action}, nil
	}

	back, err := s.mover.Move(action.Destination, action.Source.Dir(), action.Source.Base())
	if err != nil {
		if errors.Is(err, types.ErrSourceNotFound) {
			s.logger.Warn("undo target vanished, dropping history entry", "destination", action.Destination)
			return types.UndoResult{Performed: true, Skipped: true, Action: action}, nil
		}
		s.history.Restore(action)
		s.logger.Warn("undo failed", "destination", action.Destination, "error", err)
		return types.UndoResult{}, fmt.Errorf("undo %s: %w", action.Source.Base(), err)
	}

	s.queue.PushFront(back)
	s.logger.Info("undone", "image", back.Base(), "tag", action.Tag)
	if s.journal != nil {
		if _, err := s.journal.LogUndo(s.root, action); err != nil {
			s.logger.Warn("journal write failed", "error", err)
		}
	}
	return types.UndoResult{Performed: true, Action: action}, nil
}

// Reconcile rebuilds the queue from what is on disk. The current image
// stays first if it still exists, surviving images keep their relative
// order and newly found images are appended in file name order. History
// and tags are kept. Without an active workspace it does nothing.
func (s *Session) Reconcile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == "" {
		return nil
	}

	found, err := discovery.Scan(s.root, discovery.WithExtensions(s.extensions))
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	found = s.withoutSimulated(found)

	onDisk := make(map[types.ImagePath]bool, len(found))
	for _, p := range found {
		onDisk[p] = false
	}

	ordered := make([]types.ImagePath, 0, len(found))
	for _, p := range s.queue.Items() {
		if _, ok := onDisk[p]; ok {
			ordered = append(ordered, p)
			onDisk[p] = true
		}
	}
	for _, p := range found {
		if !onDisk[p] {
			ordered = append(ordered, p)
		}
	}

	before := s.queue.Len()
	s.queue = queue.New(ordered)
	if before != s.queue.Len() {
		s.logger.Info("reconciled", "root", s.root, "before", before, "after", s.queue.Len())
	}
	return nil
}

// validateTag rejects tags that would not name a single child of the root.
func validateTag(tag string) error {
	if tag == "." || tag == ".." ||
		strings.ContainsRune(tag, '/') ||
		strings.ContainsRune(tag, filepath.Separator) ||
		strings.ContainsRune(tag, 0) {
		return fmt.Errorf("%q: %w", tag, types.ErrInvalidTag)
	}
	return nil
}

func normalizeRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}
