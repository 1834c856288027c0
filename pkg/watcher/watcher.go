// Package watcher notices images appearing in or disappearing from active
// workspace roots so open sessions can reconcile without a manual rescan.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/triage/pkg/triage/discovery"
	"github.com/jamesainslie/triage/pkg/triage/logging"
)

// DefaultDebounce coalesces bursts of events for one root.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches workspace roots non-recursively. Tag folders are not
// watched; moves into them show up as removals from the root.
type Watcher struct {
	watcher  *fsnotify.Watcher
	matcher  *discovery.Matcher
	debounce time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	roots   map[string]bool
	timers  map[string]*time.Timer
	closed  bool
	pending sync.WaitGroup
}

// New creates a Watcher for images matching exts (nil means the defaults).
// A debounce of zero or less uses DefaultDebounce.
func New(exts []string, debounce time.Duration) (*Watcher, error) {
	if exts == nil {
		exts = discovery.DefaultExtensions
	}
	matcher, err := discovery.NewMatcher(exts)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		matcher:  matcher,
		debounce: debounce,
		logger:   logging.Get("watcher"),
		roots:    make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch starts watching root. Watching a root twice is a no-op.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.roots[absRoot] {
		return nil
	}
	if err := w.watcher.Add(absRoot); err != nil {
		w.logger.Warn("failed to add watch", "path", absRoot, "error", err)
		return err
	}
	w.roots[absRoot] = true
	w.logger.Debug("watching", "root", absRoot)
	return nil
}

// Unwatch stops watching root.
func (w *Watcher) Unwatch(root string) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.unwatchLocked(absRoot)
}

func (w *Watcher) unwatchLocked(root string) {
	if w.closed || !w.roots[root] {
		return
	}
	_ = w.watcher.Remove(root)
	delete(w.roots, root)
	if t, ok := w.timers[root]; ok {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.timers, root)
	}
}

// Sync makes the watched set exactly roots.
func (w *Watcher) Sync(roots []string) {
	want := make(map[string]bool, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			want[abs] = true
		}
	}

	w.mu.Lock()
	for root := range w.roots {
		if !want[root] {
			w.unwatchLocked(root)
		}
	}
	w.mu.Unlock()

	for root := range want {
		if err := w.Watch(root); err != nil {
			w.logger.Debug("skipping root", "root", root, "error", err)
		}
	}
}

// Watched returns the watched roots in sorted order.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.roots))
	for root := range w.roots {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

// Run starts the event loop and blocks until ctx is cancelled or the
// watcher is closed. onChange is called, at most once per debounce window,
// with the root whose set of images changed.
func (w *Watcher) Run(ctx context.Context, onChange func(root string)) {
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent schedules a callback when an eligible image directly under a
// watched root is created, removed or renamed.
func (w *Watcher) handleEvent(event fsnotify.Event, onChange func(root string)) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.matcher.Match(filepath.Base(event.Name)) {
		return
	}
	root := filepath.Dir(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.roots[root] {
		return
	}
	if t, ok := w.timers[root]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}

	var t *time.Timer
	w.pending.Add(1)
	t = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()

		w.mu.Lock()
		if w.timers[root] == t {
			delete(w.timers, root)
		}
		w.mu.Unlock()

		w.logger.Debug("images changed", "root", root)
		if onChange != nil {
			onChange(root)
		}
	})
	w.timers[root] = t
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	for root, t := range w.timers {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.timers, root)
	}
	w.mu.Unlock()
	w.pending.Wait()
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.roots = make(map[string]bool)
	return w.watcher.Close()
}
