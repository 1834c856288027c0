package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(nil, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

type recorder struct {
	mu    sync.Mutex
	roots []string
}

func (r *recorder) onChange(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = append(r.roots, root)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roots)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatchIsIdempotent(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Watch(root); err != nil {
		t.Fatalf("second Watch() error = %v", err)
	}
	if got := w.Watched(); len(got) != 1 || got[0] != root {
		t.Errorf("Watched() = %v, want [%s]", got, root)
	}

	w.Unwatch(root)
	if got := w.Watched(); len(got) != 0 {
		t.Errorf("Watched() after Unwatch = %v", got)
	}
}

func TestWatchMissingRoot(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Watch(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Watch() on missing root should fail")
	}
}

func TestSync(t *testing.T) {
	w := newTestWatcher(t)
	a, b, c := t.TempDir(), t.TempDir(), t.TempDir()

	w.Sync([]string{a, b})
	if got := w.Watched(); len(got) != 2 {
		t.Fatalf("Watched() = %v, want 2 roots", got)
	}

	w.Sync([]string{b, c})
	got := w.Watched()
	for _, root := range got {
		if root == a {
			t.Errorf("root %s should have been unwatched", a)
		}
	}
	if len(got) != 2 {
		t.Errorf("Watched() = %v, want 2 roots", got)
	}
}

func TestHandleEventFilters(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	rec := &recorder{}

	ignored := []fsnotify.Event{
		{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Create},
		{Name: filepath.Join(root, ".hidden.jpg"), Op: fsnotify.Create},
		{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Write},
		{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Chmod},
		{Name: filepath.Join(root, "cats", "a.jpg"), Op: fsnotify.Create},
		{Name: filepath.Join(t.TempDir(), "a.jpg"), Op: fsnotify.Create},
	}
	for _, ev := range ignored {
		w.handleEvent(ev, rec.onChange)
	}
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("ignored events triggered %d callbacks", rec.count())
	}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Remove}, rec.onChange)
	waitFor(t, func() bool { return rec.count() == 1 })
}

func TestDebounceCoalescesBursts(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	rec := &recorder{}

	for i := 0; i < 10; i++ {
		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Create}, rec.onChange)
	}
	waitFor(t, func() bool { return rec.count() >= 1 })
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("burst produced %d callbacks, want 1", rec.count())
	}
}

func TestRunDeliversRealEvents(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, rec.onChange)
		close(done)
	}()

	if err := os.WriteFile(filepath.Join(root, "new.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count() >= 1 })

	rec.mu.Lock()
	got := rec.roots[0]
	rec.mu.Unlock()
	if got != root {
		t.Errorf("callback root = %s, want %s", got, root)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(nil, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := w.Watch(t.TempDir()); err != nil {
		t.Errorf("Watch() after Close() = %v, want nil", err)
	}
}
