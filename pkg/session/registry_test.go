package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/triage/pkg/session"
	"github.com/jamesainslie/triage/pkg/session/store"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

func photoRoot(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(root, n), []byte(n), 0o644))
	}
	return root
}

func TestGetRejectsInvalidID(t *testing.T) {
	r := session.NewRegistry(nil)
	_, err := r.Get("not-a-uuid")
	assert.ErrorIs(t, err, session.ErrInvalidID)
}

func TestGetReturnsSameSession(t *testing.T) {
	r := session.NewRegistry(nil)
	id := session.NewID()
	assert.True(t, session.ValidID(id))

	a, err := r.Get(id)
	require.NoError(t, err)
	b, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := r.Get(session.NewID())
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Len(t, r.IDs(), 2)
}

func TestSaveAndRestoreAcrossRegistries(t *testing.T) {
	root := photoRoot(t, "a.jpg", "b.jpg", "c.jpg")
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	id := session.NewID()
	first := session.NewRegistry(st)
	s, err := first.Get(id)
	require.NoError(t, err)
	require.NoError(t, s.Activate(root))
	_, err = s.Classify("cats")
	require.NoError(t, err)
	require.NoError(t, first.Save(id))

	// A file added while nothing was running is picked up on restore.
	require.NoError(t, os.WriteFile(filepath.Join(root, "d.jpg"), []byte("d"), 0o644))

	second := session.NewRegistry(st)
	restored, err := second.Get(id)
	require.NoError(t, err)

	view := restored.CurrentView()
	assert.Equal(t, root, view.Root)
	assert.Equal(t, 3, view.Remaining)
	assert.True(t, view.UndoAvailable)
	assert.Equal(t, []string{"cats"}, view.RecentTags)
}

func TestRestoreDropsVanishedRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "inbox")
	require.NoError(t, os.Mkdir(root, 0o755))
	st, err := store.Open("", store.InMemory())
	require.NoError(t, err)
	defer st.Close()

	id := session.NewID()
	require.NoError(t, st.Put(id, workspace.Snapshot{Root: root}))
	require.NoError(t, os.RemoveAll(root))

	s, err := session.NewRegistry(st).Get(id)
	require.NoError(t, err)
	assert.Empty(t, s.Root())
}

func TestForget(t *testing.T) {
	st, err := store.Open("", store.InMemory())
	require.NoError(t, err)
	defer st.Close()

	r := session.NewRegistry(st)
	id := session.NewID()
	s, err := r.Get(id)
	require.NoError(t, err)
	require.NoError(t, s.Activate(photoRoot(t, "a.jpg")))
	require.NoError(t, r.Save(id))

	require.NoError(t, r.Forget(id))
	_, err = st.Get(id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	fresh, err := r.Get(id)
	require.NoError(t, err)
	assert.Empty(t, fresh.Root())
}

func TestRootsAndReconcileRoot(t *testing.T) {
	rootA := photoRoot(t, "a.jpg")
	rootB := photoRoot(t, "b.jpg")
	r := session.NewRegistry(nil)

	for _, root := range []string{rootA, rootA, rootB} {
		s, err := r.Get(session.NewID())
		require.NoError(t, err)
		require.NoError(t, s.Activate(root))
	}
	_, err := r.Get(session.NewID())
	require.NoError(t, err)

	roots := r.Roots()
	assert.ElementsMatch(t, []string{rootA, rootB}, roots)

	require.NoError(t, os.WriteFile(filepath.Join(rootA, "new.jpg"), []byte("n"), 0o644))
	assert.Equal(t, 2, r.ReconcileRoot(rootA))

	for _, id := range r.IDs() {
		s, _ := r.Get(id)
		if s.Root() == rootA {
			assert.Equal(t, 2, s.CurrentView().Remaining)
		}
	}
}

func TestSaveAll(t *testing.T) {
	st, err := store.Open("", store.InMemory())
	require.NoError(t, err)
	defer st.Close()

	r := session.NewRegistry(st)
	for i := 0; i < 3; i++ {
		_, err := r.Get(session.NewID())
		require.NoError(t, err)
	}
	require.NoError(t, r.SaveAll())

	ids, err := st.List()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}
