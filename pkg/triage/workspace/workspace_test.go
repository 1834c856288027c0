package workspace_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/triage/pkg/triage/manifest"
	"github.com/jamesainslie/triage/pkg/triage/mover"
	"github.com/jamesainslie/triage/pkg/triage/types"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

func setupRoot(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(root, n), []byte(n), 0o644))
	}
	return root
}

func img(root, name string) types.ImagePath {
	return types.ImagePath(filepath.Join(root, name))
}

func pendingNames(s *workspace.Session) []string {
	var out []string
	for _, p := range s.Pending() {
		out = append(out, p.Base())
	}
	return out
}

func activated(t *testing.T, root string, opts ...workspace.Option) *workspace.Session {
	t.Helper()
	s := workspace.New(opts...)
	require.NoError(t, s.Activate(root))
	return s
}

func TestScenarioClassifyAndUndo(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png")
	s := activated(t, root)

	action, err := s.Classify("cat")
	require.NoError(t, err)

	assert.Equal(t, img(root, "a.jpg"), action.Source)
	assert.Equal(t, img(root, "cat/a.jpg"), action.Destination)
	assert.FileExists(t, filepath.Join(root, "cat", "a.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "a.jpg"))
	assert.Equal(t, []string{"b.png"}, pendingNames(s))

	view := s.CurrentView()
	assert.Equal(t, 1, view.Remaining)
	assert.True(t, view.UndoAvailable)
	assert.Equal(t, []string{"cat"}, view.RecentTags)
	require.Len(t, view.History, 1)

	res, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, res.Performed)
	assert.False(t, res.Skipped)

	assert.FileExists(t, filepath.Join(root, "a.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "cat", "a.jpg"))
	assert.Equal(t, []string{"a.jpg", "b.png"}, pendingNames(s))
	assert.False(t, s.CurrentView().UndoAvailable)
}

func TestScenarioSkip(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png", "c.jpg")
	s := activated(t, root)

	s.Skip()

	assert.Equal(t, []string{"b.png", "c.jpg", "a.jpg"}, pendingNames(s))
	view := s.CurrentView()
	require.NotNil(t, view.Image)
	assert.Equal(t, "b.png", view.Image.Name)
}

func TestSkipIsRotation(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	s := activated(t, root)
	initial := pendingNames(s)

	for k := 1; k <= 9; k++ {
		s.Skip()
		n := len(initial)
		want := append(append([]string{}, initial[k%n:]...), initial[:k%n]...)
		assert.Equal(t, want, pendingNames(s), "after %d skips", k)
	}
}

func TestSkipOnEmptyAndInactive(t *testing.T) {
	s := workspace.New()
	s.Skip()
	assert.Empty(t, s.Pending())

	s = activated(t, setupRoot(t))
	s.Skip()
	assert.Empty(t, s.Pending())
}

func TestScenarioWhitespaceTag(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png")
	s := activated(t, root)
	_, err := s.Classify("old")
	require.NoError(t, err)
	before := s.CurrentView()

	_, err = s.Classify("   ")
	assert.ErrorIs(t, err, types.ErrEmptyTag)
	assert.Equal(t, before, s.CurrentView())
	assert.FileExists(t, filepath.Join(root, "b.png"))
}

func TestEmptyTagCheckedFirst(t *testing.T) {
	s := workspace.New()
	_, err := s.Classify("")
	assert.ErrorIs(t, err, types.ErrEmptyTag)
}

func TestScenarioSwitchRoot(t *testing.T) {
	parent := t.TempDir()
	root2023 := filepath.Join(parent, "2023")
	root2024 := filepath.Join(parent, "2024")
	require.NoError(t, os.MkdirAll(root2023, 0o755))
	require.NoError(t, os.MkdirAll(root2024, 0o755))
	for _, p := range []string{filepath.Join(root2023, "a.jpg"), filepath.Join(root2023, "b.jpg"), filepath.Join(root2024, "x.png")} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	s := activated(t, root2023)
	_, err := s.Classify("beach")
	require.NoError(t, err)

	require.NoError(t, s.Activate(root2024))
	view := s.CurrentView()
	assert.Equal(t, root2024, view.Root)
	assert.False(t, view.UndoAvailable)
	assert.Empty(t, view.RecentTags)
	assert.Equal(t, []string{"x.png"}, pendingNames(s))

	// Moves from the previous workspace stay on disk.
	assert.FileExists(t, filepath.Join(root2023, "beach", "a.jpg"))
}

func TestActivateSameRootKeepsState(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg", "c.jpg")
	s := activated(t, root)
	_, err := s.Classify("dogs")
	require.NoError(t, err)
	s.Skip()
	before := s.CurrentView()

	require.NoError(t, s.Activate(root))
	require.NoError(t, s.Activate(root+string(filepath.Separator)))
	require.NoError(t, s.Activate(filepath.Join(root, "dogs", "..")))

	assert.Equal(t, before, s.CurrentView())
}

func TestActivateBadRootKeepsPreviousState(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	s := activated(t, root)
	_, err := s.Classify("cats")
	require.NoError(t, err)
	before := s.CurrentView()

	err = s.Activate(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, types.ErrWorkspaceNotFound)
	assert.ErrorIs(t, s.Activate("  "), types.ErrWorkspaceNotFound)
	assert.Equal(t, before, s.CurrentView())
}

func TestClassifyNothingToClassify(t *testing.T) {
	_, err := workspace.New().Classify("cats")
	assert.ErrorIs(t, err, types.ErrNothingToClassify)

	s := activated(t, setupRoot(t))
	_, err = s.Classify("cats")
	assert.ErrorIs(t, err, types.ErrNothingToClassify)
	assert.True(t, s.CurrentView().Done())
}

func TestClassifyInvalidTag(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	s := activated(t, root)

	for _, tag := range []string{".", "..", "../outside", "a/b"} {
		_, err := s.Classify(tag)
		assert.ErrorIs(t, err, types.ErrInvalidTag, "tag %q", tag)
	}
	assert.Equal(t, []string{"a.jpg"}, pendingNames(s))
	assert.False(t, s.CurrentView().UndoAvailable)
}

func TestClassifyNormalizesTag(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	s := activated(t, root)

	action, err := s.Classify("  Beach ")
	require.NoError(t, err)
	assert.Equal(t, "beach", action.Tag)
	assert.FileExists(t, filepath.Join(root, "beach", "a.jpg"))
}

func TestClassifyConflictLeavesStateUntouched(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cats"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cats", "a.jpg"), []byte("existing"), 0o644))
	s := activated(t, root)
	before := s.CurrentView()

	_, err := s.Classify("cats")
	assert.ErrorIs(t, err, types.ErrDestinationConflict)
	assert.Equal(t, before, s.CurrentView())

	data, err := os.ReadFile(filepath.Join(root, "cats", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestClassifySourceVanished(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	s := activated(t, root)
	require.NoError(t, os.Remove(filepath.Join(root, "a.jpg")))
	before := s.CurrentView()

	_, err := s.Classify("cats")
	assert.ErrorIs(t, err, types.ErrSourceNotFound)
	assert.Equal(t, before.Remaining, s.CurrentView().Remaining)
	assert.False(t, s.CurrentView().UndoAvailable)

	require.NoError(t, s.Reconcile())
	assert.Equal(t, []string{"b.jpg"}, pendingNames(s))
}

func TestClassifyDirectoryCreateFailure(t *testing.T) {
	root := setupRoot(t, "a.jpg", "cats")
	s := activated(t, root)

	_, err := s.Classify("cats")
	assert.ErrorIs(t, err, types.ErrDirectoryCreateFailed)
	assert.Equal(t, []string{"a.jpg"}, pendingNames(s))
	assert.Empty(t, s.CurrentView().RecentTags)
}

func TestClassifyImage(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg", "c.jpg")
	s := activated(t, root)

	_, err := s.ClassifyImage(img(root, "b.jpg"), "dogs")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, pendingNames(s))

	_, err = s.ClassifyImage(img(root, "b.jpg"), "dogs")
	assert.ErrorIs(t, err, types.ErrNothingToClassify)

	_, err = s.ClassifyImage(img(root, "a.jpg"), " ")
	assert.ErrorIs(t, err, types.ErrEmptyTag)
}

func TestClassifyProperties(t *testing.T) {
	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("img%02d.jpg", i)
	}
	root := setupRoot(t, names...)
	s := activated(t, root)

	for i := 0; i < 12; i++ {
		before := s.CurrentView()
		tag := fmt.Sprintf("t%d", i%3)

		_, err := s.Classify(tag)
		require.NoError(t, err)

		after := s.CurrentView()
		assert.Equal(t, before.Remaining-1, after.Remaining)
		assert.Equal(t, min(len(before.History)+1, 10), len(after.History))
		assert.Equal(t, tag, after.RecentTags[0])
	}

	undone := 0
	for {
		res, err := s.Undo()
		require.NoError(t, err)
		if !res.Performed {
			break
		}
		undone++
	}
	assert.Equal(t, 10, undone)
	assert.Equal(t, 10, s.CurrentView().Remaining)
}

func TestUndoEmptyHistoryIsNoop(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	s := activated(t, root)
	s.Skip()
	before := s.CurrentView()

	res, err := s.Undo()
	require.NoError(t, err)
	assert.False(t, res.Performed)
	assert.Equal(t, before, s.CurrentView())

	res, err = workspace.New().Undo()
	require.NoError(t, err)
	assert.False(t, res.Performed)
}

func TestUndoDestinationMissingIsSoftNoop(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	s := activated(t, root)
	_, err := s.Classify("cats")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "cats", "a.jpg")))

	res, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, res.Performed)
	assert.True(t, res.Skipped)
	assert.Equal(t, []string{"b.jpg"}, pendingNames(s))
	assert.False(t, s.CurrentView().UndoAvailable)
}

func TestUndoConflictRestoresHistory(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	s := activated(t, root)
	_, err := s.Classify("cats")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("new arrival"), 0o644))
	before := s.CurrentView()

	_, err = s.Undo()
	assert.ErrorIs(t, err, types.ErrDestinationConflict)
	assert.Equal(t, before, s.CurrentView())
	assert.FileExists(t, filepath.Join(root, "cats", "a.jpg"))
}

func TestUndoAfterSkipPutsImageFirst(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg", "c.jpg")
	s := activated(t, root)
	_, err := s.Classify("x")
	require.NoError(t, err)
	s.Skip()

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "c.jpg", "b.jpg"}, pendingNames(s))
}

func dryRun() workspace.Option {
	return workspace.WithMover(mover.New(mover.WithDryRun(true)))
}

func TestDryRunClassifyAndUndo(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png")
	s := activated(t, root, dryRun())

	_, err := s.Classify("cat")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "a.jpg"))
	assert.NoDirExists(t, filepath.Join(root, "cat"))
	assert.Equal(t, []string{"b.png"}, pendingNames(s))

	res, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, res.Performed)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{"a.jpg", "b.png"}, pendingNames(s))
	assert.False(t, s.CurrentView().UndoAvailable)
}

func TestDryRunReconcileKeepsClassifiedOut(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png")
	s := activated(t, root, dryRun())
	_, err := s.Classify("cat")
	require.NoError(t, err)

	require.NoError(t, s.Reconcile())
	assert.Equal(t, []string{"b.png"}, pendingNames(s))

	_, err = s.Undo()
	require.NoError(t, err)
	require.NoError(t, s.Reconcile())
	assert.Equal(t, []string{"a.jpg", "b.png"}, pendingNames(s))
}

func TestReconcile(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	s := activated(t, root)
	s.Skip()
	s.Skip() // c, d, a, b

	require.NoError(t, os.Remove(filepath.Join(root, "d.jpg")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "0new.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "z.png"), []byte("x"), 0o644))

	require.NoError(t, s.Reconcile())
	assert.Equal(t, []string{"c.jpg", "a.jpg", "b.jpg", "0new.jpg", "z.png"}, pendingNames(s))

	require.NoError(t, workspace.New().Reconcile())
}

func TestReconcileKeepsHistoryAndTags(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	s := activated(t, root)
	_, err := s.Classify("cats")
	require.NoError(t, err)

	require.NoError(t, s.Reconcile())
	view := s.CurrentView()
	assert.True(t, view.UndoAvailable)
	assert.Equal(t, []string{"cats"}, view.RecentTags)
	assert.Equal(t, 1, view.Remaining)
}

func TestReconcileMissingRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "photos")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0o644))
	s := activated(t, root)
	require.NoError(t, os.RemoveAll(root))

	assert.ErrorIs(t, s.Reconcile(), types.ErrWorkspaceNotFound)
	assert.Equal(t, 1, s.CurrentView().Remaining)
}

func TestClear(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	s := activated(t, root)
	s.Clear()

	view := s.CurrentView()
	assert.Empty(t, view.Root)
	assert.Nil(t, view.Image)
	assert.False(t, view.Done())
}

func TestCapacityOptions(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg", "c.jpg")
	s := activated(t, root, workspace.WithHistorySize(1), workspace.WithRecentTags(2))

	for _, tag := range []string{"x", "y", "z"} {
		_, err := s.Classify(tag)
		require.NoError(t, err)
	}
	view := s.CurrentView()
	assert.Len(t, view.History, 1)
	assert.Equal(t, []string{"z", "y"}, view.RecentTags)
}

func TestJournalRecordsMoves(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	journal, err := manifest.New(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)
	s := activated(t, root, workspace.WithJournal(journal))

	_, err = s.Classify("cats")
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	entries, err := journal.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	ops := []manifest.OperationType{entries[0].Operation, entries[1].Operation}
	assert.ElementsMatch(t, []manifest.OperationType{manifest.OpClassify, manifest.OpUndo}, ops)
}

func TestConcurrentClassifyIsSerialized(t *testing.T) {
	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("%02d.jpg", i)
	}
	root := setupRoot(t, names...)
	s := activated(t, root, workspace.WithHistorySize(50))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Classify("bulk")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, s.CurrentView().Remaining)
	entries, err := os.ReadDir(filepath.Join(root, "bulk"))
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}
