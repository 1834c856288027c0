package mover

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

func crossDevice(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
}

func TestMoveFallsBackToCopyAcrossDevices(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0o644))

	m := New()
	m.rename = crossDevice

	got, err := m.Move(types.ImagePath(src), filepath.Join(root, "dogs"), "")
	require.NoError(t, err)

	assert.NoFileExists(t, src)
	data, err := os.ReadFile(string(got))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
}

func TestMoveRenameErrorIsReturned(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0o644))

	m := New()
	m.rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EACCES}
	}

	_, err := m.Move(types.ImagePath(src), filepath.Join(root, "dogs"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EACCES)
	assert.FileExists(t, src)
}

func TestMoveAcrossDevicesNeverOverwrites(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.jpg")
	target := filepath.Join(root, "dogs", "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0o644))

	m := New()
	m.rename = func(oldpath, newpath string) error {
		// Another writer claims the target after the conflict check.
		require.NoError(t, os.WriteFile(newpath, []byte("other"), 0o644))
		return crossDevice(oldpath, newpath)
	}

	_, err := m.Move(types.ImagePath(src), filepath.Dir(target), "")
	assert.ErrorIs(t, err, types.ErrDestinationConflict)
	assert.FileExists(t, src)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}
