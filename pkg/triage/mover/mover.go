// Package mover relocates image files on disk without ever overwriting.
package mover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/otiai10/copy"

	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

// Option configures a Mover.
type Option func(*Mover)

// WithDryRun makes Move report the target without touching disk.
func WithDryRun(dryRun bool) Option {
	return func(m *Mover) {
		m.dryRun = dryRun
	}
}

// Mover performs single-file moves. The zero value is not usable; call New.
type Mover struct {
	dryRun bool
	rename func(oldpath, newpath string) error
	logger *logging.Logger
}

// New creates a Mover.
func New(opts ...Option) *Mover {
	m := &Mover{
		rename: renameNoReplace,
		logger: logging.Get("mover"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DryRun reports whether the mover leaves the filesystem untouched.
func (m *Mover) DryRun() bool {
	return m.dryRun
}

// Move relocates source to destDir/destName, creating destDir if needed.
// An empty destName keeps the source file name. When the source is gone but
// the target already exists the move is treated as already done and the
// target is returned with a nil error.
func (m *Mover) Move(source types.ImagePath, destDir, destName string) (types.ImagePath, error) {
	if destName == "" {
		destName = source.Base()
	}
	target := types.ImagePath(filepath.Join(destDir, destName))

	srcInfo, srcErr := os.Lstat(string(source))
	_, dstErr := os.Lstat(string(target))
	targetExists := dstErr == nil

	switch {
	case errors.Is(srcErr, os.ErrNotExist) && targetExists:
		m.logger.Debug("move already applied", "from", source, "to", target)
		return target, nil
	case srcErr != nil:
		return "", fmt.Errorf("moving %s: %w", source, types.ErrSourceNotFound)
	case !srcInfo.Mode().IsRegular():
		return "", fmt.Errorf("moving %s: not a regular file: %w", source, types.ErrSourceNotFound)
	case targetExists:
		return "", fmt.Errorf("moving %s to %s: %w", source, target, types.ErrDestinationConflict)
	}

	if m.dryRun {
		m.logger.Info("dry run move", "from", source, "to", target)
		return target, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w: %w", destDir, types.ErrDirectoryCreateFailed, err)
	}

	if err := m.rename(string(source), string(target)); err != nil {
		if errors.Is(err, syscall.EEXIST) {
			return "", fmt.Errorf("moving %s to %s: %w", source, target, types.ErrDestinationConflict)
		}
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("renaming %s: %w", source, err)
		}
		if err := copyAcross(string(source), string(target)); err != nil {
			return "", err
		}
		m.logger.Debug("moved across devices", "from", source, "to", target)
	}

	m.logger.Info("moved image", "from", source, "to", target)
	return target, nil
}

// copyAcross copies source to target, syncs it, then removes source.
// The target is reserved with O_EXCL first so a file that appeared since
// the conflict check is never overwritten. A partial copy is removed on
// failure.
func copyAcross(source, target string) error {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("moving %s to %s: %w", source, target, types.ErrDestinationConflict)
		}
		return fmt.Errorf("reserving %s: %w", target, err)
	}
	_ = f.Close()

	err = copy.Copy(source, target, copy.Options{
		Sync:          true,
		PreserveTimes: true,
	})
	if err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("copying %s to %s: %w", source, target, err)
	}
	if err := os.Remove(source); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("removing %s after copy: %w", source, err)
	}
	return nil
}
