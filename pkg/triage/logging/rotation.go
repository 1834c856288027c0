package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// RotationConfig configures log file rotation behavior.
type RotationConfig struct {
	// MaxSize is the maximum size in bytes before rotation. Zero uses 10MB.
	MaxSize int64

	// MaxAge is the number of days to retain rotated files. Zero keeps them.
	MaxAge int

	// MaxBackups is the number of rotated files to keep. Zero keeps all.
	MaxBackups int

	// Daily rotates the log file when the day changes.
	Daily bool
}

// DefaultRotationConfig returns the rotation defaults.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxAge:     30,               // days
		MaxBackups: 5,
		Daily:      true,
	}
}

// RotatingWriter is an io.WriteCloser that rotates its file by size and
// day. Writes take an flock so several triage processes can share a log.
type RotatingWriter struct {
	path       string
	cfg        RotationConfig
	mu         sync.Mutex
	file       *os.File
	size       int64
	lastRotate time.Time
}

// NewRotatingWriter opens (creating parents as needed) the log at path.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	// Apply defaults for zero values
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{
		path:       path,
		cfg:        cfg,
		lastRotate: time.Now(),
	}
	if err := w.openFile(); err != nil {
		return nil, err
	}

	// Clean up old files on startup
	w.cleanup()

	return w, nil
}

// Write appends p to the log, rotating first when needed.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	// Check if rotation is needed
	if w.shouldRotate(int64(len(p))) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	// Acquire file lock for safe multi-process access
	fd := int(w.file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", err)
	}
	defer func() { _ = unix.Flock(fd, unix.LOCK_UN) }()

	n, err := w.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	w.size += int64(n)
	return n, nil
}

// Close syncs and closes the log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// openFile opens or creates the log file and picks up its current size.
func (w *RotatingWriter) openFile() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	// An existing log counts as last rotated when it was last written.
	if info.Size() > 0 {
		w.lastRotate = info.ModTime()
	}
	return nil
}

// shouldRotate checks if the log file should be rotated before a write of
// writeSize bytes.
func (w *RotatingWriter) shouldRotate(writeSize int64) bool {
	// Size-based rotation
	if w.size > 0 && w.size+writeSize > w.cfg.MaxSize {
		return true
	}
	// Daily rotation: rotate if we crossed midnight since last rotation
	if w.cfg.Daily {
		now := time.Now()
		if now.YearDay() != w.lastRotate.YearDay() || now.Year() != w.lastRotate.Year() {
			return true
		}
	}
	return false
}

// rotate renames the current log aside and opens a fresh one.
// Must be called with w.mu held.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("closing current file: %w", err)
		}
		w.file = nil
	}

	// Generate rotated filename with timestamp
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	rotatedPath := fmt.Sprintf("%s.%s%s", base, time.Now().Format("2006-01-02-150405.000"), ext)

	// Another process may have rotated it already
	if _, err := os.Stat(w.path); err == nil {
		if err := os.Rename(w.path, rotatedPath); err != nil {
			return fmt.Errorf("renaming log file: %w", err)
		}
	}

	if err := w.openFile(); err != nil {
		return err
	}
	w.lastRotate = time.Now()

	// Clean up old files after rotation
	w.cleanup()
	return nil
}

// cleanup removes rotated files beyond MaxBackups or older than MaxAge.
// Errors are ignored.
func (w *RotatingWriter) cleanup() {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return // ignore cleanup errors
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	var rotated []logFile

	// Find all rotated log files
	for _, entry := range entries {
		name := entry.Name()
		// Skip the main log file
		if entry.IsDir() || name == base {
			continue
		}
		// Match pattern: prefix.timestamp.ext (e.g., triage.2024-01-20-150405.000.log)
		if !strings.HasPrefix(name, prefix+".") || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		rotated = append(rotated, logFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	// Sort by modification time, newest first
	sort.Slice(rotated, func(i, j int) bool {
		return rotated[i].modTime.After(rotated[j].modTime)
	})

	maxAge := time.Duration(w.cfg.MaxAge) * 24 * time.Hour
	for i, lf := range rotated {
		tooMany := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		tooOld := w.cfg.MaxAge > 0 && time.Since(lf.modTime) > maxAge
		if tooMany || tooOld {
			_ = os.Remove(lf.path) // ignore errors during cleanup
		}
	}
}
