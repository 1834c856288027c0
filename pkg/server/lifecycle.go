package server

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jamesainslie/triage/pkg/triage/logging"
)

// ErrAlreadyRunning is returned when another triage server owns the PID file.
var ErrAlreadyRunning = errors.New("triage server already running")

// WritePIDFile writes the current process ID to path.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile reads a PID from path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(path string) error {
	return os.Remove(path)
}

// IsProcessRunning checks if a process with the given PID is running.
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// RecoverFromStale cleans up the PID file and session store lock left by a
// server that died without shutting down. It returns ErrAlreadyRunning if
// the recorded process is still alive. A missing or unreadable PID file
// means there is nothing to recover.
func RecoverFromStale(pidPath, storePath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return nil //nolint:nilerr // missing/invalid PID file is not an error condition
	}
	if pid != os.Getpid() && IsProcessRunning(pid) {
		return ErrAlreadyRunning
	}

	logging.Get("server").Warn("cleaning up stale server files", "stale_pid", pid)
	_ = os.Remove(pidPath)
	if storePath != "" {
		_ = os.Remove(filepath.Join(storePath, "LOCK"))
	}
	return nil
}
