package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

// ErrEntryNotFound is returned by Get for unknown IDs.
var ErrEntryNotFound = errors.New("journal entry not found")

// Manifest writes one JSON file per move into a directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a Manifest rooted at dir. The directory is created lazily.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the journal directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// EnsureDir creates the journal directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogClassify journals a classify move under root.
func (m *Manifest) LogClassify(root string, action types.MoveAction) (*Entry, error) {
	return m.log(OpClassify, root, action)
}

// LogUndo journals the reverse of action. Source and destination are
// recorded in the direction the file actually travelled.
func (m *Manifest) LogUndo(root string, action types.MoveAction) (*Entry, error) {
	reversed := types.MoveAction{
		Source:      action.Destination,
		Destination: action.Source,
		Tag:         action.Tag,
		At:          action.At,
	}
	return m.log(OpUndo, root, reversed)
}

func (m *Manifest) log(op OperationType, root string, action types.MoveAction) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry{
		ID:          generateID(op),
		Timestamp:   time.Now().UTC(),
		Operation:   op,
		Root:        root,
		Tag:         action.Tag,
		Source:      action.Source,
		Destination: action.Destination,
	}

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}
	return entry, nil
}

func (m *Manifest) writeEntry(entry *Entry) error {
	if err := m.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	filePath := filepath.Join(m.dir, entry.ID+".json")
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
// Unreadable files are skipped.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves an entry by ID.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}
	if strings.ContainsRune(id, filepath.Separator) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.readEntryFile(id + ".json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return nil, err
	}
	return entry, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read journal directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, f.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// generateID creates an ID like "classify-2024-06-15T10-30-00-1a2b3c4d".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
