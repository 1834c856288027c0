// Package stats summarizes the tag folders under a workspace root.
package stats

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/triage/pkg/triage/discovery"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

// TagStats counts the files filed under one tag folder.
type TagStats struct {
	Tag   string `json:"tag" yaml:"tag"`
	Files int64  `json:"files" yaml:"files"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// HumanBytes returns Bytes with binary units.
func (t TagStats) HumanBytes() string {
	return types.FormatSize(t.Bytes)
}

// Summary describes a workspace root.
type Summary struct {
	Root    string     `json:"root"`
	Pending int        `json:"pending"`
	Tags    []TagStats `json:"tags"`
}

// TotalFiles returns the number of files across all tag folders.
func (s Summary) TotalFiles() int64 {
	var n int64
	for _, t := range s.Tags {
		n += t.Files
	}
	return n
}

// TotalBytes returns the size of all tag folders.
func (s Summary) TotalBytes() int64 {
	var n int64
	for _, t := range s.Tags {
		n += t.Bytes
	}
	return n
}

// Collect walks every visible subdirectory of root. Pending counts the
// eligible images left directly under root, using exts as the allow-list
// (nil means discovery.DefaultExtensions).
func Collect(root string, exts []string) (*Summary, error) {
	if exts == nil {
		exts = discovery.DefaultExtensions
	}
	pending, err := discovery.Scan(root, discovery.WithExtensions(exts))
	if err != nil {
		return nil, err
	}
	root = filepath.Clean(root)

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	summary := &Summary{Root: root, Pending: len(pending), Tags: []TagStats{}}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ts, err := walkTag(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		ts.Tag = e.Name()
		summary.Tags = append(summary.Tags, ts)
	}

	sort.Slice(summary.Tags, func(i, j int) bool {
		return summary.Tags[i].Tag < summary.Tags[j].Tag
	})
	return summary, nil
}

func walkTag(dir string) (TagStats, error) {
	var (
		files, bytes atomic.Int64
		errMu        sync.Mutex
		firstErr     error
	)

	conf := fastwalk.Config{
		Follow: false,
	}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			errMu.Lock()
			if firstErr == nil && !errors.Is(walkErr, fs.ErrPermission) {
				firstErr = walkErr
			}
			errMu.Unlock()
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // entries that vanish mid-walk are skipped
		}
		files.Add(1)
		bytes.Add(info.Size())
		return nil
	})
	if err != nil {
		return TagStats{}, fmt.Errorf("walking %s: %w", dir, err)
	}
	if firstErr != nil {
		return TagStats{}, fmt.Errorf("walking %s: %w", dir, firstErr)
	}

	return TagStats{Files: files.Load(), Bytes: bytes.Load()}, nil
}
