// Package types provides core data types for the triage image sorter.
// It includes image identifiers, move records, the read-only view projected
// for renderers, and the error taxonomy shared by every layer.
package types

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// ImagePath identifies one image file. Equality is plain string equality;
// no canonicalization is applied beyond what the producer did.
type ImagePath string

// String returns the path as a plain string.
func (p ImagePath) String() string {
	return string(p)
}

// Base returns the final path segment (the file name).
func (p ImagePath) Base() string {
	return filepath.Base(string(p))
}

// Dir returns all but the final path segment.
func (p ImagePath) Dir() string {
	return filepath.Dir(string(p))
}

// MoveAction records one completed relocation of an image.
type MoveAction struct {
	// Source is the path before the move.
	Source ImagePath `json:"source"`

	// Destination is the path after the move.
	Destination ImagePath `json:"destination"`

	// Tag is the tag the image was classified with.
	Tag string `json:"tag,omitempty"`

	// At is when the move completed.
	At time.Time `json:"at"`
}

// UndoResult describes what an undo request did.
type UndoResult struct {
	// Performed is false when there was nothing to undo.
	Performed bool `json:"performed"`

	// Skipped is true when the history entry was consumed but the moved
	// file was no longer at its destination, so nothing moved on disk.
	Skipped bool `json:"skipped"`

	// Action is the history entry that was consumed.
	Action MoveAction `json:"action"`
}

// ImageInfo is display metadata about the current image.
type ImageInfo struct {
	Path    ImagePath `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// HumanSize returns the image size formatted with binary (IEC) units.
func (i *ImageInfo) HumanSize() string {
	return FormatSize(i.Size)
}

// StatImage builds ImageInfo for a path. Stat failures leave size and
// modification time zero.
func StatImage(p ImagePath) *ImageInfo {
	info := &ImageInfo{Path: p, Name: p.Base()}
	if fi, err := os.Stat(string(p)); err == nil {
		info.Size = fi.Size()
		info.ModTime = fi.ModTime()
	}
	return info
}

// View is the read-only projection of a workspace used for rendering.
type View struct {
	// Root is the active workspace root, empty when none is active.
	Root string `json:"root"`

	// Image is the current image, nil when the queue is empty.
	Image *ImageInfo `json:"image,omitempty"`

	// Remaining is the number of images still pending.
	Remaining int `json:"remaining"`

	// UndoAvailable reports whether the history has entries.
	UndoAvailable bool `json:"undo_available"`

	// RecentTags lists recently used tags, most recent first.
	RecentTags []string `json:"recent_tags"`

	// History lists undoable moves, newest first.
	History []MoveAction `json:"history,omitempty"`
}

// Done reports whether a workspace is active and has nothing left to triage.
func (v View) Done() bool {
	return v.Root != "" && v.Image == nil
}

// FormatSize converts a size in bytes to a human-readable string.
// It uses binary (IEC) units (KiB, MiB, GiB, TiB).
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
