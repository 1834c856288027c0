// Package manifest journals completed triage moves to the filesystem so
// they can be reviewed after the process exits.
package manifest

import (
	"time"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

// OperationType represents the kind of move recorded.
type OperationType string

const (
	// OpClassify records an image moved into a tag folder.
	OpClassify OperationType = "classify"
	// OpUndo records an image moved back out of a tag folder.
	OpUndo OperationType = "undo"
)

// Entry is one journaled move.
type Entry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Operation   OperationType   `json:"operation"`
	Root        string          `json:"root"`
	Tag         string          `json:"tag,omitempty"`
	Source      types.ImagePath `json:"source"`
	Destination types.ImagePath `json:"destination"`
}
