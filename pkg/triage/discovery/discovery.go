// Package discovery lists the images waiting directly under a workspace root.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

// DefaultExtensions is the allow-list of image extensions, without dots.
var DefaultExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

// ErrNoExtensions is returned when the extension allow-list is empty.
var ErrNoExtensions = errors.New("no image extensions configured")

type options struct {
	extensions []string
}

// Option configures Scan.
type Option func(*options)

// WithExtensions replaces the extension allow-list. Leading dots are ignored
// and matching stays case-sensitive.
func WithExtensions(exts []string) Option {
	return func(o *options) {
		o.extensions = exts
	}
}

// Matcher reports whether a file name is an eligible image.
type Matcher struct {
	g glob.Glob
}

// NewMatcher compiles a matcher for the given extensions.
func NewMatcher(exts []string) (*Matcher, error) {
	cleaned := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			cleaned = append(cleaned, ext)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoExtensions
	}

	pattern := "*.{" + strings.Join(cleaned, ",") + "}"
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return &Matcher{g: g}, nil
}

// Match reports whether name (a base name) is a visible file with an
// allowed extension.
func (m *Matcher) Match(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return m.g.Match(name)
}

// Scan returns the eligible images directly under root, sorted by file name.
// Subdirectories are never entered. A root that is missing or not a
// directory yields an empty slice and an error wrapping
// types.ErrWorkspaceNotFound.
func Scan(root string, opts ...Option) ([]types.ImagePath, error) {
	o := options{extensions: DefaultExtensions}
	for _, opt := range opts {
		opt(&o)
	}

	matcher, err := NewMatcher(o.extensions)
	if err != nil {
		return []types.ImagePath{}, err
	}

	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return []types.ImagePath{}, fmt.Errorf("scanning %s: %w", root, types.ErrWorkspaceNotFound)
	}

	var (
		mu    sync.Mutex
		found []types.ImagePath
	)

	conf := fastwalk.Config{
		Follow: false,
	}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if filepath.Clean(path) == root {
				return err
			}
			return nil
		}

		if d.IsDir() {
			if filepath.Clean(path) == root {
				return nil
			}
			return fastwalk.SkipDir
		}

		if !d.Type().IsRegular() || !matcher.Match(d.Name()) {
			return nil
		}

		mu.Lock()
		found = append(found, types.ImagePath(filepath.Join(root, d.Name())))
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return []types.ImagePath{}, fmt.Errorf("scanning %s: %w", root, walkErr)
	}

	// fastwalk invokes the callback concurrently in no particular order.
	sort.Slice(found, func(i, j int) bool {
		return found[i].Base() < found[j].Base()
	})
	if found == nil {
		found = []types.ImagePath{}
	}
	return found, nil
}
