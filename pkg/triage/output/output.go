// Package output provides formatters for the scan and stats commands in
// several output formats (pretty, plain, json, yaml).
//
// Formatters are looked up by name from a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/triage/pkg/triage/stats"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

// Image is one pending image prepared for display.
type Image struct {
	Path      string    `json:"path" yaml:"path"`
	Name      string    `json:"name" yaml:"name"`
	Size      int64     `json:"size" yaml:"size"`
	SizeHuman string    `json:"size_human" yaml:"size_human"`
	ModTime   time.Time `json:"mod_time" yaml:"mod_time"`
}

// Result is everything a formatter can render. Images is set by scan,
// Tags by stats.
type Result struct {
	Root    string           `json:"root" yaml:"root"`
	Pending int              `json:"pending" yaml:"pending"`
	Images  []Image          `json:"images,omitempty" yaml:"images,omitempty"`
	Tags    []stats.TagStats `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// FromImages builds a Result listing pending images in triage order.
func FromImages(root string, infos []*types.ImageInfo) *Result {
	r := &Result{Root: root, Pending: len(infos), Images: make([]Image, 0, len(infos))}
	for _, info := range infos {
		r.Images = append(r.Images, Image{
			Path:      info.Path.String(),
			Name:      info.Name,
			Size:      info.Size,
			SizeHuman: info.HumanSize(),
			ModTime:   info.ModTime,
		})
	}
	return r
}

// FromSummary builds a Result from tag folder statistics.
func FromSummary(sum *stats.Summary) *Result {
	return &Result{Root: sum.Root, Pending: sum.Pending, Tags: sum.Tags}
}

// ImageBytes returns the total size of the listed images.
func (r *Result) ImageBytes() int64 {
	var total int64
	for _, img := range r.Images {
		total += img.Size
	}
	return total
}

// TagTotals returns the file and byte totals across tag folders.
func (r *Result) TagTotals() (files, size int64) {
	for _, t := range r.Tags {
		files += t.Files
		size += t.Bytes
	}
	return files, size
}

// Formatter renders a Result.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
