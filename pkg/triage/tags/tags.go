// Package tags tracks the most recently used classification tags.
package tags

import "strings"

// DefaultCapacity is the number of tags remembered when no capacity is given.
const DefaultCapacity = 6

// Cache is a most-recently-used list of distinct, normalized tags.
// It is not safe for concurrent use.
type Cache struct {
	capacity int
	tags     []string
}

// New returns an empty cache. A capacity of zero or less uses DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{capacity: capacity}
}

// Normalize trims surrounding whitespace and lower-cases a tag.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Touch moves tag to the front, inserting it if absent. Empty tags are ignored.
func (c *Cache) Touch(tag string) {
	tag = Normalize(tag)
	if tag == "" {
		return
	}

	next := make([]string, 0, c.capacity)
	next = append(next, tag)
	for _, existing := range c.tags {
		if existing == tag {
			continue
		}
		if len(next) == c.capacity {
			break
		}
		next = append(next, existing)
	}
	c.tags = next
}

// List returns a copy of the tags, most recent first.
func (c *Cache) List() []string {
	out := make([]string, len(c.tags))
	copy(out, c.tags)
	return out
}

// Len returns the number of remembered tags.
func (c *Cache) Len() int {
	return len(c.tags)
}

// Capacity returns the maximum number of tags.
func (c *Cache) Capacity() int {
	return c.capacity
}
