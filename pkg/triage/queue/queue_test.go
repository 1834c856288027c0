package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/triage/pkg/triage/queue"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

func paths(names ...string) []types.ImagePath {
	out := make([]types.ImagePath, len(names))
	for i, n := range names {
		out[i] = types.ImagePath(n)
	}
	return out
}

func TestNewDeduplicates(t *testing.T) {
	in := paths("a", "b", "a", "c", "b")
	q := queue.New(in)

	assert.Equal(t, paths("a", "b", "c"), q.Items())
	assert.Len(t, in, 5, "input must not be modified")
}

func TestCurrent(t *testing.T) {
	q := queue.New(nil)
	_, ok := q.Current()
	assert.False(t, ok)

	q = queue.New(paths("a", "b"))
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, types.ImagePath("a"), cur)
	assert.Equal(t, 2, q.Len(), "Current must not consume")
}

func TestSkip(t *testing.T) {
	tests := []struct {
		name string
		in   []types.ImagePath
		want []types.ImagePath
	}{
		{"empty", nil, paths()},
		{"single", paths("a"), paths("a")},
		{"two", paths("a", "b"), paths("b", "a")},
		{"three", paths("a", "b", "c"), paths("b", "c", "a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queue.New(tt.in)
			q.Skip()
			assert.Equal(t, tt.want, q.Items())
		})
	}
}

func TestSkipFullCycleRestoresOrder(t *testing.T) {
	q := queue.New(paths("a", "b", "c", "d"))
	for i := 0; i < q.Len(); i++ {
		q.Skip()
	}
	assert.Equal(t, paths("a", "b", "c", "d"), q.Items())
}

func TestClassifyCurrent(t *testing.T) {
	q := queue.New(paths("a", "b"))

	got, err := q.ClassifyCurrent()
	require.NoError(t, err)
	assert.Equal(t, types.ImagePath("a"), got)
	assert.Equal(t, paths("b"), q.Items())

	_, err = q.ClassifyCurrent()
	require.NoError(t, err)

	_, err = q.ClassifyCurrent()
	assert.ErrorIs(t, err, types.ErrEmptyQueue)
}

func TestRemoveIfPresent(t *testing.T) {
	q := queue.New(paths("a", "b", "c"))

	assert.True(t, q.RemoveIfPresent("b"))
	assert.Equal(t, paths("a", "c"), q.Items())
	assert.False(t, q.RemoveIfPresent("b"))
	assert.False(t, q.Contains("b"))
}

func TestPushFront(t *testing.T) {
	q := queue.New(paths("b", "c"))
	q.PushFront("a")
	assert.Equal(t, paths("a", "b", "c"), q.Items())

	q.PushFront("c")
	assert.Equal(t, paths("c", "a", "b"), q.Items(), "existing entry moves instead of duplicating")
}

func TestItemsIsCopy(t *testing.T) {
	q := queue.New(paths("a", "b"))
	items := q.Items()
	items[0] = "z"
	assert.True(t, q.Contains("a"))
	assert.False(t, q.Contains("z"))
}
