package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

type item struct {
	id    string
	value string
}

func (i item) RowID() string { return i.id }

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestAppendRejectsDuplicateIdentity(t *testing.T) {
	c := New(item{id: "a"})
	require.NoError(t, c.Append(item{id: "b"}))
	err := c.Append(item{id: "a"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, []string{"a", "b"}, ids(c.List()))
}

func TestReplaceKeepsPositionAndOtherRows(t *testing.T) {
	c := New(item{id: "a", value: "1"}, item{id: "b", value: "2"}, item{id: "c", value: "3"})

	prev, err := c.Replace("b", item{id: "b", value: "two"})
	require.NoError(t, err)
	assert.Equal(t, "2", prev.value)
	assert.Equal(t, []item{{"a", "1"}, {"b", "two"}, {"c", "3"}}, c.List())

	_, err = c.Replace("b", item{id: "z"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	_, err = c.Replace("missing", item{id: "missing"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRemoveAndRestoreRoundTrip(t *testing.T) {
	c := New(item{id: "a"}, item{id: "b"}, item{id: "c"})
	before := c.List()

	removed, err := c.Remove("b")
	require.NoError(t, err)
	assert.Equal(t, 1, removed.Index)
	assert.Equal(t, []string{"a", "c"}, ids(c.List()))

	c.Restore(removed)
	assert.Equal(t, before, c.List())

	c.Restore(removed)
	assert.Equal(t, 3, c.Len(), "restoring twice must not duplicate")
}

func TestRestoreClampsToEnd(t *testing.T) {
	c := New(item{id: "a"}, item{id: "b"}, item{id: "c"})
	removed, err := c.Remove("c")
	require.NoError(t, err)
	_, err = c.Remove("b")
	require.NoError(t, err)

	c.Restore(removed)
	assert.Equal(t, []string{"a", "c"}, ids(c.List()))
}

func TestListReturnsCopy(t *testing.T) {
	c := New(item{id: "a", value: "1"})
	list := c.List()
	list[0].value = "mutated"
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", got.value)
}

func TestBeginRejectsBusyAndMissingRows(t *testing.T) {
	c := New(item{id: "a"})

	require.NoError(t, c.Begin("a"))
	assert.True(t, c.Pending("a"))
	assert.True(t, errors.Is(c.Begin("a"), appErrors.ErrRowBusy))
	assert.True(t, errors.Is(c.Begin("nope"), appErrors.ErrNotFound))

	c.End("a")
	assert.False(t, c.Pending("a"))
	assert.NoError(t, c.Begin("a"))
}

func TestResetClearsPending(t *testing.T) {
	c := New(item{id: "a"})
	require.NoError(t, c.Begin("a"))
	c.Reset([]item{{id: "x"}})
	assert.False(t, c.Pending("a"))
	assert.Equal(t, []string{"x"}, ids(c.List()))
}

func TestConcurrentAppends(t *testing.T) {
	c := New[item]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Append(item{id: NewID()})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}
