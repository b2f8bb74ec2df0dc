// Package store holds the in-memory collections the console renders and mutates. Each
// Collection is an explicit state container injected into the service that owns it.
package store

import (
	"sync"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

// Row is anything addressable by a stable client-side identity.
type Row interface {
	RowID() string
}

// NewID returns a fresh client-side row identity.
func NewID() string {
	return uuid.NewString()
}

// Removed remembers where a row sat so that a failed delete can put it back.
type Removed[T Row] struct {
	Item  T
	Index int
}

// Collection is an ordered, concurrency-safe list of rows keyed by RowID.
type Collection[T Row] struct {
	mu      sync.RWMutex
	items   []T
	pending map[string]struct{}
}

// New builds a collection holding items.
func New[T Row](items ...T) *Collection[T] {
	c := &Collection[T]{pending: make(map[string]struct{})}
	c.items = append(c.items, items...)
	return c
}

// List returns a copy of the rows in order.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of rows.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the row with id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Append adds a row at the end.
func (c *Collection[T]) Append(item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(item.RowID()) >= 0 {
		return appErrors.Clone(appErrors.ErrConflict, "row already exists")
	}
	c.items = append(c.items, item)
	return nil
}

// Replace swaps the row with id for item and returns the previous value. item keeps the
// position of the row it replaces.
func (c *Collection[T]) Replace(id string, item T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var prev T
	if item.RowID() != id {
		return prev, appErrors.Clone(appErrors.ErrConflict, "row identity cannot change")
	}
	i := c.indexOf(id)
	if i < 0 {
		return prev, appErrors.Clone(appErrors.ErrNotFound, "row not found")
	}
	prev = c.items[i]
	c.items[i] = item
	return prev, nil
}

// Remove deletes the row with id.
func (c *Collection[T]) Remove(id string) (Removed[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return Removed[T]{}, appErrors.Clone(appErrors.ErrNotFound, "row not found")
	}
	removed := Removed[T]{Item: c.items[i], Index: i}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return removed, nil
}

// Restore reinserts a removed row at its old position, or at the end when the collection
// has shrunk since.
func (c *Collection[T]) Restore(r Removed[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(r.Item.RowID()) >= 0 {
		return
	}
	idx := r.Index
	if idx < 0 || idx > len(c.items) {
		idx = len(c.items)
	}
	c.items = append(c.items, r.Item)
	copy(c.items[idx+1:], c.items[idx:])
	c.items[idx] = r.Item
}

// Reset replaces every row and clears pending markers.
func (c *Collection[T]) Reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
	c.pending = make(map[string]struct{})
}

// Begin marks id as having a backend call in flight. A second Begin on the same id fails
// until End is called.
func (c *Collection[T]) Begin(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[id]; busy {
		return appErrors.Clone(appErrors.ErrRowBusy, "")
	}
	if c.indexOf(id) < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "row not found")
	}
	c.pending[id] = struct{}{}
	return nil
}

// End clears the in-flight marker of id.
func (c *Collection[T]) End(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Pending reports whether id has a backend call in flight.
func (c *Collection[T]) Pending(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Collection[T]) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].RowID() == id {
			return i
		}
	}
	return -1
}
