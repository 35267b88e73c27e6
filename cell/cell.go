// Package cell provides single-writer, multi-reader state cells.
//
// A cell holds the latest published value of a shared state slot (sensor
// reading, clock state, weather snapshot, connection state). Updates are
// whole-value replacements, so a reader always observes a complete,
// internally consistent value and never a torn one. Reads are lock-free
// and bounded.
package cell

import "sync/atomic"

// Cell is a single-slot, atomic-replace container. Exactly one task may
// call Publish; any number may call Load.
type Cell[T any] struct {
	p atomic.Pointer[T]
}

// Publish replaces the cell contents with v.
func (c *Cell[T]) Publish(v T) {
	c.p.Store(&v)
}

// Load returns the latest published value. ok is false before the first
// Publish.
func (c *Cell[T]) Load() (T, bool) {
	if p := c.p.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Get is Load without the ok flag; it returns the zero value before the
// first Publish.
func (c *Cell[T]) Get() T {
	v, _ := c.Load()
	return v
}
