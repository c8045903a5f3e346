package vm

import (
	"fmt"
)

// Collection is a growable ordered sequence. A reference-holding collection
// owns one count on every element it stores; a value-holding collection
// stores plain values only.
//
// Index arguments out of range are not bugs: they model user-facing arrays,
// so reads return nil and writes are no-ops.
type Collection struct {
	RefObject
	refs bool
	data []Value
}

// NewCollection allocates an empty collection. refs selects whether stored
// elements are reference counted.
func (h *Heap) NewCollection(refs bool) *Collection {
	c := &Collection{refs: refs}
	h.track(c)
	return c
}

// HoldsRefs reports whether the collection reference-counts its elements.
func (c *Collection) HoldsRefs() bool { return c.refs }

// Len returns the number of elements.
func (c *Collection) Len() int { return len(c.data) }

func (c *Collection) inRange(i int) bool {
	return 0 <= i && i < len(c.data)
}

func (c *Collection) Kind() string { return "collection" }

func (c *Collection) String() string {
	extra := fmt.Sprintf("len:%d refs:%t", len(c.data), c.refs)
	if len(c.data) > 0 {
		extra += " d0:" + DebugString(c.data[0])
	}
	return c.describe("Collection", extra)
}

func (c *Collection) destroy(h *Heap) {
	data := c.data
	c.data = nil
	if !c.refs {
		return
	}
	for _, v := range data {
		h.Release(v)
	}
}

// ---------------------------------------------------------------------------
// Collection primitives
// ---------------------------------------------------------------------------

// Push appends x. A reference-holding collection retains x; the caller keeps
// its own reference.
func (h *Heap) Push(c *Collection, x Value) {
	if c.refs {
		h.Retain(x)
	}
	c.data = append(c.data, x)
}

// Pop removes and returns the last element, transferring the collection's
// reference to the caller. An empty collection yields nil.
func (h *Heap) Pop(c *Collection) Value {
	n := len(c.data)
	if n == 0 {
		return nil
	}
	v := c.data[n-1]
	c.data[n-1] = nil
	c.data = c.data[:n-1]
	return v
}

// GetAt returns element i. The caller receives a new reference when the
// collection holds references. Out of range yields nil.
func (h *Heap) GetAt(c *Collection, i int) Value {
	if !c.inRange(i) {
		return nil
	}
	v := c.data[i]
	if c.refs {
		h.Retain(v)
	}
	return v
}

// SetAt overwrites element i, releasing the previous value first. Out of
// range is a no-op.
func (h *Heap) SetAt(c *Collection, i int, x Value) {
	if !c.inRange(i) {
		return
	}
	if c.refs {
		old := c.data[i]
		c.data[i] = nil
		h.Release(old)
		h.Retain(x)
	}
	c.data[i] = x
}

// InsertAt inserts x before position i; i == Len appends. Out of range is a
// no-op.
func (h *Heap) InsertAt(c *Collection, i int, x Value) {
	if i < 0 || i > len(c.data) {
		return
	}
	if c.refs {
		h.Retain(x)
	}
	c.data = append(c.data, nil)
	copy(c.data[i+1:], c.data[i:])
	c.data[i] = x
}

// RemoveAt deletes element i, releasing it. Out of range is a no-op.
func (h *Heap) RemoveAt(c *Collection, i int) {
	if !c.inRange(i) {
		return
	}
	old := c.data[i]
	copy(c.data[i:], c.data[i+1:])
	c.data[len(c.data)-1] = nil
	c.data = c.data[:len(c.data)-1]
	if c.refs {
		h.Release(old)
	}
}

// IndexOf returns the first index >= start holding x, or -1.
func (h *Heap) IndexOf(c *Collection, x Value, start int) int {
	if !c.inRange(start) {
		return -1
	}
	for i := start; i < len(c.data); i++ {
		if c.data[i] == x {
			return i
		}
	}
	return -1
}

// RemoveElement deletes the first occurrence of x and reports whether one
// was found.
func (h *Heap) RemoveElement(c *Collection, x Value) bool {
	idx := h.IndexOf(c, x, 0)
	if idx < 0 {
		return false
	}
	h.RemoveAt(c, idx)
	return true
}
