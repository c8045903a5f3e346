package vm

import (
	"fmt"
)

// Closure pairs a code unit with captured values. Capture slots
// [0, refLen) are reference counted; the rest hold plain values. Each slot
// is written exactly once, by StClo, before the closure is first invoked.
type Closure struct {
	RefObject
	Code   CodeUnit
	refLen int
	caps   []Value
	set    []bool
}

// NewClosure allocates a closure for code with total capture slots, the
// first refLen of which hold references.
func (h *Heap) NewClosure(refLen, total int, code CodeUnit) *Closure {
	check(0 <= refLen && refLen <= total, "closure: ref capture count out of range")
	check(total <= MaxFields, "closure: too many captures")
	check(code != nil, "closure: nil code unit")
	c := &Closure{
		Code:   code,
		refLen: refLen,
		caps:   make([]Value, total),
		set:    make([]bool, total),
	}
	h.track(c)
	return c
}

// Len returns the number of capture slots.
func (c *Closure) Len() int { return len(c.caps) }

// RefLen returns the number of reference-counted capture slots.
func (c *Closure) RefLen() int { return c.refLen }

// IsRef reports whether capture slot idx is reference counted.
func (c *Closure) IsRef(idx int) bool {
	check(0 <= idx && idx < len(c.caps), "closure: capture index out of range")
	return idx < c.refLen
}

func (c *Closure) Kind() string { return "closure" }

func (c *Closure) String() string {
	return c.describe("Closure", fmt.Sprintf("len:%d reflen:%d", len(c.caps), c.refLen))
}

func (c *Closure) destroy(h *Heap) {
	caps := c.caps
	c.caps = nil
	c.set = nil
	c.Code = nil
	for i := 0; i < c.refLen; i++ {
		h.Release(caps[i])
	}
}
