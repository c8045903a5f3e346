package vm

import (
	"fmt"
)

// Object is a manually reference-counted heap value.
//
// Every Object embeds a RefObject header. The header's count starts at 1
// when the object is created through a Heap constructor (the creator's
// implicit ownership) and is mutated only by Heap.Retain and Heap.Release.
type Object interface {
	// Kind names the object type for diagnostics ("record", "closure", ...).
	Kind() string
	// String renders a one-line summary including id and count.
	String() string

	header() *RefObject
	// destroy releases every reference-counted value the object owns.
	// It runs exactly once, when the count reaches zero.
	destroy(h *Heap)
}

// RefObject is the header shared by all heap objects.
type RefObject struct {
	id     uint64
	refcnt int
}

func (o *RefObject) header() *RefObject { return o }

// ID returns the process-unique identifier assigned at creation.
func (o *RefObject) ID() uint64 { return o.id }

// RefCount returns the current reference count. A destroyed object reports 0.
func (o *RefObject) RefCount() int { return o.refcnt }

// Alive reports whether the object has not been destroyed yet.
func (o *RefObject) Alive() bool { return o.refcnt > 0 }

func (o *RefObject) describe(kind string, extra string) string {
	if extra == "" {
		return fmt.Sprintf("%s id:%d refs:%d", kind, o.id, o.refcnt)
	}
	return fmt.Sprintf("%s id:%d refs:%d %s", kind, o.id, o.refcnt, extra)
}

// ---------------------------------------------------------------------------
// Local cells
// ---------------------------------------------------------------------------

// Local is a heap cell holding a plain value for a captured local variable.
type Local struct {
	RefObject
	v Value
}

func (l *Local) Kind() string { return "local" }
func (l *Local) String() string { return l.describe("Local", "v:"+DebugString(l.v)) }
func (l *Local) destroy(h *Heap) { l.v = nil }

// RefLocal is a heap cell holding a reference-counted value for a captured
// local variable. Destroying the cell releases the value it holds.
type RefLocal struct {
	RefObject
	v Value
}

func (l *RefLocal) Kind() string { return "reflocal" }
func (l *RefLocal) String() string { return l.describe("RefLocal", "v:"+DebugString(l.v)) }

func (l *RefLocal) destroy(h *Heap) {
	v := l.v
	l.v = nil
	h.Release(v)
}
