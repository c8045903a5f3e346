package vm

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Heap: live-object registry and reference counting
// ---------------------------------------------------------------------------

// Heap owns the live-object registry and is the only place reference counts
// are mutated. It is not safe for concurrent use; the runtime accesses it
// from a single logical thread.
type Heap struct {
	nextID uint64
	live   map[uint64]Object

	// Debug enables per-object logging in DumpLive.
	Debug bool
}

// LiveObject is a diagnostic snapshot of one live heap object.
type LiveObject struct {
	ID       uint64
	RefCount int
	Kind     string
	Summary  string
}

// NewHeap creates an empty heap. IDs start at 1 (0 is never assigned).
func NewHeap() *Heap {
	return &Heap{
		nextID: 1,
		live:   make(map[uint64]Object),
	}
}

// track registers a freshly constructed object with a count of 1.
func (h *Heap) track(o Object) {
	hdr := o.header()
	hdr.id = h.nextID
	hdr.refcnt = 1
	h.nextID++
	h.live[hdr.id] = o
}

// Retain increments the count of a heap object and returns v unchanged.
// Primitive values pass through. Retaining a destroyed object is fatal.
func (h *Heap) Retain(v Value) Value {
	o := AsObject(v)
	if o == nil {
		return v
	}
	if isNilObject(o) {
		fatalf("retain of nil %T", o)
	}
	hdr := o.header()
	if hdr.refcnt <= 0 {
		fatalf("retain of destroyed object %s", o)
	}
	hdr.refcnt++
	return v
}

// Release decrements the count of a heap object. When it reaches zero the
// object is removed from the registry and its destructor releases every
// reference it owns. Primitive values are ignored. Releasing an object whose
// count is already zero is fatal.
func (h *Heap) Release(v Value) {
	o := AsObject(v)
	if o == nil {
		return
	}
	if isNilObject(o) {
		fatalf("release of nil %T", o)
	}
	hdr := o.header()
	if hdr.refcnt <= 0 {
		fatalf("release of destroyed object %s", o)
	}
	hdr.refcnt--
	if hdr.refcnt == 0 {
		delete(h.live, hdr.id)
		o.destroy(h)
	}
}

// IsLive reports whether o is still registered.
func (h *Heap) IsLive(o Object) bool {
	_, ok := h.live[o.header().id]
	return ok
}

// LiveCount returns the number of live objects.
func (h *Heap) LiveCount() int {
	return len(h.live)
}

// LiveObjects returns a snapshot of every live object ordered by ID.
func (h *Heap) LiveObjects() []LiveObject {
	out := make([]LiveObject, 0, len(h.live))
	for id, o := range h.live {
		out = append(out, LiveObject{
			ID:       id,
			RefCount: o.header().refcnt,
			Kind:     o.Kind(),
			Summary:  o.String(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DumpLive logs every live object when Debug is set.
func (h *Heap) DumpLive() {
	if !h.Debug {
		return
	}
	objs := h.LiveObjects()
	log.Infof("live objects: %d", len(objs))
	for _, o := range objs {
		log.Info(o.Summary)
	}
}
