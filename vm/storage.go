package vm

// ---------------------------------------------------------------------------
// Storage accessors
// ---------------------------------------------------------------------------
//
// Each storage class has a plain and a reference variant. Reference loads
// hand the caller a new reference. Reference stores release the previous
// occupant and take over the caller's reference to the new value. Record
// field accessors also consume the container reference they were given.

// Globals is the process-wide global slot table.
type Globals struct {
	heap  *Heap
	slots []Value
}

func newGlobals(h *Heap, n int) *Globals {
	return &Globals{heap: h, slots: make([]Value, n)}
}

// Len returns the table size.
func (g *Globals) Len() int { return len(g.slots) }

func (g *Globals) checkIndex(idx int) {
	check(0 <= idx && idx < len(g.slots), "global index out of range")
}

// Ld loads a plain global.
func (g *Globals) Ld(idx int) Value {
	g.checkIndex(idx)
	return num(g.slots[idx])
}

// LdRef loads a reference global, retaining it for the caller.
func (g *Globals) LdRef(idx int) Value {
	g.checkIndex(idx)
	return g.heap.Retain(g.slots[idx])
}

// St stores a plain global.
func (g *Globals) St(idx int, v Value) {
	g.checkIndex(idx)
	g.slots[idx] = v
}

// StRef stores a reference global, releasing the previous value.
func (g *Globals) StRef(idx int, v Value) {
	g.checkIndex(idx)
	old := g.slots[idx]
	g.slots[idx] = v
	g.heap.Release(old)
}

// Clear releases every global and resets the table.
func (g *Globals) Clear() {
	for i, v := range g.slots {
		g.slots[i] = nil
		g.heap.Release(v)
	}
}

// ---------------------------------------------------------------------------
// Record fields
// ---------------------------------------------------------------------------

// LdFld loads plain field idx and releases r.
func (h *Heap) LdFld(r *Record, idx int) Value {
	check(r.refLen <= idx && idx < len(r.fields), "ldfld: field index out of range")
	v := num(r.fields[idx])
	h.Release(r)
	return v
}

// StFld stores plain field idx and releases r.
func (h *Heap) StFld(r *Record, idx int, v Value) {
	check(r.refLen <= idx && idx < len(r.fields), "stfld: field index out of range")
	r.fields[idx] = v
	h.Release(r)
}

// LdFldRef loads reference field idx, retaining it, and releases r.
func (h *Heap) LdFldRef(r *Record, idx int) Value {
	check(0 <= idx && idx < r.refLen, "ldfldref: field index out of range")
	v := h.Retain(r.fields[idx])
	h.Release(r)
	return v
}

// StFldRef stores reference field idx, releasing the previous value, and
// releases r.
func (h *Heap) StFldRef(r *Record, idx int, v Value) {
	check(0 <= idx && idx < r.refLen, "stfldref: field index out of range")
	old := r.fields[idx]
	r.fields[idx] = v
	h.Release(old)
	h.Release(r)
}

// ---------------------------------------------------------------------------
// Local cells
// ---------------------------------------------------------------------------

// MkLoc allocates a plain local cell.
func (h *Heap) MkLoc() *Local {
	l := &Local{v: int32(0)}
	h.track(l)
	return l
}

// MkLocRef allocates a reference local cell.
func (h *Heap) MkLocRef() *RefLocal {
	l := &RefLocal{}
	h.track(l)
	return l
}

// LdLoc loads a plain local cell.
func (h *Heap) LdLoc(l *Local) Value {
	return l.v
}

// StLoc stores a plain local cell.
func (h *Heap) StLoc(l *Local, v Value) {
	l.v = v
}

// LdLocRef loads a reference local cell, retaining the value.
func (h *Heap) LdLocRef(l *RefLocal) Value {
	return h.Retain(l.v)
}

// StLocRef stores a reference local cell, releasing the previous value.
func (h *Heap) StLocRef(l *RefLocal, v Value) {
	old := l.v
	l.v = v
	h.Release(old)
}

// ---------------------------------------------------------------------------
// Closure capture slots
// ---------------------------------------------------------------------------

// StClo initializes capture slot idx of c with v and returns c so several
// slots can be written in a chain. Each slot is write-once; a second store
// into the same slot is fatal.
func (h *Heap) StClo(c *Closure, idx int, v Value) *Closure {
	check(0 <= idx && idx < len(c.caps), "stclo: capture index out of range")
	if c.set[idx] {
		fatalf("stclo: capture slot %d of %s already initialized", idx, c)
	}
	c.caps[idx] = v
	c.set[idx] = true
	return c
}

// LdClo loads capture slot idx without touching its count.
func (h *Heap) LdClo(c *Closure, idx int) Value {
	check(0 <= idx && idx < len(c.caps), "ldclo: capture index out of range")
	return c.caps[idx]
}

// LdCloRef loads reference capture slot idx and retains it for the caller.
func (h *Heap) LdCloRef(c *Closure, idx int) Value {
	check(0 <= idx && idx < c.refLen, "ldcloref: capture index out of range")
	return h.Retain(c.caps[idx])
}
