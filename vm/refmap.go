package vm

import (
	"fmt"
)

type mapEntry struct {
	key     int
	ref     bool
	val     Value
	keyName string
}

// RefMap is an integer-keyed map whose entries are individually flagged as
// reference-holding or plain. It backs object literals and dynamic field
// bags in compiled programs.
type RefMap struct {
	RefObject
	data []mapEntry
}

// NewMap allocates an empty map.
func (h *Heap) NewMap() *RefMap {
	m := &RefMap{}
	h.track(m)
	return m
}

// Len returns the number of entries.
func (m *RefMap) Len() int { return len(m.data) }

// Keys returns the entry names in insertion order, for host-side inspection.
func (m *RefMap) Keys() []string {
	out := make([]string, len(m.data))
	for i, e := range m.data {
		out[i] = e.keyName
	}
	return out
}

func (m *RefMap) findIdx(key int) int {
	for i := range m.data {
		if m.data[i].key == key {
			return i
		}
	}
	return -1
}

func (m *RefMap) Kind() string { return "map" }

func (m *RefMap) String() string {
	return m.describe("RefMap", fmt.Sprintf("size:%d", len(m.data)))
}

func (m *RefMap) destroy(h *Heap) {
	data := m.data
	m.data = nil
	for _, e := range data {
		if e.ref {
			h.Release(e.val)
		}
	}
}

// ---------------------------------------------------------------------------
// Map accessors (consume the map reference like field accessors)
// ---------------------------------------------------------------------------

// MapGet returns the plain value stored under key, or 0 when absent.
func (h *Heap) MapGet(m *RefMap, key int) Value {
	var v Value = int32(0)
	if i := m.findIdx(key); i >= 0 {
		v = m.data[i].val
	}
	h.Release(m)
	return v
}

// MapGetRef returns a new reference to the value stored under key, or 0
// when absent.
func (h *Heap) MapGetRef(m *RefMap, key int) Value {
	var v Value = int32(0)
	if i := m.findIdx(key); i >= 0 {
		v = h.Retain(m.data[i].val)
	}
	h.Release(m)
	return v
}

// MapSet stores a plain value under key. If the entry previously held a
// reference, that reference is released.
func (h *Heap) MapSet(m *RefMap, key int, val Value, keyName string) {
	h.mapStore(m, key, val, keyName, false)
}

// MapSetRef stores a reference under key, taking over the caller's
// ownership of val. A previous reference in the entry is released.
func (h *Heap) MapSetRef(m *RefMap, key int, val Value, keyName string) {
	h.mapStore(m, key, val, keyName, true)
}

func (h *Heap) mapStore(m *RefMap, key int, val Value, keyName string, ref bool) {
	i := m.findIdx(key)
	if i < 0 {
		m.data = append(m.data, mapEntry{key: key, ref: ref, val: val, keyName: keyName})
	} else {
		e := &m.data[i]
		old, oldRef := e.val, e.ref
		e.val, e.ref, e.keyName = val, ref, keyName
		if oldRef {
			h.Release(old)
		}
	}
	h.Release(m)
}
