package vm

import (
	"fmt"
)

// MaxFields bounds the total field count of records and closures.
const MaxFields = 255

// Record is a fixed-size tuple. Fields [0, refLen) hold reference-counted
// values; fields [refLen, len) hold plain numbers.
type Record struct {
	RefObject
	refLen int
	fields []Value
}

// NewRecord allocates a record with refLen reference fields out of total.
// Reference fields start nil and plain fields start at zero.
func (h *Heap) NewRecord(refLen, total int) *Record {
	check(0 <= refLen && refLen <= total, "record: ref field count out of range")
	check(total <= MaxFields, "record: too many fields")
	r := &Record{
		refLen: refLen,
		fields: make([]Value, total),
	}
	for i := refLen; i < total; i++ {
		r.fields[i] = int32(0)
	}
	h.track(r)
	return r
}

// Len returns the total number of fields.
func (r *Record) Len() int { return len(r.fields) }

// RefLen returns the number of reference-counted fields.
func (r *Record) RefLen() int { return r.refLen }

// IsRef reports whether field idx is reference counted.
func (r *Record) IsRef(idx int) bool {
	check(0 <= idx && idx < len(r.fields), "record: field index out of range")
	return idx < r.refLen
}

func (r *Record) Kind() string { return "record" }

func (r *Record) String() string {
	return r.describe("Record", fmt.Sprintf("len:%d reflen:%d", len(r.fields), r.refLen))
}

func (r *Record) destroy(h *Heap) {
	fields := r.fields
	r.fields = nil
	for i := 0; i < r.refLen; i++ {
		h.Release(fields[i])
	}
}
