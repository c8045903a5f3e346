package vm

import (
	"fmt"
)

// Value is anything a compiled program can hold in a storage slot.
//
// Primitive values (numbers, booleans, strings, nil) are carried as plain Go
// values and are never reference counted. Heap values implement Object and
// follow the retain/release discipline enforced by Heap.
//
// Numeric values produced by the primitive library are always int32 or
// float64; storage accessors move them unchanged.
type Value any

// AsObject returns the heap object held by v, or nil for primitive values.
// A typed nil object pointer is returned as is; Heap rejects it.
func AsObject(v Value) Object {
	if o, ok := v.(Object); ok && o != nil {
		return o
	}
	return nil
}

// isNilObject reports whether o is a nil pointer of a concrete object type.
func isNilObject(o Object) bool {
	switch x := o.(type) {
	case *Record:
		return x == nil
	case *Closure:
		return x == nil
	case *Collection:
		return x == nil
	case *RefMap:
		return x == nil
	case *Local:
		return x == nil
	case *RefLocal:
		return x == nil
	}
	return false
}

// IsObject reports whether v is a reference-counted heap object.
func IsObject(v Value) bool {
	return AsObject(v) != nil
}

// num normalizes an unset plain slot to zero.
func num(v Value) Value {
	if v == nil {
		return int32(0)
	}
	return v
}

// ToNumber converts a primitive value to a float64. Non-numeric values
// convert to 0, matching how the device treats uninitialized storage.
func ToNumber(v Value) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint32:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// ToBool reports the truthiness of a primitive or heap value.
func ToBool(v Value) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case Object:
		return !isNilObject(b)
	default:
		return ToNumber(v) != 0
	}
}

// DebugString renders a short preview of v for diagnostics. Heap objects
// are shown as kind#id and never expanded, so cyclic structures print.
func DebugString(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case Object:
		if isNilObject(x) {
			return x.Kind() + "#nil"
		}
		return fmt.Sprintf("%s#%d", x.Kind(), x.header().id)
	default:
		return fmt.Sprint(x)
	}
}
