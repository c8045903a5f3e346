package vm

import (
	"math"
)

// ---------------------------------------------------------------------------
// Integer primitives
// ---------------------------------------------------------------------------
//
// Device integers are 32 bits wide. Conversions truncate toward zero and wrap
// modulo 2^32; NaN and infinities convert to 0.

func wrap32(v Value) uint32 {
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	m := math.Mod(f, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// ToInt32 converts v to a signed 32-bit integer.
func ToInt32(v Value) int32 { return int32(wrap32(v)) }

// ToUInt32 converts v to an unsigned 32-bit integer.
func ToUInt32(v Value) uint32 { return wrap32(v) }

// ToInt16 keeps the low 16 bits of v, sign extended.
func ToInt16(v Value) int32 { return int32(int16(wrap32(v))) }

// ToUInt16 keeps the low 16 bits of v.
func ToUInt16(v Value) int32 { return int32(uint16(wrap32(v))) }

// ToInt8 keeps the low 8 bits of v, sign extended.
func ToInt8(v Value) int32 { return int32(int8(wrap32(v))) }

// ToUInt8 keeps the low 8 bits of v.
func ToUInt8(v Value) int32 { return int32(uint8(wrap32(v))) }

// IntAdd is 32-bit wrapping addition.
func IntAdd(a, b Value) int32 { return ToInt32(a) + ToInt32(b) }

// IntSub is 32-bit wrapping subtraction.
func IntSub(a, b Value) int32 { return ToInt32(a) - ToInt32(b) }

// IntMul is 32-bit wrapping multiplication.
func IntMul(a, b Value) int32 { return ToInt32(a) * ToInt32(b) }

// IntDiv is 32-bit division truncating toward zero. Division by zero
// yields 0, and MinInt32 / -1 wraps to MinInt32.
func IntDiv(a, b Value) int32 {
	x, y := ToInt32(a), ToInt32(b)
	switch {
	case y == 0:
		return 0
	case x == math.MinInt32 && y == -1:
		return math.MinInt32
	}
	return x / y
}

// NullFix maps nil and false to 0 and true to 1; other values pass
// through.
func NullFix(v Value) Value {
	switch b := v.(type) {
	case nil:
		return int32(0)
	case bool:
		if b {
			return int32(1)
		}
		return int32(0)
	}
	return v
}

// NullCheck raises a user error when v is nil.
func NullCheck(v Value) {
	if v == nil {
		panic(&UserError{Code: PanicNullDereference, Msg: "Dereferencing null/undefined value."})
	}
}

// PanicNullDereference is the panic code raised by NullCheck.
const PanicNullDereference = 21

// Panic raises a user error with the given code. It terminates only the
// running fiber.
func Panic(code int) {
	panic(&UserError{Code: code})
}

// Assert panics with code when cond is false.
func Assert(cond bool, code int, msg string) {
	if !cond {
		panic(&UserError{Code: code, Msg: msg})
	}
}
