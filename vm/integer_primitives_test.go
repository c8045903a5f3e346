package vm

import (
	"errors"
	"math"
	"testing"
)

func TestIntegerConversions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(Value) int32
		in   Value
		want int32
	}{
		{"ToInt8 wraps", ToInt8, int32(200), -56},
		{"ToInt8 negative", ToInt8, int32(-1), -1},
		{"ToUInt8 masks", ToUInt8, int32(-1), 255},
		{"ToInt16 wraps", ToInt16, int32(40000), -25536},
		{"ToUInt16 masks", ToUInt16, int32(70000), 4464},
		{"ToInt32 truncates", ToInt32, 3.9, 3},
		{"ToInt32 truncates negative", ToInt32, -3.9, -3},
		{"ToInt32 wraps", ToInt32, 4294967296.0 + 5, 5},
		{"ToInt32 high bit", ToInt32, 2147483648.0, math.MinInt32},
		{"ToInt32 NaN", ToInt32, math.NaN(), 0},
		{"ToInt32 Inf", ToInt32, math.Inf(1), 0},
		{"ToInt32 nil", ToInt32, nil, 0},
		{"ToInt32 bool", ToInt32, true, 1},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
	if got := ToUInt32(int32(-1)); got != math.MaxUint32 {
		t.Errorf("ToUInt32(-1) = %d, want %d", got, uint32(math.MaxUint32))
	}
}

func TestIntegerArithmetic(t *testing.T) {
	if got := IntAdd(int32(math.MaxInt32), int32(1)); got != math.MinInt32 {
		t.Errorf("IntAdd overflow = %d", got)
	}
	if got := IntSub(int32(math.MinInt32), int32(1)); got != math.MaxInt32 {
		t.Errorf("IntSub underflow = %d", got)
	}
	if got := IntMul(int32(65536), int32(65536)); got != 0 {
		t.Errorf("IntMul(65536, 65536) = %d, want 0", got)
	}
	if got := IntMul(int32(-3), int32(7)); got != -21 {
		t.Errorf("IntMul(-3, 7) = %d, want -21", got)
	}

	divs := []struct {
		a, b, want int32
	}{
		{7, 2, 3},
		{-7, 2, -3},
		{7, -2, -3},
		{7, 0, 0},
		{math.MinInt32, -1, math.MinInt32},
	}
	for _, d := range divs {
		if got := IntDiv(d.a, d.b); got != d.want {
			t.Errorf("IntDiv(%d, %d) = %d, want %d", d.a, d.b, got, d.want)
		}
	}
}

func TestNullFix(t *testing.T) {
	tests := []struct {
		in, want Value
	}{
		{nil, int32(0)},
		{false, int32(0)},
		{true, int32(1)},
		{int32(5), int32(5)},
		{"s", "s"},
	}
	for _, tt := range tests {
		if got := NullFix(tt.in); got != tt.want {
			t.Errorf("NullFix(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUserPanics(t *testing.T) {
	catch := func(fn func()) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recoveredError(r)
			}
		}()
		fn()
		return nil
	}

	var ue *UserError
	if err := catch(func() { Panic(909) }); !errors.As(err, &ue) || ue.Code != 909 {
		t.Errorf("Panic(909) raised %v", err)
	}
	if err := catch(func() { NullCheck(nil) }); !IsUserError(err) {
		t.Errorf("NullCheck(nil) raised %v, want user error", err)
	}
	if err := catch(func() { NullCheck(int32(0)) }); err != nil {
		t.Errorf("NullCheck(0) raised %v", err)
	}
	if err := catch(func() { Assert(false, 5, "bad") }); !IsUserError(err) || IsFatal(err) {
		t.Errorf("Assert(false) raised %v, want user error", err)
	}
	if err := catch(func() { Assert(true, 5, "bad") }); err != nil {
		t.Errorf("Assert(true) raised %v", err)
	}
}
