package vm

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------
//
// Invariant violations panic with *FatalError at the point of detection.
// Program panics panic with *UserError. Anything else escaping a code unit
// is wrapped in *HostError when the scheduler recovers it.

// FatalError reports a broken runtime invariant: double release,
// stack-bounds overflow, double resume, a second write to a capture slot.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return "sim error: " + e.Msg
}

// UserError is raised by compiled programs through Panic and assertion
// primitives. It terminates only the fiber that raised it.
type UserError struct {
	Code int
	Msg  string
}

func (e *UserError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("panic %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("panic %d", e.Code)
}

// HostError wraps a non-engine panic recovered at the scheduler boundary.
type HostError struct {
	Value any
	Stack []byte
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host exception: %v", e.Value)
}

// Unwrap exposes a wrapped error value, if the panic carried one.
func (e *HostError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsFatal reports whether err is an invariant violation.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsUserError reports whether err was raised by the running program.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

func fatalf(format string, args ...any) {
	panic(&FatalError{Msg: fmt.Sprintf(format, args...)})
}

func check(cond bool, msg string) {
	if !cond {
		panic(&FatalError{Msg: msg})
	}
}

// recoveredError normalizes a value obtained from recover().
func recoveredError(r any) error {
	switch e := r.(type) {
	case *FatalError:
		return e
	case *UserError:
		return e
	default:
		return &HostError{Value: r, Stack: debug.Stack()}
	}
}
