package vm

import (
	"testing"
	"time"

	"github.com/chazu/boardsim/host"
)

// testRuntime is a runtime on a virtual clock that records every error
// routed to its handler.
type testRuntime struct {
	*Runtime
	clock *host.Manual
	errs  []error
}

func newTestRuntime(t *testing.T, opts Options) *testRuntime {
	t.Helper()
	clock := host.NewManual()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts.Now = func() time.Time { return base.Add(clock.Now()) }
	tr := &testRuntime{clock: clock}
	tr.Runtime = NewRuntime(clock, opts)
	tr.ErrorHandler = func(err error) { tr.errs = append(tr.errs, err) }
	return tr
}

func (tr *testRuntime) noErrors(t *testing.T) {
	t.Helper()
	for _, err := range tr.errs {
		t.Errorf("unexpected error: %v", err)
	}
}

// expectFatal runs fn and fails the test unless it panics with a
// *FatalError.
func expectFatal(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Errorf("%s: expected fatal error, got none", name)
			return
		}
		if _, ok := r.(*FatalError); !ok {
			t.Errorf("%s: expected *FatalError, got %T: %v", name, r, r)
		}
	}()
	fn()
}

// leaf returns a code unit that leaves immediately with f(args).
func leaf(f func(fr *Frame) Value) CodeUnit {
	return func(fr *Frame) *Frame { return fr.Leave(f(fr)) }
}
