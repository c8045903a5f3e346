package vm

import (
	"errors"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Trampoline
// ---------------------------------------------------------------------------

func TestRunReturnsValue(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	double := leaf(func(f *Frame) Value { return ToInt32(f.Arg(0)) * 2 })
	main := func(f *Frame) *Frame {
		switch f.PC {
		case 0:
			return f.Call(1, double, int32(21))
		default:
			return f.Leave(f.Retval)
		}
	}

	var got Value
	fb := rt.Run(main, func(v Value) { got = v })

	if got != int32(42) {
		t.Errorf("result = %v, want 42", got)
	}
	if fb.State() != FiberDone || fb.Result() != int32(42) {
		t.Errorf("fiber = %v/%v, want done/42", fb.State(), fb.Result())
	}
	if !rt.IsRunning() {
		t.Error("Run should mark the runtime running")
	}
	rt.noErrors(t)
}

// TestManySequentialCalls makes 100,000 calls in a row. Each call returns
// through the trampoline, so the host stack does not grow.
func TestManySequentialCalls(t *testing.T) {
	const n = 100000
	rt := newTestRuntime(t, Options{})
	inc := leaf(func(f *Frame) Value { return ToInt32(f.Arg(0)) + 1 })
	main := func(f *Frame) *Frame {
		for {
			switch f.PC {
			case 0:
				f.SetLocal(0, int32(0))
				f.PC = 1
			case 1:
				if ToInt32(f.Local(0)) >= n {
					return f.Leave(f.Local(0))
				}
				return f.Call(2, inc, f.Local(0))
			case 2:
				f.SetLocal(0, f.Retval)
				f.PC = 1
			}
		}
	}

	var got Value
	rt.Run(main, func(v Value) { got = v })
	if got != int32(n) {
		t.Errorf("result = %v, want %d", got, n)
	}
	rt.noErrors(t)
}

func TestDeepRecursionWithinLimit(t *testing.T) {
	rt := newTestRuntime(t, Options{MaxDepth: 1000})
	var countdown CodeUnit
	countdown = func(f *Frame) *Frame {
		switch f.PC {
		case 0:
			n := ToInt32(f.Arg(0))
			if n == 0 {
				return f.Leave(int32(0))
			}
			return f.Call(1, countdown, n-1)
		default:
			return f.Leave(ToInt32(f.Retval) + 1)
		}
	}

	var got Value
	rt.Run(func(f *Frame) *Frame {
		if f.PC == 0 {
			return f.Call(1, countdown, int32(998))
		}
		return f.Leave(f.Retval)
	}, func(v Value) { got = v })

	if got != int32(998) {
		t.Errorf("result = %v, want 998", got)
	}
	rt.noErrors(t)
}

func TestStackOverflowIsFatal(t *testing.T) {
	rt := newTestRuntime(t, Options{MaxDepth: 50})
	var rec CodeUnit
	rec = func(f *Frame) *Frame {
		if f.PC == 0 {
			return f.Call(1, rec)
		}
		return f.Leave(nil)
	}

	fb := rt.Run(rec, nil)

	if len(rt.errs) != 1 || !IsFatal(rt.errs[0]) {
		t.Fatalf("errors = %v, want one fatal error", rt.errs)
	}
	if fb.State() != FiberFailed || !IsFatal(fb.Err()) {
		t.Errorf("fiber = %v (%v), want failed with fatal error", fb.State(), fb.Err())
	}
}

func TestCallClosureSeesCaptures(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	h := rt.Heap()
	add := leaf(func(f *Frame) Value { return ToInt32(f.Cap(0)) + ToInt32(f.Arg(0)) })
	c := h.StClo(h.NewClosure(0, 1, add), 0, int32(100))

	var got Value
	rt.Run(func(f *Frame) *Frame {
		if f.PC == 0 {
			return f.CallClosure(1, c, int32(5))
		}
		return f.Leave(f.Retval)
	}, func(v Value) { got = v })

	if got != int32(105) {
		t.Errorf("result = %v, want 105", got)
	}
	h.Release(c)
	if h.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", h.LiveCount())
	}
}

// ---------------------------------------------------------------------------
// Suspension and resumption
// ---------------------------------------------------------------------------

// suspender returns a code unit that suspends once, handing its resume to
// save, and leaves with the value it is resumed with.
func suspender(rt *testRuntime, save func(ResumeFunc)) CodeUnit {
	return func(f *Frame) *Frame {
		if f.PC == 0 {
			return rt.Await(f, 1, func() { save(rt.GetResume()) })
		}
		return f.Leave(f.Retval)
	}
}

func TestResumeDeliversValue(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	var resume ResumeFunc
	fb := rt.Run(suspender(rt, func(r ResumeFunc) { resume = r }), nil)

	if fb.IsDone() {
		t.Fatal("fiber should be suspended")
	}
	resume(int32(7))
	if !fb.IsDone() || fb.Result() != int32(7) {
		t.Errorf("fiber = %v/%v, want done/7", fb.State(), fb.Result())
	}
	rt.noErrors(t)
}

func TestDoubleResumeIsFatal(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	var resume ResumeFunc
	rt.Run(suspender(rt, func(r ResumeFunc) { resume = r }), nil)

	resume(int32(1))
	expectFatal(t, "second resume", func() { resume(int32(2)) })
}

func TestSecondSetupResumeIsFatal(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	fb := rt.Run(func(f *Frame) *Frame {
		rt.SetupResume(f, 1)
		rt.SetupResume(f, 1)
		return nil
	}, nil)

	if len(rt.errs) != 1 || !IsFatal(rt.errs[0]) {
		t.Fatalf("errors = %v, want one fatal error", rt.errs)
	}
	if fb.State() != FiberFailed {
		t.Errorf("fiber state = %v, want failed", fb.State())
	}
	// The failed step must not leave a dangling resume behind.
	rt.Run(suspender(rt, func(ResumeFunc) {}), nil)
	if len(rt.errs) != 1 {
		t.Errorf("errors = %v, want no new errors", rt.errs)
	}
}

func TestUnconsumedResumeIsFatal(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	rt.Run(func(f *Frame) *Frame {
		return rt.Await(f, 1, func() {})
	}, nil)

	if len(rt.errs) != 1 || !IsFatal(rt.errs[0]) {
		t.Errorf("errors = %v, want one fatal error", rt.errs)
	}
}

func TestGetResumeWithoutSetupIsFatal(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	expectFatal(t, "GetResume", func() { rt.GetResume() })
}

// TestResumeInsideTrampolineIsDeferred resumes a suspended fiber from code
// running on the trampoline. The resumed fiber continues on the next tick
// instead of nesting a second trampoline.
func TestResumeInsideTrampolineIsDeferred(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	var resume ResumeFunc
	waiter := rt.Run(suspender(rt, func(r ResumeFunc) { resume = r }), nil)

	h := rt.Heap()
	waker := h.NewClosure(0, 0, leaf(func(*Frame) Value {
		resume(int32(3))
		return nil
	}))
	wakerFiber := rt.RunFiber(waker)
	h.Release(waker)

	rt.clock.RunPending()
	if !wakerFiber.IsDone() {
		t.Fatal("waker fiber should have completed")
	}
	if !waiter.IsDone() || waiter.Result() != int32(3) {
		t.Errorf("waiter = %v/%v, want done/3", waiter.State(), waiter.Result())
	}
	rt.noErrors(t)
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestUserErrorTerminatesOnlyItsFiber(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	h := rt.Heap()
	bad := h.NewClosure(0, 0, leaf(func(*Frame) Value {
		Panic(42)
		return nil
	}))
	good := h.NewClosure(0, 0, leaf(func(*Frame) Value { return "ok" }))

	badFiber := rt.RunFiber(bad)
	goodFiber := rt.RunFiber(good)
	h.Release(bad)
	h.Release(good)
	rt.clock.RunPending()

	if len(rt.errs) != 1 {
		t.Fatalf("errors = %v, want one", rt.errs)
	}
	var ue *UserError
	if !errors.As(rt.errs[0], &ue) || ue.Code != 42 {
		t.Errorf("error = %v, want user panic 42", rt.errs[0])
	}
	if badFiber.State() != FiberFailed {
		t.Errorf("bad fiber state = %v, want failed", badFiber.State())
	}
	if goodFiber.Result() != "ok" {
		t.Errorf("good fiber result = %v, want ok", goodFiber.Result())
	}
	if h.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", h.LiveCount())
	}
}

func TestHostPanicIsWrapped(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	fb := rt.Run(func(*Frame) *Frame { panic("boom") }, nil)

	if len(rt.errs) != 1 {
		t.Fatalf("errors = %v, want one", rt.errs)
	}
	var he *HostError
	if !errors.As(rt.errs[0], &he) {
		t.Fatalf("error = %#v, want *HostError", rt.errs[0])
	}
	if he.Value != "boom" {
		t.Errorf("panic value = %v, want boom", he.Value)
	}
	if len(he.Stack) == 0 {
		t.Error("host error should carry a stack")
	}
	if fb.Err() == nil {
		t.Error("fiber should carry the error")
	}
}

func TestCrashWithoutHandlerIsLogged(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	rt.ErrorHandler = nil
	fb := rt.Run(func(*Frame) *Frame { panic("boom") }, nil)
	if fb.State() != FiberFailed {
		t.Errorf("fiber state = %v, want failed", fb.State())
	}
}

func TestDeadRuntimeRefusesWork(t *testing.T) {
	rt := newTestRuntime(t, Options{})
	var resume ResumeFunc
	fb := rt.Run(suspender(rt, func(r ResumeFunc) { resume = r }), nil)

	rt.Kill()
	resume(int32(1))
	if fb.IsDone() {
		t.Error("a dead runtime must not continue suspended fibers")
	}

	h := rt.Heap()
	c := h.NewClosure(0, 0, leaf(func(*Frame) Value { return nil }))
	late := rt.RunFiber(c)
	if !errors.Is(late.Err(), ErrDead) {
		t.Errorf("late fiber error = %v, want ErrDead", late.Err())
	}
	h.Release(c)
	if h.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", h.LiveCount())
	}
}

// ---------------------------------------------------------------------------
// Cooperative yield
// ---------------------------------------------------------------------------

func TestMaybeYield(t *testing.T) {
	rt := newTestRuntime(t, Options{YieldInterval: 20 * time.Millisecond})
	steps := 0
	fb := rt.Run(func(f *Frame) *Frame {
		for {
			steps++
			if steps == 3 {
				return f.Leave(int32(steps))
			}
			if rt.MaybeYield(f, f.PC+1) {
				return nil
			}
		}
	}, nil)

	// No time has passed since the runtime was created.
	if !fb.IsDone() {
		t.Fatalf("fiber should finish without yielding, state %v", fb.State())
	}

	steps = 0
	rt.clock.Advance(25 * time.Millisecond)
	fb = rt.Run(func(f *Frame) *Frame {
		steps++
		if f.PC == 1 {
			return f.Leave(int32(steps))
		}
		if rt.MaybeYield(f, 1) {
			return nil
		}
		return f.Leave(int32(-1))
	}, nil)
	if fb.IsDone() {
		t.Fatal("fiber should have yielded")
	}
	rt.clock.Advance(5 * time.Millisecond)
	if fb.Result() != int32(2) {
		t.Errorf("result = %v, want 2", fb.Result())
	}
	rt.noErrors(t)
}
