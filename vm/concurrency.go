package vm

import (
	"errors"
	"time"
)

// ErrDead is the error of a fiber started on a killed runtime.
var ErrDead = errors.New("runtime is dead")

// MaxActionArgs is the largest number of arguments RunFiber passes on.
const MaxActionArgs = 3

// ---------------------------------------------------------------------------
// Fiber: one logical thread of execution
// ---------------------------------------------------------------------------

// FiberState represents the state of a fiber.
type FiberState int

const (
	FiberRunning FiberState = iota
	FiberDone
	FiberFailed
)

func (s FiberState) String() string {
	switch s {
	case FiberRunning:
		return "running"
	case FiberDone:
		return "done"
	case FiberFailed:
		return "failed"
	}
	return "unknown"
}

// Fiber is the handle of a started closure invocation. It settles exactly
// once, either with the closure's return value or with the error that
// abandoned it.
type Fiber struct {
	id      uint64
	rt      *Runtime
	state   FiberState
	result  Value
	err     error
	done    chan struct{}
	waiters []func(*Fiber)
	cleanup []func()
}

func (rt *Runtime) newFiber() *Fiber {
	rt.nextFiberID++
	return &Fiber{id: rt.nextFiberID, rt: rt, done: make(chan struct{})}
}

// ID returns the fiber's runtime-unique id.
func (fb *Fiber) ID() uint64 { return fb.id }

// State returns the fiber's current state.
func (fb *Fiber) State() FiberState { return fb.state }

// IsDone reports whether the fiber has settled.
func (fb *Fiber) IsDone() bool { return fb.state != FiberRunning }

// Done is closed when the fiber settles.
func (fb *Fiber) Done() <-chan struct{} { return fb.done }

// Result returns the closure's return value once the fiber is done.
func (fb *Fiber) Result() Value { return fb.result }

// Err returns the error that abandoned the fiber, if any.
func (fb *Fiber) Err() error { return fb.err }

// OnSettled registers cb to run on the tick after the fiber settles. If the
// fiber has already settled, cb runs on the next tick.
func (fb *Fiber) OnSettled(cb func(*Fiber)) {
	if fb.IsDone() {
		fb.rt.nextTick(func() { cb(fb) })
		return
	}
	fb.waiters = append(fb.waiters, cb)
}

func (fb *Fiber) settle(v Value) {
	if fb.IsDone() {
		return
	}
	fb.state = FiberDone
	fb.result = v
	fb.finish()
}

func (fb *Fiber) fail(err error) {
	if fb.IsDone() {
		return
	}
	fb.state = FiberFailed
	fb.err = err
	fb.finish()
}

func (fb *Fiber) finish() {
	cleanup := fb.cleanup
	fb.cleanup = nil
	for _, fn := range cleanup {
		fn()
	}
	close(fb.done)
	waiters := fb.waiters
	fb.waiters = nil
	for _, cb := range waiters {
		cb := cb
		fb.rt.nextTick(func() { cb(fb) })
	}
}

// ---------------------------------------------------------------------------
// Starting fibers
// ---------------------------------------------------------------------------

// RunFiber starts c as a new fiber with up to three arguments. The closure
// is retained until the fiber settles. Execution starts on the next host
// tick, so RunFiber never re-enters the trampoline.
func (rt *Runtime) RunFiber(c *Closure, args ...Value) *Fiber {
	check(len(args) <= MaxActionArgs, "runFiber: too many arguments")
	fb := rt.newFiber()
	if rt.dead {
		fb.fail(ErrDead)
		return fb
	}
	rt.heap.Retain(c)
	fb.cleanup = append(fb.cleanup, func() { rt.heap.Release(c) })
	rt.nextTick(func() {
		if rt.dead {
			fb.fail(ErrDead)
			return
		}
		top := rt.setupTop(fb, nil)
		rt.RunAction(top, c, args...)
	})
	return fb
}

// RunInBackground starts c as a fiber nobody waits for.
func (rt *Runtime) RunInBackground(c *Closure, args ...Value) {
	rt.RunFiber(c, args...)
}

// Forever runs c, waits ForeverInterval after each completion, and runs it
// again until the runtime dies or an iteration fails.
func (rt *Runtime) Forever(c *Closure) {
	rt.heap.Retain(c)
	var iterate func()
	iterate = func() {
		if rt.dead {
			rt.heap.Release(c)
			return
		}
		rt.RunFiber(c).OnSettled(func(fb *Fiber) {
			if fb.Err() != nil {
				rt.heap.Release(c)
				return
			}
			rt.sched.AfterFunc(rt.opts.ForeverInterval, iterate)
		})
	}
	iterate()
}

// setupTop creates the scheduler-owned root frame of a fiber. When the
// fiber's outermost call leaves, the root frame settles the fiber and runs
// cb with the return value.
func (rt *Runtime) setupTop(fb *Fiber, cb func(Value)) *Frame {
	return &Frame{
		rt:    rt,
		fiber: fb,
		Fn: func(f *Frame) *Frame {
			v := f.Retval
			fb.settle(v)
			if cb != nil {
				cb(v)
			}
			return nil
		},
	}
}

// RunAction invokes c as a child of the suspended frame top. The call is
// delivered through top's resume, so it starts a fresh child frame and, if
// the trampoline is busy, is deferred to the next tick.
func (rt *Runtime) RunAction(top *Frame, c *Closure, args ...Value) {
	rt.SetupResume(top, top.PC)
	resume := rt.GetResume()
	resume(&fnWrapper{fn: c.Code, caps: c.caps, args: args})
}

// ---------------------------------------------------------------------------
// Suspending primitives
// ---------------------------------------------------------------------------
//
// Each takes the pending resume set up by the calling code unit (see Await)
// and arranges for it to be invoked exactly once.

// Pause resumes the current frame after d.
func (rt *Runtime) Pause(d time.Duration) {
	resume := rt.GetResume()
	rt.sched.AfterFunc(d, func() { resume(nil) })
}

// Join resumes the current frame with fb's return value once fb settles.
// A failed fiber resumes it with nil.
func (rt *Runtime) Join(fb *Fiber) {
	resume := rt.GetResume()
	fb.OnSettled(func(fb *Fiber) {
		if fb.Err() != nil {
			resume(nil)
			return
		}
		resume(fb.Result())
	})
}
