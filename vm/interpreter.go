package vm

import (
	"time"
)

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// CodeUnit is one compiled function. It runs frame f starting at f.PC and
// returns the next frame the trampoline should run, or nil to stop. A code
// unit never calls another code unit directly: it returns the callee's
// frame (Call) or its caller's frame (Leave).
type CodeUnit func(f *Frame) *Frame

// Frame is the execution record of one call. Frames are not reference
// counted; a fiber's chain of frames is owned by the scheduler.
type Frame struct {
	Fn     CodeUnit
	PC     int
	Parent *Frame
	Depth  int

	// Retval receives the return value of the most recent callee, or the
	// value a suspending primitive resumed with.
	Retval Value

	// Args are the arguments of an invoked closure; Caps its capture slots.
	Args []Value
	Caps []Value

	// Locals is scratch storage for the code unit's own variables.
	Locals []Value

	finalCallback func(Value)
	fiber         *Fiber
	rt            *Runtime
}

// Runtime returns the runtime executing the frame.
func (f *Frame) Runtime() *Runtime { return f.rt }

// Fiber returns the fiber the frame belongs to.
func (f *Frame) Fiber() *Fiber { return f.fiber }

// Arg returns argument i, or nil if it was not supplied.
func (f *Frame) Arg(i int) Value {
	if i < 0 || i >= len(f.Args) {
		return nil
	}
	return f.Args[i]
}

// Cap returns capture slot i of the invoked closure.
func (f *Frame) Cap(i int) Value {
	check(0 <= i && i < len(f.Caps), "frame: capture index out of range")
	return f.Caps[i]
}

// Local returns local i; unset locals read as nil.
func (f *Frame) Local(i int) Value {
	if i >= len(f.Locals) {
		return nil
	}
	return f.Locals[i]
}

// SetLocal stores local i, growing the local area as needed.
func (f *Frame) SetLocal(i int, v Value) {
	for len(f.Locals) <= i {
		f.Locals = append(f.Locals, nil)
	}
	f.Locals[i] = v
}

// Call suspends f at retPC and returns a new frame running fn. When fn
// leaves, the trampoline continues f at retPC with the result in f.Retval.
func (f *Frame) Call(retPC int, fn CodeUnit, args ...Value) *Frame {
	f.PC = retPC
	child := &Frame{Fn: fn, Parent: f, Args: args, fiber: f.fiber, rt: f.rt}
	return f.rt.actionCall(child, nil)
}

// CallClosure is Call for a closure value; the callee sees c's captures.
func (f *Frame) CallClosure(retPC int, c *Closure, args ...Value) *Frame {
	f.PC = retPC
	child := &Frame{Fn: c.Code, Parent: f, Args: args, Caps: c.caps, fiber: f.fiber, rt: f.rt}
	return f.rt.actionCall(child, nil)
}

// Leave returns v to the caller: it stores v in the parent's Retval, runs
// the frame's final callback, and hands the parent back to the trampoline.
func (f *Frame) Leave(v Value) *Frame {
	f.Parent.Retval = v
	if f.finalCallback != nil {
		f.finalCallback(v)
	}
	return f.Parent
}

// actionCall prepares a callee frame for its first step.
func (rt *Runtime) actionCall(s *Frame, cb func(Value)) *Frame {
	if cb != nil {
		s.finalCallback = cb
	}
	s.Depth = s.Parent.Depth + 1
	if s.Depth > rt.opts.MaxDepth {
		fatalf("stack overflow: depth %d exceeds %d", s.Depth, rt.opts.MaxDepth)
	}
	s.PC = 0
	return s
}

// ---------------------------------------------------------------------------
// Trampoline
// ---------------------------------------------------------------------------

// run drives frames until a code unit returns nil. prep, if set, turns the
// entry frame into the first frame to step (it may panic, e.g. on stack
// overflow, and is therefore run under the same recovery as the steps).
//
// A panic escaping a step is routed to the runtime's error handler and the
// owning fiber is abandoned without unwinding its frames.
func (rt *Runtime) run(p *Frame, prep func(*Frame) *Frame) {
	if rt.dead {
		log.Notice("runtime terminated")
		return
	}
	check(!rt.inLoop, "trampoline re-entered")
	rt.inLoop = true
	cur := p
	defer func() {
		rt.inLoop = false
		if r := recover(); r != nil {
			rt.fail(cur, recoveredError(r))
		}
	}()
	if prep != nil {
		p = prep(p)
	}
	for p != nil {
		cur = p
		rt.currFrame = p
		p = p.Fn(p)
		rt.MaybeUpdateDisplay()
	}
}

func (rt *Runtime) fail(f *Frame, err error) {
	// A resume set up by the failing step can never be consumed.
	rt.currResume = nil
	if f != nil && f.fiber != nil {
		f.fiber.fail(err)
	}
	if rt.ErrorHandler != nil {
		rt.ErrorHandler(err)
		return
	}
	log.Errorf("simulator crashed, no error handler: %v", err)
	if he, ok := err.(*HostError); ok {
		log.Debugf("%s", he.Stack)
	}
}

// ---------------------------------------------------------------------------
// Suspension and resumption
// ---------------------------------------------------------------------------

// ResumeFunc continues a suspended frame. Each ResumeFunc may be invoked at
// most once; the value becomes the pending operation's result. Passing a
// closure invocation (see RunAction) instead starts a child frame.
type ResumeFunc func(v Value)

// fnWrapper asks a resume to start a callee instead of delivering a value.
type fnWrapper struct {
	fn   CodeUnit
	caps []Value
	args []Value
	done func(Value)
}

// SetupResume records that f will suspend at retPC. Exactly one suspending
// primitive must then take the resume with GetResume. Setting up a second
// resume while one is pending is fatal.
func (rt *Runtime) SetupResume(f *Frame, retPC int) {
	if rt.currResume != nil {
		fatalf("already has resume")
	}
	rt.currResume = rt.buildResume(f, retPC)
}

// GetResume takes the pending resume. It is fatal if none was set up.
func (rt *Runtime) GetResume() ResumeFunc {
	if rt.currResume == nil {
		fatalf("no resume pending")
	}
	r := rt.currResume
	rt.currResume = nil
	return r
}

// CheckResumeConsumed fails if a resume was set up but not taken.
func (rt *Runtime) CheckResumeConsumed() {
	if rt.currResume != nil {
		fatalf("resume set up but never taken")
	}
}

// Await suspends f at retPC around a suspending primitive and stops the
// trampoline. Code units use it as: return rt.Await(f, 2, func() { rt.Pause(d) }).
func (rt *Runtime) Await(f *Frame, retPC int, prim func()) *Frame {
	rt.SetupResume(f, retPC)
	prim()
	rt.CheckResumeConsumed()
	return nil
}

func (rt *Runtime) buildResume(s *Frame, retPC int) ResumeFunc {
	s.PC = retPC
	used := false
	return func(v Value) {
		if used {
			fatalf("resume invoked twice")
		}
		used = true
		if rt.dead {
			return
		}
		if rt.inLoop {
			// Never nest trampolines: continue on the next tick.
			rt.nextTick(func() { rt.resume(s, retPC, v) })
			return
		}
		rt.resume(s, retPC, v)
	}
}

func (rt *Runtime) resume(s *Frame, retPC int, v Value) {
	if rt.dead {
		return
	}
	check(s.PC == retPC, "resume: frame moved since suspension")
	if w, ok := v.(*fnWrapper); ok {
		child := &Frame{
			Fn:     w.fn,
			Parent: s,
			Args:   w.args,
			Caps:   w.caps,
			fiber:  s.fiber,
			rt:     rt,
		}
		rt.run(child, func(f *Frame) *Frame { return rt.actionCall(f, w.done) })
		return
	}
	s.Retval = v
	rt.run(s, nil)
}

// MaybeYield hands control back to the host if the trampoline has been
// running for longer than the yield interval. When it returns true the code
// unit must return nil; execution continues at pc a few milliseconds later.
func (rt *Runtime) MaybeYield(f *Frame, pc int) bool {
	now := rt.opts.Now()
	if now.Sub(rt.lastYield) < rt.opts.YieldInterval {
		return false
	}
	rt.lastYield = now
	f.PC = pc
	rt.sched.AfterFunc(5*time.Millisecond, func() {
		rt.run(f, nil)
	})
	return true
}
