package vm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/boardsim/host"
	"github.com/chazu/boardsim/vm/wire"
)

var log = commonlog.GetLogger("boardsim.vm")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures a Runtime. Zero fields take their defaults.
type Options struct {
	Globals         int           // global slot table size
	MaxDepth        int           // deepest allowed call chain
	EventQueueMax   int           // per-queue capacity
	ForeverInterval time.Duration // delay between Forever iterations
	YieldInterval   time.Duration // MaybeYield threshold
	RefCountDebug   bool          // log live objects in DumpLive

	// Now reads the clock used for running time, yields and message
	// timestamps. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the device defaults.
func DefaultOptions() Options {
	return Options{
		Globals:         1000,
		MaxDepth:        1000,
		EventQueueMax:   DefaultEventQueueMax,
		ForeverInterval: 20 * time.Millisecond,
		YieldInterval:   20 * time.Millisecond,
		Now:             time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Globals <= 0 {
		o.Globals = d.Globals
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.EventQueueMax <= 0 {
		o.EventQueueMax = d.EventQueueMax
	}
	if o.ForeverInterval <= 0 {
		o.ForeverInterval = d.ForeverInterval
	}
	if o.YieldInterval <= 0 {
		o.YieldInterval = d.YieldInterval
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// ---------------------------------------------------------------------------
// Runtime
// ---------------------------------------------------------------------------

// Runtime executes compiled programs on a single logical thread. Every
// method must be called from the host scheduler's thread: inside a
// scheduled callback, or before the scheduler starts running callbacks.
type Runtime struct {
	id      string
	opts    Options
	sched   host.Scheduler
	heap    *Heap
	globals *Globals
	bus     *EventBus
	board   Board

	// ErrorHandler receives errors that abandon a fiber. When nil they are
	// logged.
	ErrorHandler func(err error)

	// OnMessage receives every message the runtime posts to its host.
	OnMessage func(m wire.Message)

	// StateChanged is called when the runtime starts or stops running.
	StateChanged func()

	dead      bool
	running   bool
	startTime time.Time
	lastYield time.Time

	inLoop     bool
	currResume ResumeFunc
	currFrame  *Frame

	numDisplayUpdates int
	nextFiberID       uint64
}

// NewRuntime creates a runtime scheduling its work on sched.
func NewRuntime(sched host.Scheduler, opts Options) *Runtime {
	opts = opts.withDefaults()
	rt := &Runtime{
		id:    uuid.NewString(),
		opts:  opts,
		sched: sched,
		heap:  NewHeap(),
	}
	rt.heap.Debug = opts.RefCountDebug
	rt.globals = newGlobals(rt.heap, opts.Globals)
	rt.bus = newEventBus(rt)
	rt.lastYield = opts.Now()
	return rt
}

// ID returns the runtime's unique id.
func (rt *Runtime) ID() string { return rt.id }

// Options returns the effective options.
func (rt *Runtime) Options() Options { return rt.opts }

// Heap returns the runtime's object heap.
func (rt *Runtime) Heap() *Heap { return rt.heap }

// Globals returns the global slot table.
func (rt *Runtime) Globals() *Globals { return rt.globals }

// Bus returns the device event bus.
func (rt *Runtime) Bus() *EventBus { return rt.bus }

// Board returns the installed board, or nil.
func (rt *Runtime) Board() Board { return rt.board }

// SetBoard installs the peripheral host.
func (rt *Runtime) SetBoard(b Board) { rt.board = b }

// IsDead reports whether the runtime was killed.
func (rt *Runtime) IsDead() bool { return rt.dead }

// IsRunning reports whether a program is running.
func (rt *Runtime) IsRunning() bool { return rt.running }

// CurrentFrame returns the frame most recently stepped by the trampoline.
func (rt *Runtime) CurrentFrame() *Frame { return rt.currFrame }

func (rt *Runtime) nextTick(fn func()) {
	rt.sched.AfterFunc(0, fn)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Run starts entry as the program's main fiber and drives it until it
// first suspends or completes. cb, if set, receives the program's result.
func (rt *Runtime) Run(entry CodeUnit, cb func(Value)) *Fiber {
	check(!rt.inLoop, "run: trampoline busy")
	fb := rt.newFiber()
	if rt.dead {
		fb.fail(ErrDead)
		return fb
	}
	rt.SetRunning(true)
	top := rt.setupTop(fb, cb)
	frame := &Frame{Fn: entry, Parent: top, fiber: fb, rt: rt}
	rt.run(frame, func(f *Frame) *Frame { return rt.actionCall(f, nil) })
	return fb
}

// Kill marks the runtime dead. The trampoline refuses further steps and
// pending resumes are ignored.
func (rt *Runtime) Kill() {
	rt.dead = true
	rt.SetRunning(false)
}

// SetRunning records a running-state change and posts a status message.
func (rt *Runtime) SetRunning(r bool) {
	if rt.running == r {
		return
	}
	rt.running = r
	state := wire.StateKilled
	if r {
		rt.startTime = rt.opts.Now()
		state = wire.StateRunning
	}
	log.Infof("runtime %s %s", rt.id, state)
	rt.PostMessage(&wire.StatusMessage{RuntimeID: rt.id, State: state})
	if rt.StateChanged != nil {
		rt.StateChanged()
	}
}

// RunningTime returns the time elapsed since the runtime started running.
func (rt *Runtime) RunningTime() time.Duration {
	if rt.startTime.IsZero() {
		return 0
	}
	return rt.opts.Now().Sub(rt.startTime)
}

// ---------------------------------------------------------------------------
// Display
// ---------------------------------------------------------------------------

// QueueDisplayUpdate marks display state dirty.
func (rt *Runtime) QueueDisplayUpdate() {
	rt.numDisplayUpdates++
}

// MaybeUpdateDisplay refreshes the board's view if the display is dirty.
func (rt *Runtime) MaybeUpdateDisplay() {
	if rt.numDisplayUpdates > 0 {
		rt.numDisplayUpdates = 0
		rt.UpdateDisplay()
	}
}

// UpdateDisplay refreshes the board's view unconditionally.
func (rt *Runtime) UpdateDisplay() {
	if rt.board != nil {
		rt.board.UpdateView()
	}
}

// ---------------------------------------------------------------------------
// Host messages
// ---------------------------------------------------------------------------

// PostMessage sends m to the host.
func (rt *Runtime) PostMessage(m wire.Message) {
	if rt.OnMessage != nil {
		rt.OnMessage(m)
	}
}

// ReceiveMessage decodes a host message, hands it to the board and routes
// event-bus messages onto the event bus.
func (rt *Runtime) ReceiveMessage(data []byte) error {
	m, err := wire.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("receive message: %w", err)
	}
	rt.Deliver(m)
	return nil
}

// Deliver is ReceiveMessage for an already decoded message.
func (rt *Runtime) Deliver(m wire.Message) {
	if rt.board != nil {
		rt.board.ReceiveMessage(m)
	}
	if ev, ok := m.(*wire.EventBusMessage); ok {
		rt.bus.Queue(ev.ID, ev.EventID, int32(ev.Value))
	}
}

// RuntimeWarning logs msg and forwards it to the host.
func (rt *Runtime) RuntimeWarning(msg string) {
	log.Warning(msg)
	rt.PostMessage(&wire.WarningMessage{Message: msg})
}
