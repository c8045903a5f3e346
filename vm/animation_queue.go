package vm

import (
	"time"

	"github.com/chazu/boardsim/host"
)

// Animation is one entry of an AnimationQueue. Frame runs once per step and
// returns false when the animation is complete. WhenDone runs exactly once,
// with cancelled set if the entry was cancelled before completing.
type Animation struct {
	Interval time.Duration
	Frame    func() bool
	WhenDone func(cancelled bool)
}

// AnimationQueue runs animations one after another. The head entry is the
// active one: its first step runs as soon as it becomes active, and further
// steps follow every Interval. When an entry completes, the next one starts
// after its own interval.
type AnimationQueue struct {
	rt    *Runtime
	queue []*Animation
	timer host.Timer
}

// NewAnimationQueue creates an empty queue on rt.
func (rt *Runtime) NewAnimationQueue() *AnimationQueue {
	return &AnimationQueue{rt: rt}
}

// Len returns the number of entries, including the active one.
func (a *AnimationQueue) Len() int { return len(a.queue) }

// Enqueue appends anim. If the queue was empty, anim's first step runs
// immediately.
func (a *AnimationQueue) Enqueue(anim *Animation) {
	check(anim != nil && anim.Frame != nil, "animation: missing frame function")
	check(anim.Interval >= 0, "animation: negative interval")
	if anim.WhenDone == nil {
		anim.WhenDone = func(bool) {}
	}
	a.queue = append(a.queue, anim)
	if len(a.queue) == 1 {
		a.process()
	}
}

func (a *AnimationQueue) process() {
	a.timer = nil
	if len(a.queue) == 0 || a.rt.dead {
		return
	}
	top := a.queue[0]
	more := top.Frame()
	a.rt.QueueDisplayUpdate()
	a.rt.MaybeUpdateDisplay()
	if len(a.queue) == 0 || a.queue[0] != top {
		// The step cancelled its own entry.
		return
	}
	if more {
		a.schedule(top.Interval)
		return
	}
	a.queue = a.queue[1:]
	if len(a.queue) > 0 {
		a.schedule(a.queue[0].Interval)
	}
	// May enqueue more entries.
	top.WhenDone(false)
}

func (a *AnimationQueue) schedule(d time.Duration) {
	a.timer = a.rt.sched.AfterFunc(d, a.process)
}

func (a *AnimationQueue) stop() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// CancelAll empties the queue without running further steps and calls
// every entry's WhenDone(true), in queue order.
func (a *AnimationQueue) CancelAll() {
	a.stop()
	q := a.queue
	a.queue = nil
	for _, anim := range q {
		anim.WhenDone(true)
	}
}

// CancelCurrent cancels the active entry. The next entry, if any, starts
// after its interval.
func (a *AnimationQueue) CancelCurrent() {
	if len(a.queue) == 0 {
		return
	}
	a.stop()
	top := a.queue[0]
	a.queue = a.queue[1:]
	if len(a.queue) > 0 {
		a.schedule(a.queue[0].Interval)
	}
	top.WhenDone(true)
}

// ExecuteAsync is a suspending primitive: it enqueues anim and resumes the
// current frame with true if the animation was cancelled, false if it
// completed. anim must not carry its own WhenDone.
func (a *AnimationQueue) ExecuteAsync(anim *Animation) {
	check(anim.WhenDone == nil, "animation: executeAsync with completion callback")
	resume := a.rt.GetResume()
	anim.WhenDone = func(cancelled bool) { resume(cancelled) }
	a.Enqueue(anim)
}
