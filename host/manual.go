package host

import (
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

// Manual is a virtual clock. Callbacks run only when the owner calls
// Advance or RunPending, in due-time order with ties broken by scheduling
// order. It is not safe for concurrent use.
type Manual struct {
	now     time.Duration
	seq     uint64
	pending int
	queue   *priorityqueue.Queue
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.m.pending--
	return true
}

func byDueTime(a, b interface{}) int {
	ta, tb := a.(*manualTimer), b.(*manualTimer)
	switch {
	case ta.at < tb.at:
		return -1
	case ta.at > tb.at:
		return 1
	case ta.seq < tb.seq:
		return -1
	case ta.seq > tb.seq:
		return 1
	}
	return 0
}

// NewManual creates a virtual clock at time zero.
func NewManual() *Manual {
	return &Manual{queue: priorityqueue.NewWith(byDueTime)}
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration { return m.now }

// Pending returns the number of callbacks not yet run or stopped.
func (m *Manual) Pending() int { return m.pending }

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.queue.Enqueue(t)
	m.pending++
	return t
}

// Advance moves the clock forward by d, running every callback that falls
// due, including callbacks scheduled by callbacks. It returns the number of
// callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	target := m.now + d
	ran := 0
	for {
		head, ok := m.queue.Peek()
		if !ok {
			break
		}
		t := head.(*manualTimer)
		if t.at > target {
			break
		}
		m.queue.Dequeue()
		if t.stopped {
			continue
		}
		if t.at > m.now {
			m.now = t.at
		}
		t.fired = true
		m.pending--
		t.fn()
		ran++
	}
	m.now = target
	return ran
}

// RunPending runs every callback already due at the current time.
func (m *Manual) RunPending() int {
	return m.Advance(0)
}

// RunUntilIdle advances time until no callbacks remain or limit callbacks
// have run. It returns the number of callbacks run.
func (m *Manual) RunUntilIdle(limit int) int {
	ran := 0
	for ran < limit {
		head, ok := m.queue.Peek()
		if !ok {
			break
		}
		t := head.(*manualTimer)
		ran += m.Advance(t.at - m.now)
	}
	return ran
}
