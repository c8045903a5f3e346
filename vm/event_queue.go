package vm

// DefaultEventQueueMax is the default capacity of an event queue.
const DefaultEventQueueMax = 5

// EventQueue pairs handler closures with a bounded FIFO of event payloads.
// Events are dispatched one at a time: every handler runs, in order, as its
// own fiber, and the next event starts only after the last handler's fiber
// has settled. Pushing onto a full queue drops the new event.
//
// Capacity counts the event being dispatched: with Max 5 and a handler
// suspended, four more events are accepted.
type EventQueue struct {
	rt       *Runtime
	Max      int
	events   []Value
	handlers []*Closure
	awaiters []ResumeFunc
	busy     bool

	// ToArgs converts a payload into handler arguments. The default passes
	// the payload as the only argument.
	ToArgs func(e Value) []Value
}

// NewEventQueue creates an empty queue with the runtime's configured
// capacity.
func (rt *Runtime) NewEventQueue() *EventQueue {
	return &EventQueue{rt: rt, Max: rt.opts.EventQueueMax}
}

// Len returns the number of accepted events not yet settled, including the
// one being dispatched.
func (q *EventQueue) Len() int {
	n := len(q.events)
	if q.busy {
		n++
	}
	return n
}

// Handlers returns the queue's handlers in dispatch order.
func (q *EventQueue) Handlers() []*Closure {
	return q.handlers
}

// Push offers e to the queue. Pending awaiters are woken first: all of them,
// or only the oldest when notifyOne is set. It reports whether e was queued;
// an event is dropped when the queue has no handler or is full.
func (q *EventQueue) Push(e Value, notifyOne bool) bool {
	if len(q.awaiters) > 0 {
		if notifyOne {
			aw := q.awaiters[0]
			q.awaiters = q.awaiters[1:]
			aw(e)
		} else {
			aws := q.awaiters
			q.awaiters = nil
			for _, aw := range aws {
				aw(e)
			}
		}
	}
	if len(q.handlers) == 0 {
		return false
	}
	if q.Len() >= q.Max {
		log.Debugf("event queue full, dropping %s", DebugString(e))
		return false
	}
	q.events = append(q.events, e)
	if !q.busy {
		q.poke()
	}
	return true
}

func (q *EventQueue) poke() {
	q.busy = true
	e := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	handlers := make([]*Closure, len(q.handlers))
	for i, h := range q.handlers {
		q.rt.heap.Retain(h)
		handlers[i] = h
	}
	q.dispatch(handlers, e)
}

// dispatch runs handlers[0] for e and continues with the rest once its
// fiber settles. Each snapshot entry holds a reference until its fiber is
// started, so removing a handler mid-event does not free it early.
func (q *EventQueue) dispatch(handlers []*Closure, e Value) {
	if len(handlers) == 0 {
		if len(q.events) > 0 {
			q.poke()
		} else {
			q.busy = false
		}
		return
	}
	h := handlers[0]
	fb := q.rt.RunFiber(h, q.args(e)...)
	q.rt.heap.Release(h)
	fb.OnSettled(func(*Fiber) {
		q.dispatch(handlers[1:], e)
	})
}

func (q *EventQueue) args(e Value) []Value {
	if q.ToArgs != nil {
		return q.ToArgs(e)
	}
	return []Value{e}
}

// SetHandler replaces every handler with h.
func (q *EventQueue) SetHandler(h *Closure) {
	q.rt.heap.Retain(h)
	old := q.handlers
	q.handlers = []*Closure{h}
	for _, o := range old {
		q.rt.heap.Release(o)
	}
}

// AddHandler appends h to the handlers.
func (q *EventQueue) AddHandler(h *Closure) {
	q.rt.heap.Retain(h)
	q.handlers = append(q.handlers, h)
}

// RemoveHandler removes every occurrence of h.
func (q *EventQueue) RemoveHandler(h *Closure) {
	kept := q.handlers[:0]
	var removed int
	for _, x := range q.handlers {
		if x == h {
			removed++
			continue
		}
		kept = append(kept, x)
	}
	for i := len(kept); i < len(q.handlers); i++ {
		q.handlers[i] = nil
	}
	q.handlers = kept
	for ; removed > 0; removed-- {
		q.rt.heap.Release(h)
	}
}

// Clear drops pending events and releases every handler. The event being
// dispatched, if any, runs to completion.
func (q *EventQueue) Clear() {
	for i := range q.events {
		q.events[i] = nil
	}
	q.events = q.events[:0]
	old := q.handlers
	q.handlers = nil
	for _, h := range old {
		q.rt.heap.Release(h)
	}
}

// WaitForEvent is a suspending primitive: it resumes the current frame with
// the payload of the next event pushed onto q.
func (q *EventQueue) WaitForEvent() {
	q.addAwaiter(q.rt.GetResume())
}

func (q *EventQueue) addAwaiter(r ResumeFunc) {
	q.awaiters = append(q.awaiters, r)
}
