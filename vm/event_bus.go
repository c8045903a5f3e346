package vm

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventBus routes device events to event queues keyed by source id, event
// id and whether the handlers are background handlers. An id or event id of
// 0 means ANY: a queue registered for (0, 7) receives event 7 from every
// source, and (0, 0) receives everything.
type EventBus struct {
	rt     *Runtime
	queues map[busKey]*EventQueue

	backgroundHandlerFlag bool

	notifyID    int
	notifyOneID int

	lastEventValue int
	lastEventTime  time.Time

	// ToArgs is installed on every queue the bus creates.
	ToArgs func(e Value) []Value
}

type busKey struct {
	background bool
	id         int
	evid       int
}

func (k busKey) String() string {
	side := "fore"
	if k.background {
		side = "back"
	}
	return fmt.Sprintf("%s:%d:%d", side, k.id, k.evid)
}

func newEventBus(rt *Runtime) *EventBus {
	return &EventBus{rt: rt, queues: make(map[busKey]*EventQueue)}
}

func (b *EventBus) start(id, evid int, background, create bool) *EventQueue {
	k := busKey{background: background, id: id, evid: evid}
	q := b.queues[k]
	if q == nil && create {
		q = b.rt.NewEventQueue()
		q.ToArgs = b.ToArgs
		b.queues[k] = q
	}
	return q
}

// SetBackgroundHandlerFlag makes the next Listen register a background
// handler.
func (b *EventBus) SetBackgroundHandlerFlag() {
	b.backgroundHandlerFlag = true
}

// SetNotify configures notify-one routing: an event queued with source id
// notifyOneID is delivered as notifyID and wakes only one awaiter.
func (b *EventBus) SetNotify(notifyID, notifyOneID int) {
	b.notifyID = notifyID
	b.notifyOneID = notifyOneID
}

// Listen registers h for (id, evid). A foreground handler replaces the
// queue's handler; a background handler is added alongside the others.
func (b *EventBus) Listen(id, evid int, h *Closure) {
	bg := b.backgroundHandlerFlag
	b.backgroundHandlerFlag = false
	q := b.start(id, evid, bg, true)
	if bg {
		q.AddHandler(h)
	} else {
		q.SetHandler(h)
	}
}

// RemoveBackgroundHandler removes h from every background queue.
func (b *EventBus) RemoveBackgroundHandler(h *Closure) {
	for k, q := range b.queues {
		if k.background {
			q.RemoveHandler(h)
		}
	}
}

// getQueues returns the existing queues matching (id, evid) on one side,
// most general first.
func (b *EventBus) getQueues(id, evid int, bg bool) []*EventQueue {
	keys := [][2]int{{0, 0}}
	if id != 0 || evid != 0 {
		if evid != 0 {
			keys = append(keys, [2]int{0, evid})
		}
		if id != 0 {
			keys = append(keys, [2]int{id, 0})
		}
		if id != 0 && evid != 0 {
			keys = append(keys, [2]int{id, evid})
		}
	}
	var out []*EventQueue
	for _, k := range keys {
		if q := b.start(k[0], k[1], bg, false); q != nil {
			out = append(out, q)
		}
	}
	return out
}

// Queue delivers an event with payload value to every matching queue,
// background queues first.
func (b *EventBus) Queue(id, evid int, value Value) {
	notifyOne := b.notifyID != 0 && b.notifyOneID != 0 && id == b.notifyOneID
	if notifyOne {
		id = b.notifyID
	}
	queues := append(b.getQueues(id, evid, true), b.getQueues(id, evid, false)...)
	b.lastEventValue = evid
	b.lastEventTime = b.rt.opts.Now()
	for _, q := range queues {
		q.Push(value, notifyOne)
	}
}

// Wait is a suspending primitive: the current frame resumes with the
// payload of the next (id, evid) event. Only foreground queues are waited
// on.
func (b *EventBus) Wait(id, evid int) {
	b.start(id, evid, false, true).addAwaiter(b.rt.GetResume())
}

// LastEventValue returns the event id of the most recently queued event.
func (b *EventBus) LastEventValue() int { return b.lastEventValue }

// LastEventTime returns when the most recent event was queued.
func (b *EventBus) LastEventTime() time.Time { return b.lastEventTime }

// Keys lists the registered queues, for diagnostics.
func (b *EventBus) Keys() []string {
	out := make([]string, 0, len(b.queues))
	for k := range b.queues {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}

// Clear releases every handler on every queue.
func (b *EventBus) Clear() {
	for _, q := range b.queues {
		q.Clear()
	}
}

func (b *EventBus) String() string {
	return "EventBus{" + strings.Join(b.Keys(), " ") + "}"
}
