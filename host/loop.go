package host

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Loop serializes every callback through a single goroutine. The engine is
// single-threaded; timers fire on their own goroutines but only enqueue
// work, so two callbacks never run at the same time.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a Loop and starts its processing goroutine.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.loop()
	return l
}

// post appends fn to the task queue. Safe from any goroutine, including
// the loop itself.
func (l *Loop) post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// loop processes tasks sequentially on the dedicated goroutine.
func (l *Loop) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.wake:
			for {
				l.mu.Lock()
				if len(l.tasks) == 0 {
					l.mu.Unlock()
					break
				}
				fn := l.tasks[0]
				l.tasks[0] = nil
				l.tasks = l.tasks[1:]
				l.mu.Unlock()
				if err := l.execute(fn); err != nil {
					log.Errorf("loop task panicked: %v", err)
				}
			}
		case <-l.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (l *Loop) execute(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	fn()
	return nil
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	run := func() {
		if t.state.CompareAndSwap(timerPending, timerFired) {
			fn()
		}
	}
	if d <= 0 {
		l.post(run)
		return t
	}
	t.t = time.AfterFunc(d, func() { l.post(run) })
	return t
}

// Do submits fn for execution on the loop goroutine and blocks until it
// completes. A panic inside fn is returned as an error. Do must not be
// called from the loop goroutine.
func (l *Loop) Do(fn func()) error {
	result := make(chan error, 1)
	l.post(func() { result <- l.execute(fn) })
	select {
	case err := <-result:
		return err
	case <-l.done:
		return fmt.Errorf("host loop stopped")
	}
}

// Stop shuts down the loop goroutine and waits for it to exit. Pending
// tasks are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.done
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	state atomic.Int32
	t     *time.Timer
}

func (t *loopTimer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	if t.t != nil {
		t.t.Stop()
	}
	return true
}
