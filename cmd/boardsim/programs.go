package main

import (
	"fmt"
	"time"

	"github.com/chazu/boardsim/vm"
	"github.com/chazu/boardsim/vm/wire"
)

// program is a hand-compiled device program. start runs on the host loop;
// drive, if set, plays the part of the outside world until done closes.
type program struct {
	desc  string
	start func(rt *vm.Runtime, board *vm.BaseBoard)
	drive func(send func(wire.Message) error, done <-chan struct{})
}

var programs = map[string]program{
	"blinky": {
		desc:  "toggles an LED every 100ms forever",
		start: startBlinky,
	},
	"buttons": {
		desc:  "counts button presses delivered as host events",
		start: startButtons,
		drive: driveButtons,
	},
	"scroll": {
		desc:  "scrolls a banner with the animation queue",
		start: startScroll,
	},
}

// Global slots used by the programs.
const (
	globalLED = iota
	globalToggles
)

func startBlinky(rt *vm.Runtime, board *vm.BaseBoard) {
	h := rt.Heap()
	g := rt.Globals()
	body := h.NewClosure(0, 0, func(f *vm.Frame) *vm.Frame {
		switch f.PC {
		case 0:
			on := !vm.ToBool(g.Ld(globalLED))
			g.St(globalLED, on)
			g.St(globalToggles, vm.IntAdd(g.Ld(globalToggles), int32(1)))
			rt.QueueDisplayUpdate()
			board.WriteSerial(fmt.Sprintf("led %v\n", on))
			return rt.Await(f, 1, func() { rt.Pause(100 * time.Millisecond) })
		default:
			return f.Leave(nil)
		}
	})
	rt.Forever(body)
	h.Release(body)
}

const (
	buttonA     = 1
	buttonClick = 3
)

func startButtons(rt *vm.Runtime, board *vm.BaseBoard) {
	h := rt.Heap()
	counter := h.MkLoc()
	handler := h.StClo(h.NewClosure(1, 1, func(f *vm.Frame) *vm.Frame {
		cell := f.Cap(0).(*vm.Local)
		n := vm.IntAdd(h.LdLoc(cell), int32(1))
		h.StLoc(cell, n)
		board.WriteSerial(fmt.Sprintf("button A press %v (total %d)\n", f.Arg(0), n))
		return f.Leave(nil)
	}), 0, counter)
	rt.Bus().Listen(buttonA, buttonClick, handler)
	h.Release(handler)
}

func driveButtons(send func(wire.Message) error, done <-chan struct{}) {
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for i := 1; ; i++ {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := send(&wire.EventBusMessage{ID: buttonA, EventID: buttonClick, Value: i}); err != nil {
				log.Errorf("send event: %v", err)
				return
			}
		}
	}
}

func startScroll(rt *vm.Runtime, board *vm.BaseBoard) {
	aq := rt.NewAnimationQueue()
	banner := "HELLO"
	rt.Run(func(f *vm.Frame) *vm.Frame {
		switch f.PC {
		case 0:
			return rt.Await(f, 1, func() {
				pos := 0
				aq.ExecuteAsync(&vm.Animation{
					Interval: 80 * time.Millisecond,
					Frame: func() bool {
						board.WriteSerial(fmt.Sprintf("[%c]\n", banner[pos]))
						pos++
						return pos < len(banner)
					},
				})
			})
		default:
			board.WriteSerial(fmt.Sprintf("scroll cancelled=%v after %v\n", f.Retval, rt.RunningTime().Round(time.Millisecond)))
			return f.Leave(nil)
		}
	}, nil)
}
