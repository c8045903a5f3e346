// Package host provides the one capability the engine needs from the
// process embedding it: run a callback after a delay.
//
// Two implementations are provided. Loop runs callbacks on a single
// dedicated goroutine with real timers. Manual is a virtual clock driven
// explicitly by the caller, used for deterministic tests.
package host

import (
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("boardsim.host")

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler schedules fn to run after d on the host's single logical
// thread. A zero or negative delay means "next tick": fn never runs
// synchronously inside AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}
