// boardsim CLI - runs a built-in device program on the simulator engine
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/boardsim/host"
	"github.com/chazu/boardsim/manifest"
	"github.com/chazu/boardsim/vm"
	"github.com/chazu/boardsim/vm/wire"
)

var log = commonlog.GetLogger("boardsim.cli")

func main() {
	dir := flag.String("C", ".", "Project directory (boardsim.toml is searched upward from here)")
	entry := flag.String("entry", "", "Program to run (overrides [program] entry)")
	duration := flag.Duration("t", 0, "How long to run (overrides [program] duration-ms)")
	verbose := flag.Bool("v", false, "Verbose output")
	list := flag.Bool("list", false, "List built-in programs and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: boardsim [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a built-in device program on the simulator engine.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  boardsim                       # Run the manifest's program (default blinky)\n")
		fmt.Fprintf(os.Stderr, "  boardsim -entry buttons -t 2s  # Run buttons for two seconds\n")
		fmt.Fprintf(os.Stderr, "  boardsim -list                 # Show built-in programs\n")
	}
	flag.Parse()

	if *list {
		names := make([]string, 0, len(programs))
		for name := range programs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-10s %s\n", name, programs[name].desc)
		}
		return
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	}

	verbosity := m.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, m.LogPath())

	name := m.Program.Entry
	if *entry != "" {
		name = *entry
	}
	prog, ok := programs[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown program %q (see -list)\n", name)
		os.Exit(1)
	}
	runFor := m.RunDuration()
	if *duration > 0 {
		runFor = *duration
	}

	live, err := simulate(prog, m.RuntimeOptions(), runFor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Fibers suspended at kill time keep their frames' objects alive.
	if *verbose {
		fmt.Printf("Live objects at exit: %d\n", len(live))
		for _, o := range live {
			fmt.Printf("  #%d %-10s rc=%d %s\n", o.ID, o.Kind, o.RefCount, o.Summary)
		}
	}
}

// simulate boots a runtime on a host loop, runs prog for d and returns the
// objects still live after the runtime is killed and its roots cleared.
func simulate(prog program, opts vm.Options, d time.Duration) ([]vm.LiveObject, error) {
	loop := host.NewLoop()
	defer loop.Stop()

	var rt *vm.Runtime
	err := loop.Do(func() {
		rt = vm.NewRuntime(loop, opts)
		board := vm.NewBaseBoard(rt)
		rt.SetBoard(board)
		rt.OnMessage = printMessage
		rt.SetRunning(true)
		rt.ErrorHandler = func(err error) {
			log.Errorf("program error: %v", err)
		}
		prog.start(rt, board)
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", prog.desc, err)
	}

	deadline := time.After(d)
	if prog.drive != nil {
		send := func(m wire.Message) error {
			data, err := wire.Marshal(m)
			if err != nil {
				return err
			}
			var recvErr error
			if err := loop.Do(func() { recvErr = rt.ReceiveMessage(data) }); err != nil {
				return err
			}
			return recvErr
		}
		done := make(chan struct{})
		go func() {
			<-deadline
			close(done)
		}()
		prog.drive(send, done)
	} else {
		<-deadline
	}

	var live []vm.LiveObject
	err = loop.Do(func() {
		rt.Kill()
		rt.Bus().Clear()
		rt.Globals().Clear()
		rt.Heap().DumpLive()
		live = rt.Heap().LiveObjects()
	})
	return live, err
}

func printMessage(m wire.Message) {
	switch msg := m.(type) {
	case *wire.SerialMessage:
		fmt.Print(msg.Data)
	case *wire.StatusMessage:
		log.Infof("runtime %s is %s", msg.RuntimeID, msg.State)
	case *wire.WarningMessage:
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg.Message)
	}
}
