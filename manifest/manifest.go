// Package manifest handles boardsim.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/boardsim/vm"
)

// FileName is the manifest file looked up in project directories.
const FileName = "boardsim.toml"

// Manifest represents a boardsim.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Program Program       `toml:"program"`
	Runtime RuntimeConfig `toml:"runtime"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the boardsim.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Program selects what the simulator runs.
type Program struct {
	Entry    string `toml:"entry"`
	Duration int    `toml:"duration-ms"`
}

// RuntimeConfig mirrors vm.Options. Zero values take the runtime defaults.
type RuntimeConfig struct {
	Globals           int  `toml:"globals"`
	MaxDepth          int  `toml:"max-depth"`
	EventQueueMax     int  `toml:"event-queue-max"`
	ForeverIntervalMS int  `toml:"forever-interval-ms"`
	YieldIntervalMS   int  `toml:"yield-interval-ms"`
	RefCountDebug     bool `toml:"refcount-debug"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the manifest used when no boardsim.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults(toml.MetaData{})
	return m
}

// applyDefaults fills unset values. Keys present in the file keep their
// value even when it is zero.
func (m *Manifest) applyDefaults(md toml.MetaData) {
	if m.Program.Entry == "" {
		m.Program.Entry = "blinky"
	}
	if m.Program.Duration == 0 {
		m.Program.Duration = 1000
	}
	if !md.IsDefined("log", "verbosity") {
		m.Log.Verbosity = 1
	}
}

// Load parses a boardsim.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	m.applyDefaults(md)

	return &m, nil
}

func (m *Manifest) validate() error {
	r := m.Runtime
	switch {
	case r.Globals < 0:
		return fmt.Errorf("runtime.globals must not be negative")
	case r.MaxDepth < 0:
		return fmt.Errorf("runtime.max-depth must not be negative")
	case r.EventQueueMax < 0:
		return fmt.Errorf("runtime.event-queue-max must not be negative")
	case r.ForeverIntervalMS < 0 || r.YieldIntervalMS < 0:
		return fmt.Errorf("runtime intervals must not be negative")
	case m.Program.Duration < 0:
		return fmt.Errorf("program.duration-ms must not be negative")
	}
	return nil
}

// FindAndLoad walks up from startDir to find a boardsim.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// RuntimeOptions converts the [runtime] table to vm.Options.
func (m *Manifest) RuntimeOptions() vm.Options {
	r := m.Runtime
	return vm.Options{
		Globals:         r.Globals,
		MaxDepth:        r.MaxDepth,
		EventQueueMax:   r.EventQueueMax,
		ForeverInterval: time.Duration(r.ForeverIntervalMS) * time.Millisecond,
		YieldInterval:   time.Duration(r.YieldIntervalMS) * time.Millisecond,
		RefCountDebug:   r.RefCountDebug,
	}
}

// LogPath returns the log file path, or nil for stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.Log.File
	if !filepath.IsAbs(p) && m.Dir != "" {
		p = filepath.Join(m.Dir, p)
	}
	return &p
}

// RunDuration returns how long the CLI lets the program run.
func (m *Manifest) RunDuration() time.Duration {
	return time.Duration(m.Program.Duration) * time.Millisecond
}
