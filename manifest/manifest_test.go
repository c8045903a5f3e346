package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a boardsim.toml
	dir := t.TempDir()
	tomlContent := `
[project]
name = "blinky"
version = "0.1.0"

[program]
entry = "buttons"
duration-ms = 250

[runtime]
globals = 64
max-depth = 200
event-queue-max = 3
forever-interval-ms = 10
yield-interval-ms = 15
refcount-debug = true

[log]
verbosity = 2
file = "sim.log"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "blinky" {
		t.Errorf("project name = %q, want blinky", m.Project.Name)
	}
	if m.Program.Entry != "buttons" {
		t.Errorf("program entry = %q, want buttons", m.Program.Entry)
	}
	if m.RunDuration() != 250*time.Millisecond {
		t.Errorf("run duration = %v, want 250ms", m.RunDuration())
	}

	opts := m.RuntimeOptions()
	if opts.Globals != 64 || opts.MaxDepth != 200 || opts.EventQueueMax != 3 {
		t.Errorf("options = %+v", opts)
	}
	if opts.ForeverInterval != 10*time.Millisecond {
		t.Errorf("forever interval = %v, want 10ms", opts.ForeverInterval)
	}
	if opts.YieldInterval != 15*time.Millisecond {
		t.Errorf("yield interval = %v, want 15ms", opts.YieldInterval)
	}
	if !opts.RefCountDebug {
		t.Error("refcount-debug should be true")
	}

	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if p := m.LogPath(); p == nil || *p != filepath.Join(m.Dir, "sim.log") {
		t.Errorf("log path = %v, want %s", p, filepath.Join(m.Dir, "sim.log"))
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Program.Entry != "blinky" {
		t.Errorf("default entry = %q, want blinky", m.Program.Entry)
	}
	if m.Log.Verbosity != 1 {
		t.Errorf("default verbosity = %d, want 1", m.Log.Verbosity)
	}
	if m.LogPath() != nil {
		t.Error("empty log file should mean stderr")
	}
	if opts := m.RuntimeOptions(); opts.Globals != 0 || opts.ForeverInterval != 0 {
		t.Errorf("unset runtime options should stay zero for vm defaults, got %+v", opts)
	}
}

func TestLoadManifestKeepsZeroVerbosity(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[log]\nverbosity = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Log.Verbosity != 0 {
		t.Errorf("verbosity = %d, want explicit 0 kept", m.Log.Verbosity)
	}
}

func TestLoadManifestRejectsNegative(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[runtime]\nmax-depth = -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for negative max-depth")
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[project]\nname = \"outer\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "outer" {
		t.Fatalf("FindAndLoad = %+v, want outer project", m)
	}
	abs, _ := filepath.Abs(root)
	if m.Dir != abs {
		t.Errorf("Dir = %q, want %q", m.Dir, abs)
	}
}

func TestDefaultManifest(t *testing.T) {
	m := Default()
	if m.Program.Entry != "blinky" || m.RunDuration() != time.Second {
		t.Errorf("Default() = %+v", m)
	}
}
