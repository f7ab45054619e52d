package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Gesture.Threshold != 8 {
		t.Errorf("threshold = %v, want 8", cfg.Gesture.Threshold)
	}
	if cfg.LockTimeout() != 30*time.Second {
		t.Errorf("lock timeout = %v, want 30s", cfg.LockTimeout())
	}
	if cfg.Detect.StuckRecoverSeconds != 5 {
		t.Errorf("stuck recover = %d, want 5", cfg.Detect.StuckRecoverSeconds)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interact.toml")
	content := `
[gesture]
threshold = 12.0

[move]
grid_size = 10.0
axis = "horizontal"

[locks]
timeout_seconds = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Gesture.Threshold != 12 {
		t.Errorf("threshold = %v, want 12", cfg.Gesture.Threshold)
	}
	if cfg.Move.GridSize != 10 || cfg.Move.Axis != "horizontal" {
		t.Errorf("move = %+v, want grid 10 horizontal", cfg.Move)
	}
	if cfg.Locks.TimeoutSeconds != 10 {
		t.Errorf("lock timeout = %d, want 10", cfg.Locks.TimeoutSeconds)
	}
	// Unspecified settings keep their defaults.
	if cfg.Detect.JumpDistance != 400 {
		t.Errorf("jump distance = %v, want default 400", cfg.Detect.JumpDistance)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interact.yaml")
	content := `
gesture:
  threshold: 16
resize:
  min_width: 40
  min_height: 30
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Gesture.Threshold != 16 {
		t.Errorf("threshold = %v, want 16", cfg.Gesture.Threshold)
	}
	if cfg.Resize.MinWidth != 40 || cfg.Resize.MinHeight != 30 {
		t.Errorf("resize mins = %+v, want 40x30", cfg.Resize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() of missing file failed: %v", err)
	}
	if cfg.Gesture.Threshold != 8 {
		t.Errorf("threshold = %v, want default 8", cfg.Gesture.Threshold)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interact.toml")
	content := `
[move]
axis = "diagonal"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted an invalid axis")
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interact.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted an unsupported format")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INTERACT_GESTURE_THRESHOLD", "20")
	t.Setenv("INTERACT_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Gesture.Threshold != 20 {
		t.Errorf("threshold = %v, want env override 20", cfg.Gesture.Threshold)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"max below min width", func(c *Config) { c.Resize.MaxWidth = 5 }, false},
		{"recover below warn", func(c *Config) { c.Detect.StuckRecoverSeconds = 1 }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, false},
		{"axis none", func(c *Config) { c.Move.Axis = "none" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interact.toml")
	if err := os.WriteFile(path, []byte("[gesture]\nthreshold = 8.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Config, 1)
	w, err := Watch(path, nil, func(c Config) { reloaded <- c }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[gesture]\nthreshold = 14.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Gesture.Threshold != 14 {
			t.Errorf("reloaded threshold = %v, want 14", cfg.Gesture.Threshold)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload never fired")
	}
}

func TestWatchIgnoresBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interact.toml")
	if err := os.WriteFile(path, []byte("[gesture]\nthreshold = 8.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Config, 1)
	w, err := Watch(path, nil, func(c Config) { reloaded <- c }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("this is not toml ==="), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		t.Errorf("broken file triggered a reload: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}
