// Package config defines the tunable thresholds of the interaction
// core and loads them from TOML or YAML files with environment
// overrides. A file watcher supports live reload: edits to the config
// file are debounced, re-validated, and announced on the bus.
package config

import (
	"fmt"
	"time"
)

// Config is the full threshold set. Zero values mean "use the default";
// Normalize fills them in.
type Config struct {
	Gesture GestureConfig `toml:"gesture" yaml:"gesture"`
	Move    MoveConfig    `toml:"move" yaml:"move"`
	Resize  ResizeConfig  `toml:"resize" yaml:"resize"`
	Drag    DragConfig    `toml:"drag" yaml:"drag"`
	Locks   LockConfig    `toml:"locks" yaml:"locks"`
	Detect  DetectConfig  `toml:"detect" yaml:"detect"`
	Logging LogConfig     `toml:"logging" yaml:"logging"`
}

// GestureConfig tunes gesture classification.
type GestureConfig struct {
	// Threshold is the pointer travel, in pixels, that turns a press
	// into a move or resize.
	Threshold float64 `toml:"threshold" yaml:"threshold"`

	// ClickIntervalMS and ClickDistance bound double and triple click
	// detection.
	ClickIntervalMS int     `toml:"click_interval_ms" yaml:"click_interval_ms"`
	ClickDistance   float64 `toml:"click_distance" yaml:"click_distance"`
}

// MoveConfig tunes the move state machine.
type MoveConfig struct {
	// GridSize snaps positions to a grid when positive.
	GridSize float64 `toml:"grid_size" yaml:"grid_size"`

	// Axis constrains movement: "both", "horizontal" or "vertical".
	Axis string `toml:"axis" yaml:"axis"`
}

// ResizeConfig tunes the resize state machine.
type ResizeConfig struct {
	MinWidth  float64 `toml:"min_width" yaml:"min_width"`
	MinHeight float64 `toml:"min_height" yaml:"min_height"`
	MaxWidth  float64 `toml:"max_width" yaml:"max_width"`
	MaxHeight float64 `toml:"max_height" yaml:"max_height"`

	// HandleHitSize is the side, in pixels, of each handle's square
	// hit region.
	HandleHitSize float64 `toml:"handle_hit_size" yaml:"handle_hit_size"`
}

// DragConfig tunes the drag-and-drop state machine.
type DragConfig struct {
	// ReturnDurationMS is the failed-drop return flight length.
	ReturnDurationMS int `toml:"return_duration_ms" yaml:"return_duration_ms"`
}

// LockConfig tunes the conflict arbiter.
type LockConfig struct {
	// TimeoutSeconds is the wall-clock lock expiry.
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// DetectConfig tunes the anomaly detectors.
type DetectConfig struct {
	// SampleIntervalMS is the position sampling period.
	SampleIntervalMS int `toml:"sample_interval_ms" yaml:"sample_interval_ms"`

	// HistorySize bounds each object's sample ring.
	HistorySize int `toml:"history_size" yaml:"history_size"`

	JumpDistance  float64 `toml:"jump_distance" yaml:"jump_distance"`
	MaxVelocity   float64 `toml:"max_velocity" yaml:"max_velocity"`
	AccumDistance float64 `toml:"accum_distance" yaml:"accum_distance"`
	DriftDistance float64 `toml:"drift_distance" yaml:"drift_distance"`

	RubberBandDistance float64 `toml:"rubber_band_distance" yaml:"rubber_band_distance"`
	LaunchVelocity     float64 `toml:"launch_velocity" yaml:"launch_velocity"`
	MaxAcceleration    float64 `toml:"max_acceleration" yaml:"max_acceleration"`

	StuckWarnSeconds    int `toml:"stuck_warn_seconds" yaml:"stuck_warn_seconds"`
	StuckRecoverSeconds int `toml:"stuck_recover_seconds" yaml:"stuck_recover_seconds"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Gesture: GestureConfig{
			Threshold:       8,
			ClickIntervalMS: 400,
			ClickDistance:   5,
		},
		Move: MoveConfig{
			Axis: "both",
		},
		Resize: ResizeConfig{
			MinWidth:      20,
			MinHeight:     20,
			HandleHitSize: 12,
		},
		Drag: DragConfig{
			ReturnDurationMS: 200,
		},
		Locks: LockConfig{
			TimeoutSeconds: 30,
		},
		Detect: DetectConfig{
			SampleIntervalMS:    100,
			HistorySize:         32,
			JumpDistance:        400,
			MaxVelocity:         2500,
			AccumDistance:       200,
			DriftDistance:       200,
			RubberBandDistance:  150,
			LaunchVelocity:      3000,
			MaxAcceleration:     10000,
			StuckWarnSeconds:    3,
			StuckRecoverSeconds: 5,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Normalize fills zero-valued fields with defaults. Loaded files only
// need to name the settings they change.
func (c *Config) Normalize() {
	def := Default()
	if c.Gesture.Threshold <= 0 {
		c.Gesture.Threshold = def.Gesture.Threshold
	}
	if c.Gesture.ClickIntervalMS <= 0 {
		c.Gesture.ClickIntervalMS = def.Gesture.ClickIntervalMS
	}
	if c.Gesture.ClickDistance <= 0 {
		c.Gesture.ClickDistance = def.Gesture.ClickDistance
	}
	if c.Move.Axis == "" {
		c.Move.Axis = def.Move.Axis
	}
	if c.Resize.MinWidth <= 0 {
		c.Resize.MinWidth = def.Resize.MinWidth
	}
	if c.Resize.MinHeight <= 0 {
		c.Resize.MinHeight = def.Resize.MinHeight
	}
	if c.Resize.HandleHitSize <= 0 {
		c.Resize.HandleHitSize = def.Resize.HandleHitSize
	}
	if c.Drag.ReturnDurationMS <= 0 {
		c.Drag.ReturnDurationMS = def.Drag.ReturnDurationMS
	}
	if c.Locks.TimeoutSeconds <= 0 {
		c.Locks.TimeoutSeconds = def.Locks.TimeoutSeconds
	}
	d := &c.Detect
	dd := def.Detect
	if d.SampleIntervalMS <= 0 {
		d.SampleIntervalMS = dd.SampleIntervalMS
	}
	if d.HistorySize <= 0 {
		d.HistorySize = dd.HistorySize
	}
	if d.JumpDistance <= 0 {
		d.JumpDistance = dd.JumpDistance
	}
	if d.MaxVelocity <= 0 {
		d.MaxVelocity = dd.MaxVelocity
	}
	if d.AccumDistance <= 0 {
		d.AccumDistance = dd.AccumDistance
	}
	if d.DriftDistance <= 0 {
		d.DriftDistance = dd.DriftDistance
	}
	if d.RubberBandDistance <= 0 {
		d.RubberBandDistance = dd.RubberBandDistance
	}
	if d.LaunchVelocity <= 0 {
		d.LaunchVelocity = dd.LaunchVelocity
	}
	if d.MaxAcceleration <= 0 {
		d.MaxAcceleration = dd.MaxAcceleration
	}
	if d.StuckWarnSeconds <= 0 {
		d.StuckWarnSeconds = dd.StuckWarnSeconds
	}
	if d.StuckRecoverSeconds <= 0 {
		d.StuckRecoverSeconds = dd.StuckRecoverSeconds
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate rejects configurations that would break the core's
// invariants.
func (c *Config) Validate() error {
	switch c.Move.Axis {
	case "both", "horizontal", "vertical", "none":
	default:
		return fmt.Errorf("config: invalid move.axis %q", c.Move.Axis)
	}
	if c.Resize.MaxWidth > 0 && c.Resize.MaxWidth < c.Resize.MinWidth {
		return fmt.Errorf("config: resize.max_width %v below min_width %v", c.Resize.MaxWidth, c.Resize.MinWidth)
	}
	if c.Resize.MaxHeight > 0 && c.Resize.MaxHeight < c.Resize.MinHeight {
		return fmt.Errorf("config: resize.max_height %v below min_height %v", c.Resize.MaxHeight, c.Resize.MinHeight)
	}
	if c.Detect.StuckRecoverSeconds < c.Detect.StuckWarnSeconds {
		return fmt.Errorf("config: detect.stuck_recover_seconds %d below stuck_warn_seconds %d",
			c.Detect.StuckRecoverSeconds, c.Detect.StuckWarnSeconds)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

// LockTimeout returns the lock expiry as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Locks.TimeoutSeconds) * time.Second
}

// SampleInterval returns the detector sampling period as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Detect.SampleIntervalMS) * time.Millisecond
}

// ReturnDuration returns the drag return flight length as a duration.
func (c *Config) ReturnDuration() time.Duration {
	return time.Duration(c.Drag.ReturnDurationMS) * time.Millisecond
}

// ClickInterval returns the multi-click window as a duration.
func (c *Config) ClickInterval() time.Duration {
	return time.Duration(c.Gesture.ClickIntervalMS) * time.Millisecond
}
