package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "INTERACT_"

// Load reads the file at path, applies environment overrides, fills
// defaults, and validates. The format follows the extension: .toml, or
// .yaml/.yml. A missing file yields the defaults rather than an error,
// so a fresh install works without any config.
func Load(path string) (Config, error) {
	cfg := Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to defaults.
	case err != nil:
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := unmarshal(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported format %q", filepath.Ext(path))
	}
	return nil
}

// applyEnv layers INTERACT_* variables over the file values. Only the
// commonly tuned settings are exposed this way.
func applyEnv(cfg *Config) {
	envFloat("GESTURE_THRESHOLD", &cfg.Gesture.Threshold)
	envFloat("MOVE_GRID_SIZE", &cfg.Move.GridSize)
	envString("MOVE_AXIS", &cfg.Move.Axis)
	envInt("LOCK_TIMEOUT_SECONDS", &cfg.Locks.TimeoutSeconds)
	envInt("SAMPLE_INTERVAL_MS", &cfg.Detect.SampleIntervalMS)
	envInt("STUCK_WARN_SECONDS", &cfg.Detect.StuckWarnSeconds)
	envInt("STUCK_RECOVER_SECONDS", &cfg.Detect.StuckRecoverSeconds)
	envString("LOG_LEVEL", &cfg.Logging.Level)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envFloat(name string, dst *float64) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(name string, dst *int) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
