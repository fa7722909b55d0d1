// Package config loads the player's optional defaults file. Following
// the teacher's configuration pattern, a missing file is not an error —
// Load falls back to Default() — and every field has a zero-value-safe
// meaning so partially-specified YAML still produces a usable Config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the player's tunable defaults; Speed and Charset are also
// overridable per-invocation by CLI flags. Fields mirror the constants
// spec.md's input decoder and
// seek engine otherwise hard-code, letting a user permanently change them
// without passing flags every time.
type Config struct {
	Speed                float64 `yaml:"speed" json:"speed"`
	Charset              string  `yaml:"charset" json:"charset"` // "utf8", "8bit", or "" (leave terminal as-is)
	JumpBase             int     `yaml:"jump_base" json:"jump_base"`
	JumpScale            int     `yaml:"jump_scale" json:"jump_scale"`
	SwitchLatencySeconds float64 `yaml:"switch_latency_seconds" json:"switch_latency_seconds"`
}

// Default returns the built-in defaults: normal speed, no charset
// override, and the §4.E/§4.F constants from the spec.
func Default() Config {
	return Config{
		Speed:                1.0,
		Charset:              "",
		JumpBase:             15,
		JumpScale:            10,
		SwitchLatencySeconds: 10.0,
	}
}

// Load reads and parses path (typically ~/.ttyplayrc or the -config
// flag's target). A missing file yields Default() and a nil error;
// any other read or parse failure is returned. Fields absent from the
// file keep their Default() value since Config is unmarshaled into a
// copy of Default(), not a zero Config.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.JumpBase <= 0 {
		cfg.JumpBase = Default().JumpBase
	}
	if cfg.JumpScale <= 0 {
		cfg.JumpScale = Default().JumpScale
	}
	if cfg.Speed <= 0 {
		cfg.Speed = Default().Speed
	}

	return cfg, nil
}

// DefaultPath returns ~/.ttyplayrc, or "" if the home directory cannot be
// determined (in which case the caller should skip loading rather than
// error: an unreadable home directory is not a fatal condition for a
// program whose config is entirely optional).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.ttyplayrc"
}
