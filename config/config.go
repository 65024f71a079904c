// Package config holds the simulator's tunable parameters: the mode
// selector, the cycle cap, and the branch-stall depth, as a
// JSON-serializable struct with a constructor for defaults, a loader, a
// saver, and a validator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Mode selects simulate-to-completion vs. per-cycle trace output.
type Mode string

const (
	// ModeSimulate runs silently to completion or to the cycle cap.
	ModeSimulate Mode = "simulate"
	// ModeDisplay runs with a verbose per-cycle trace.
	ModeDisplay Mode = "display"
)

// Simulator holds every parameter the pipeline core needs beyond the
// decoded instruction array itself.
type Simulator struct {
	// Mode selects simulate (silent) vs. display (verbose trace).
	Mode Mode `json:"mode"`

	// Cycles is the cycle cap. 0 means run to completion. A positive
	// value stops the simulator after exactly Cycles cycles.
	Cycles int `json:"cycles"`

	// BranchStallCycles is the number of cycles a BZ/BNZ in DRF stalls
	// against a flag-setting ALU op ahead of it in EX1, so Z is ready by
	// the time the branch reaches EX2. This is a config field, not a
	// literal, because a deeper pipeline variant could need more without
	// any change to stage logic.
	BranchStallCycles int `json:"branch_stall_cycles"`
}

// DefaultConfig returns the default configuration: run to completion,
// silent, single-cycle branch stall.
func DefaultConfig() Simulator {
	return Simulator{
		Mode:              ModeSimulate,
		Cycles:            0,
		BranchStallCycles: 1,
	}
}

// LoadConfig reads a Simulator configuration from a JSON file, starting
// from DefaultConfig() so an omitted field keeps its default value.
func LoadConfig(path string) (Simulator, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Simulator{}, fmt.Errorf("apexsim: read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Simulator{}, fmt.Errorf("apexsim: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Simulator{}, err
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON.
func (cfg Simulator) SaveConfig(path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("apexsim: encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("apexsim: write config: %w", err)
	}

	return nil
}

// Validate checks that cfg's fields are internally consistent.
func (cfg Simulator) Validate() error {
	if cfg.Mode != ModeSimulate && cfg.Mode != ModeDisplay {
		return fmt.Errorf("apexsim: invalid mode %q", cfg.Mode)
	}
	if cfg.Cycles < 0 {
		return fmt.Errorf("apexsim: cycles must be >= 0, got %d", cfg.Cycles)
	}
	if cfg.BranchStallCycles < 1 {
		return fmt.Errorf("apexsim: branch_stall_cycles must be >= 1, got %d", cfg.BranchStallCycles)
	}
	return nil
}
