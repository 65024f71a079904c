// Command apexsim runs a decoded APEX assembly program through the
// seven-stage pipeline simulator and reports its final architectural
// state.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/apexsim/asm"
	"github.com/sarchlab/apexsim/config"
	"github.com/sarchlab/apexsim/cpu"
	"github.com/sarchlab/apexsim/pipeline"
	"github.com/sarchlab/apexsim/trace"
)

var (
	display    = flag.Bool("display", false, "print a per-cycle pipeline trace")
	cycles     = flag.Int("cycles", 0, "stop after exactly this many cycles (0 runs to completion)")
	configPath = flag.String("config", "", "JSON configuration file overriding -display/-cycles")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: apexsim [-display] [-cycles=N] [-config=file.json] <program.asm>")
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "apexsim: %v\n", err)
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "apexsim: %v\n", err)
		os.Exit(2)
	}
	defer f.Close()

	program, err := asm.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apexsim: %v\n", err)
		os.Exit(2)
	}

	driver := pipeline.NewDriver(program, cfg)
	formatter := trace.NewFormatter(os.Stdout)

	for !driver.Done() {
		driver.Tick()
		if cfg.Mode == config.ModeDisplay {
			if err := formatter.DumpCycle(driver.Snapshot()); err != nil {
				fmt.Fprintf(os.Stderr, "apexsim: %v\n", err)
				os.Exit(2)
			}
		}
	}

	if err := formatter.DumpFinalState(driver.Retired(), driver.RegisterFile(), driver.Memory(), cpu.TraceDumpCells); err != nil {
		fmt.Fprintf(os.Stderr, "apexsim: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("Clock cycles: %d\n", driver.Clock())

	if driver.InvalidJump() {
		fmt.Fprintln(os.Stderr, "apexsim: halted on an out-of-range JUMP target")
		os.Exit(1)
	}
}

func loadConfig() (config.Simulator, error) {
	if *configPath != "" {
		return config.LoadConfig(*configPath)
	}

	cfg := config.DefaultConfig()
	if *display {
		cfg.Mode = config.ModeDisplay
	}
	cfg.Cycles = *cycles
	if err := cfg.Validate(); err != nil {
		return config.Simulator{}, err
	}
	return cfg, nil
}
