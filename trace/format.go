// Package trace renders per-cycle pipeline snapshots and final machine
// state as human-readable text: per-stage lines labeled "Decode/RF",
// "Execute1", and so on, written to an injected io.Writer instead of
// directly to stdout so it composes with display mode and tests.
package trace

import (
	"fmt"
	"io"

	"github.com/sarchlab/apexsim/cpu"
	"github.com/sarchlab/apexsim/pipeline"
)

// Formatter writes pipeline snapshots and final state to an underlying
// io.Writer.
type Formatter struct {
	w io.Writer
}

// NewFormatter returns a Formatter that writes to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// DumpCycle writes one cycle's worth of stage lines, in fetch-to-
// writeback order, in the form "<Stage>: pc(<pc>) <instruction>" or
// "<Stage>: Empty" for a bubble.
func (f *Formatter) DumpCycle(snap pipeline.Snapshot) error {
	if _, err := fmt.Fprintf(f.w, "--------------------------------------------------\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.w, "Clock Cycle #: %d\n", snap.Clock); err != nil {
		return err
	}
	for stage := 0; stage < pipeline.NumStages; stage++ {
		l := snap.Latches[stage]
		if l.Empty() {
			if _, err := fmt.Fprintf(f.w, "%s: Empty\n", pipeline.StageName(stage)); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(f.w, "%s: pc(%d) %s\n", pipeline.StageName(stage), l.PC, l.Inst.String()); err != nil {
			return err
		}
	}
	return nil
}

// DumpFinalState writes the retired-instruction count and final
// register file and data memory contents, the way the original
// simulator's final report dumps the architectural state after the run
// stops.
func (f *Formatter) DumpFinalState(retired int, rf *cpu.RegisterFile, mem *cpu.Memory, memCells int) error {
	if _, err := fmt.Fprintf(f.w, "\n=== State of Architectural Register File ===\n"); err != nil {
		return err
	}
	for r := 0; r < cpu.NumRegisters; r++ {
		status := "valid"
		if !rf.IsValid(r) {
			status = "invalid"
		}
		if _, err := fmt.Fprintf(f.w, "| REG[%2d] | Value = %-8d | Status = %s |\n", r, rf.Read(r), status); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(f.w, "\n=== State of Data Memory ===\n"); err != nil {
		return err
	}
	for addr, v := range mem.Dump(memCells) {
		if _, err := fmt.Fprintf(f.w, "| MEM[%4d] | Value = %-8d |\n", addr, v); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(f.w, "\nInstructions retired: %d\n", retired); err != nil {
		return err
	}
	return nil
}
