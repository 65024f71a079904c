package pipeline

import (
	"github.com/sarchlab/apexsim/cpu"
)

// HazardUnit resolves DRF operand availability and the BZ/BNZ-vs-flags
// stall, factored out of Driver into its own unit next to, not inside,
// the stage functions.
type HazardUnit struct{}

// NewHazardUnit returns a HazardUnit. It is stateless.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// ResolveOperand returns the value register reg should read this cycle
// and whether it resolved without a stall: a valid register file entry
// wins outright; otherwise a forwarded value is used only while
// forwarding is available and its producer is not occupying EX1 this
// same cycle (the value a producer in EX1 computed is not ready to
// forward until it moves to EX2); otherwise DRF must stall.
func (h *HazardUnit) ResolveOperand(reg int, rf *cpu.RegisterFile, forward cpu.ForwardingTable, ex1 Latch) (value int, ok bool) {
	if rf.IsValid(reg) {
		return rf.Read(reg), true
	}
	if forward.Available && !ex1.HasDest(reg) {
		return forward.Read(reg), true
	}
	return 0, false
}

// BranchAluHazard reports whether a BZ/BNZ sitting in DRF must stall
// because EX1 still holds a flag-setting ALU op whose Z result it
// needs. BZ/BNZ read Z at EX2, which that producer updates first.
func (h *HazardUnit) BranchAluHazard(ex1 Latch) bool {
	return !ex1.Empty() && ex1.Inst.SetsFlags()
}
