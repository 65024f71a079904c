package pipeline

import "github.com/sarchlab/apexsim/insts"

// BranchOutcome is the EX2 branch/jump resolution for one cycle.
type BranchOutcome struct {
	Taken   bool
	Target  int
	Invalid bool
}

// BranchUnit resolves BZ/BNZ/JUMP at EX2, kept as its own unit next to
// the ALU rather than folded into the stage function.
type BranchUnit struct{}

// NewBranchUnit returns a BranchUnit. It is stateless.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Resolve evaluates inst (one of BZ, BNZ, JUMP; any other opcode
// returns a zero BranchOutcome) against the current Z flag and EX1's
// computed buffer, checking JUMP's target against the valid code range
// [codeBase, codeLimit).
func (b *BranchUnit) Resolve(inst insts.Instruction, pc, buffer int, zFlag bool, codeBase, codeLimit int) BranchOutcome {
	switch inst.Op {
	case insts.OpBZ:
		if zFlag {
			return BranchOutcome{Taken: true, Target: pc + inst.Imm}
		}
	case insts.OpBNZ:
		if !zFlag {
			return BranchOutcome{Taken: true, Target: pc + inst.Imm}
		}
	case insts.OpJUMP:
		if buffer >= codeBase && buffer < codeLimit {
			return BranchOutcome{Taken: true, Target: buffer}
		}
		return BranchOutcome{Invalid: true}
	}
	return BranchOutcome{}
}
