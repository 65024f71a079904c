package cpu

import "github.com/sarchlab/apexsim/insts"

// ALU implements the single-cycle APEX arithmetic and logic operations
// performed in Execute-1. It is stateless: every method takes its
// operands and returns a result, so it has no register file dependency
// — APEX's EX1 never reads architectural state directly, only the
// latch's already-resolved operand values.
type ALU struct{}

// NewALU returns an ALU. It carries no state; the constructor exists to
// match the NewXxx(...) unit-construction idiom used throughout the
// pipeline stages.
func NewALU() *ALU {
	return &ALU{}
}

// Compute evaluates the EX1 buffer for inst given its resolved operand
// values. STORE/STR/HALT/BZ/BNZ perform no ALU action and return 0.
func (a *ALU) Compute(inst insts.Instruction, rs1Value, rs2Value int) int {
	switch inst.Op {
	case insts.OpMOVC:
		return inst.Imm
	case insts.OpADD:
		return rs1Value + rs2Value
	case insts.OpSUB:
		return rs1Value - rs2Value
	case insts.OpMUL:
		// rs1 * rs2, never rs1 * imm.
		return rs1Value * rs2Value
	case insts.OpADDL:
		return rs1Value + inst.Imm
	case insts.OpSUBL:
		return rs1Value - inst.Imm
	case insts.OpAND:
		return rs1Value & rs2Value
	case insts.OpOR:
		return rs1Value | rs2Value
	case insts.OpExOr:
		return rs1Value ^ rs2Value
	case insts.OpLOAD:
		return rs1Value + inst.Imm
	case insts.OpLDR:
		return rs1Value + rs2Value
	case insts.OpJUMP:
		return rs1Value + inst.Imm
	default:
		return 0
	}
}

// IsZero reports the condition the Z flag is set to: the EX2 result
// equals zero.
func IsZero(result int) bool {
	return result == 0
}
