// Package pipeline implements the seven-stage APEX cycle driver: Fetch,
// Decode/Register-Read, Execute-1, Execute-2, Memory-1, Memory-2, and
// Writeback, wired around a shared array of inter-stage latches.
package pipeline

import "github.com/sarchlab/apexsim/insts"

// Stage indices into Driver's latch array, in program order.
const (
	StageF = iota
	StageDRF
	StageEX1
	StageEX2
	StageMEM1
	StageMEM2
	StageWB
	NumStages
)

var stageNames = [NumStages]string{
	"Fetch", "Decode/RF", "Execute1", "Execute2", "Memory1", "Memory2", "Writeback",
}

// StageName returns the trace label for a stage index.
func StageName(stage int) string {
	return stageNames[stage]
}

// Latch is the pipeline register sitting between two adjacent stages. A
// zero-value Latch (Inst.Op == insts.OpInvalid) represents a bubble.
type Latch struct {
	PC                           int
	Inst                         insts.Instruction
	Rs1Value, Rs2Value, Rs3Value int
	Buffer                       int
	Stalled                      bool
}

// Empty reports whether the latch holds a bubble rather than an
// in-flight instruction.
func (l Latch) Empty() bool {
	return l.Inst.Op == insts.OpInvalid
}

// HasDest reports whether the latch holds a live instruction that
// claims register rd as its destination.
func (l Latch) HasDest(rd int) bool {
	return !l.Empty() && l.Inst.WritesRegister() && l.Inst.Rd == rd
}
