package pipeline

import (
	"github.com/sarchlab/apexsim/config"
	"github.com/sarchlab/apexsim/cpu"
	"github.com/sarchlab/apexsim/insts"
)

// Driver owns all seven pipeline latches and the architectural state
// they feed (register file, scoreboard, forwarding table, memory) and
// advances them one clock cycle at a time. Stage methods are invoked in
// reverse pipeline order — Writeback first, Fetch last — each cycle, so
// a stage never reads a value its downstream neighbor already
// overwrote this cycle.
type Driver struct {
	program []insts.Instruction
	cfg     config.Simulator

	latches [NumStages]Latch

	regFile *cpu.RegisterFile
	memory  *cpu.Memory
	forward cpu.ForwardingTable
	alu     *cpu.ALU
	hazard  *HazardUnit
	branch  *BranchUnit

	pc      int
	zFlag   bool
	clock   int
	retired int

	branchStallRemaining int
	squashPending        bool
	branchPC             int
	fetchFlushed         bool

	halted      bool
	invalidJump bool
}

// NewDriver builds a Driver over program, ready to run from the first
// instruction's address, using cfg for the branch-stall depth and
// cycle cap.
func NewDriver(program []insts.Instruction, cfg config.Simulator) *Driver {
	return &Driver{
		program: program,
		cfg:     cfg,
		regFile: cpu.NewRegisterFile(),
		memory:  cpu.NewMemory(),
		alu:     cpu.NewALU(),
		hazard:  NewHazardUnit(),
		branch:  NewBranchUnit(),
		pc:      cpu.CodeBase,
	}
}

func (d *Driver) codeLimit() int {
	return cpu.CodeBase + 4*len(d.program)
}

// Done reports whether the driver has stopped advancing: HALT retired,
// the cycle cap was reached, the program ran off its last instruction's
// writeback, or EX2 resolved a JUMP outside the valid code range.
func (d *Driver) Done() bool {
	return d.halted || d.invalidJump
}

// InvalidJump reports whether the driver stopped because EX2 resolved
// a JUMP whose target fell outside the program's code range.
func (d *Driver) InvalidJump() bool {
	return d.invalidJump
}

// Clock returns the number of cycles completed so far.
func (d *Driver) Clock() int {
	return d.clock
}

// Retired returns the number of instructions that have committed at
// Writeback.
func (d *Driver) Retired() int {
	return d.retired
}

// RegisterFile returns the driver's register file for inspection once
// the run has stopped.
func (d *Driver) RegisterFile() *cpu.RegisterFile {
	return d.regFile
}

// Memory returns the driver's data memory for inspection once the run
// has stopped.
func (d *Driver) Memory() *cpu.Memory {
	return d.memory
}

// Snapshot is a per-cycle rendering of every latch, for trace output.
type Snapshot struct {
	Clock   int
	Latches [NumStages]Latch
}

// Snapshot captures the current latch contents for trace formatting.
func (d *Driver) Snapshot() Snapshot {
	return Snapshot{Clock: d.clock, Latches: d.latches}
}

// Tick advances the pipeline by exactly one clock cycle, running every
// stage once in Writeback-to-Fetch order, then incrementing the clock.
func (d *Driver) Tick() {
	if d.squashPending {
		d.pc = d.branchPC
		d.squashPending = false
	}

	d.writebackStage()
	d.memoryTwoStage()
	d.memoryOneStage()
	d.executeTwoStage()
	d.executeOneStage()
	d.decodeStage()
	d.fetchStage()

	d.clock++
}

func (d *Driver) writebackStage() {
	wb := d.latches[StageWB]
	if !wb.Empty() {
		if wb.Inst.WritesRegister() {
			d.regFile.Write(wb.Inst.Rd, wb.Buffer)
			if !d.laterStageClaims(wb.Inst.Rd) {
				d.regFile.MarkValid(wb.Inst.Rd)
			}
		}
		d.retired++
		if wb.Inst.Op == insts.OpHALT {
			d.halted = true
		}
		if d.cfg.Cycles == 0 && wb.PC == d.codeLimit()-4 {
			d.halted = true
		}
	}
	if d.cfg.Cycles > 0 && d.clock == d.cfg.Cycles-1 {
		d.halted = true
	}
}

// laterStageClaims reports whether a younger in-flight instruction
// still ahead of Writeback also targets rd, so Writeback must not mark
// the scoreboard valid out from under it.
func (d *Driver) laterStageClaims(rd int) bool {
	for _, idx := range []int{StageEX1, StageEX2, StageMEM1, StageMEM2} {
		if d.latches[idx].HasDest(rd) {
			return true
		}
	}
	return false
}

func (d *Driver) memoryTwoStage() {
	mem2 := d.latches[StageMEM2]
	if !mem2.Empty() {
		switch mem2.Inst.Op {
		case insts.OpSTORE:
			d.memory.Write(mem2.Rs2Value+mem2.Inst.Imm, mem2.Rs1Value)
		case insts.OpSTR:
			d.memory.Write(mem2.Rs2Value+mem2.Rs3Value, mem2.Rs1Value)
		case insts.OpLOAD, insts.OpLDR:
			mem2.Buffer = d.memory.Read(mem2.Buffer)
		}

		d.forward.Available = true
		d.latches[StageF].Stalled = false
		d.latches[StageDRF].Stalled = false
		if mem2.Inst.WritesRegister() {
			d.forward.Publish(mem2.Inst.Rd, mem2.Buffer)
		}
	}
	d.latches[StageWB] = mem2
}

func (d *Driver) memoryOneStage() {
	mem1 := d.latches[StageMEM1]
	if !mem1.Empty() {
		if mem1.Inst.IsLoad() {
			d.forward.Clear()
			d.latches[StageF].Stalled = true
			d.latches[StageDRF].Stalled = true
		} else {
			d.forward.Available = true
			if mem1.Inst.WritesRegister() {
				d.forward.Publish(mem1.Inst.Rd, mem1.Buffer)
			}
			d.latches[StageF].Stalled = false
			d.latches[StageDRF].Stalled = false
		}
	}
	d.latches[StageMEM2] = mem1
}

func (d *Driver) executeTwoStage() {
	ex2 := d.latches[StageEX2]
	if !ex2.Empty() {
		if ex2.Inst.SetsFlags() {
			d.zFlag = cpu.IsZero(ex2.Buffer)
		}

		outcome := d.branch.Resolve(ex2.Inst, ex2.PC, ex2.Buffer, d.zFlag, cpu.CodeBase, d.codeLimit())
		switch {
		case outcome.Invalid:
			d.invalidJump = true
		case outcome.Taken:
			d.squash(outcome.Target)
		}

		if ex2.Inst.IsLoad() {
			d.forward.Clear()
			d.latches[StageF].Stalled = true
			d.latches[StageDRF].Stalled = true
		} else {
			d.forward.Available = true
			if ex2.Inst.WritesRegister() {
				d.forward.Publish(ex2.Inst.Rd, ex2.Buffer)
			}
			d.latches[StageF].Stalled = false
			d.latches[StageDRF].Stalled = false
		}
	}
	d.latches[StageMEM1] = ex2
}

// squash clears F, DRF, and EX1 — the instructions fetched behind the
// branch or jump that just resolved taken in EX2 — restores the
// scoreboard for any destination those cleared instructions had
// claimed, and records the redirect target. The PC redirect itself
// takes effect at the start of the next cycle, not this one: Fetch
// still runs once more this cycle and must see the squash in progress
// so it neither fetches at the stale PC nor advances it.
func (d *Driver) squash(target int) {
	for _, idx := range []int{StageF, StageDRF, StageEX1} {
		l := d.latches[idx]
		// Only EX1's instruction has passed Decode and claimed its
		// destination; F and DRF hold instructions not yet decoded.
		if idx == StageEX1 && !l.Empty() && l.Inst.WritesRegister() {
			d.regFile.MarkValid(l.Inst.Rd)
		}
		d.latches[idx] = Latch{}
	}
	d.squashPending = true
	d.branchPC = target
	d.branchStallRemaining = 0
}

func (d *Driver) executeOneStage() {
	if d.branchStallRemaining > 0 {
		d.branchStallRemaining--
		if d.branchStallRemaining == 0 {
			d.latches[StageF].Stalled = false
			d.latches[StageDRF].Stalled = false
		}
	}

	ex1 := d.latches[StageEX1]
	if !ex1.Empty() {
		ex1.Buffer = d.alu.Compute(ex1.Inst, ex1.Rs1Value, ex1.Rs2Value)
	}
	d.latches[StageEX2] = ex1
}

func (d *Driver) decodeStage() {
	drf := d.latches[StageDRF]

	if drf.Stalled {
		d.latches[StageEX1] = Latch{}
		return
	}
	if drf.Empty() {
		d.latches[StageEX1] = Latch{}
		return
	}

	if drf.Inst.Op == insts.OpHALT {
		d.fetchFlushed = true
		d.latches[StageF] = Latch{}
		d.latches[StageEX1] = drf
		return
	}

	if drf.Inst.Op == insts.OpBZ || drf.Inst.Op == insts.OpBNZ {
		// branchStallRemaining, not drf.Stalled, is authoritative here:
		// MEM1/MEM2/EX2 unconditionally clear F/DRF's stall flag for
		// whatever non-load instruction they see this same cycle, so a
		// countdown longer than one cycle needs its own state to survive
		// that clear.
		if d.branchStallRemaining > 0 {
			d.latches[StageDRF].Stalled = true
			d.latches[StageF].Stalled = true
			d.latches[StageEX1] = Latch{}
			return
		}
		if d.hazard.BranchAluHazard(d.latches[StageEX1]) {
			d.branchStallRemaining = d.cfg.BranchStallCycles
			d.latches[StageDRF].Stalled = true
			d.latches[StageF].Stalled = true
			d.latches[StageEX1] = Latch{}
			return
		}
	}

	needRs1, needRs2, needRs3 := drf.Inst.ReadsRegisters()
	ex1 := d.latches[StageEX1]
	stalled := false
	var rs1v, rs2v, rs3v int

	if needRs1 {
		if v, ok := d.hazard.ResolveOperand(drf.Inst.Rs1, d.regFile, d.forward, ex1); ok {
			rs1v = v
		} else {
			stalled = true
		}
	}
	if needRs2 {
		if v, ok := d.hazard.ResolveOperand(drf.Inst.Rs2, d.regFile, d.forward, ex1); ok {
			rs2v = v
		} else {
			stalled = true
		}
	}
	if needRs3 {
		if v, ok := d.hazard.ResolveOperand(drf.Inst.Rs3, d.regFile, d.forward, ex1); ok {
			rs3v = v
		} else {
			stalled = true
		}
	}

	if stalled {
		d.latches[StageDRF].Stalled = true
		d.latches[StageF].Stalled = true
		d.latches[StageEX1] = Latch{}
		return
	}

	drf.Rs1Value, drf.Rs2Value, drf.Rs3Value = rs1v, rs2v, rs3v
	if drf.Inst.WritesRegister() {
		d.regFile.MarkInvalid(drf.Inst.Rd)
	}
	d.latches[StageDRF] = drf
	d.latches[StageDRF].Stalled = false
	d.latches[StageF].Stalled = false
	d.latches[StageEX1] = drf
}

func (d *Driver) fetchStage() {
	if d.squashPending || d.invalidJump {
		return
	}
	if d.fetchFlushed {
		d.latches[StageDRF] = Latch{}
		return
	}

	f := d.latches[StageF]
	if f.Stalled {
		return
	}

	if d.pc >= d.codeLimit() {
		d.latches[StageDRF] = Latch{}
		return
	}

	idx := (d.pc - cpu.CodeBase) / 4
	next := Latch{PC: d.pc, Inst: d.program[idx]}
	d.pc += 4

	d.latches[StageF] = next
	d.latches[StageDRF] = next
}
