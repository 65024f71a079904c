package pipeline_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/config"
	"github.com/sarchlab/apexsim/cpu"
	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/pipeline"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

func runToCompletion(program []insts.Instruction, cfg config.Simulator) *pipeline.Driver {
	d := pipeline.NewDriver(program, cfg)
	for !d.Done() {
		d.Tick()
	}
	return d
}

var _ = Describe("Driver", func() {
	var cfg config.Simulator

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	Context("MOVC followed by a dependent ADD", func() {
		It("forwards the MOVC results into ADD without corrupting the scoreboard", func() {
			program := []insts.Instruction{
				{Op: insts.OpMOVC, Rd: 1, Imm: 5},
				{Op: insts.OpMOVC, Rd: 2, Imm: 10},
				{Op: insts.OpADD, Rd: 3, Rs1: 1, Rs2: 2},
				{Op: insts.OpHALT},
			}
			d := runToCompletion(program, cfg)

			Expect(d.InvalidJump()).To(BeFalse())
			Expect(d.RegisterFile().Read(3)).To(Equal(15))
			for r := 0; r < cpu.NumRegisters; r++ {
				Expect(d.RegisterFile().IsValid(r)).To(BeTrue())
			}
			Expect(d.Retired()).To(Equal(4))
		})
	})

	Context("a load immediately consumed by the next instruction", func() {
		storeLoadUse := []insts.Instruction{
			{Op: insts.OpMOVC, Rd: 1, Imm: 40},
			{Op: insts.OpMOVC, Rd: 2, Imm: 7},
			{Op: insts.OpSTORE, Rs1: 2, Rs2: 1, Imm: 0},
			{Op: insts.OpLOAD, Rd: 3, Rs1: 1, Imm: 0},
			{Op: insts.OpADD, Rd: 4, Rs1: 3, Rs2: 3},
			{Op: insts.OpHALT},
		}

		// independent has the same instruction count as storeLoadUse, but
		// the instruction after LOAD does not read its destination, so
		// the only variable between the two runs is the load-use hazard.
		independent := []insts.Instruction{
			{Op: insts.OpMOVC, Rd: 1, Imm: 40},
			{Op: insts.OpMOVC, Rd: 2, Imm: 7},
			{Op: insts.OpSTORE, Rs1: 2, Rs2: 1, Imm: 0},
			{Op: insts.OpLOAD, Rd: 3, Rs1: 1, Imm: 0},
			{Op: insts.OpMOVC, Rd: 5, Imm: 99},
			{Op: insts.OpHALT},
		}

		It("stores then loads the same address correctly", func() {
			d := runToCompletion(storeLoadUse, cfg)
			Expect(d.Memory().Read(40)).To(Equal(7))
			Expect(d.RegisterFile().Read(3)).To(Equal(7))
			Expect(d.RegisterFile().Read(4)).To(Equal(14))
		})

		It("incurs at least one extra stall cycle versus an independent instruction stream", func() {
			dep := runToCompletion(storeLoadUse, cfg)
			indep := runToCompletion(independent, cfg)

			Expect(dep.Clock()).To(BeNumerically(">", indep.Clock()))
		})

		It("marks every register valid once the run has drained", func() {
			d := runToCompletion(storeLoadUse, cfg)
			for r := 0; r < cpu.NumRegisters; r++ {
				Expect(d.RegisterFile().IsValid(r)).To(BeTrue())
			}
		})
	})

	Context("a taken BZ immediately behind a flag-setting ALU op", func() {
		It("stalls for the ALU result, then squashes the skipped instruction", func() {
			program := []insts.Instruction{
				{Op: insts.OpMOVC, Rd: 1, Imm: 5},           // 4000
				{Op: insts.OpSUB, Rd: 2, Rs1: 1, Rs2: 1},    // 4004: R2 = 0, Z = 1
				{Op: insts.OpBZ, Imm: 8},                    // 4008: taken, target 4016
				{Op: insts.OpMOVC, Rd: 3, Imm: 99},          // 4012: must be squashed
				{Op: insts.OpMOVC, Rd: 4, Imm: 42},          // 4016: branch target
				{Op: insts.OpHALT},                          // 4020
			}
			d := runToCompletion(program, cfg)

			Expect(d.InvalidJump()).To(BeFalse())
			Expect(d.RegisterFile().Read(3)).To(Equal(0))
			Expect(d.RegisterFile().IsValid(3)).To(BeTrue())
			Expect(d.RegisterFile().Read(4)).To(Equal(42))
			Expect(d.Retired()).To(Equal(5))
		})
	})

	Context("a not-taken BNZ immediately behind a flag-setting ALU op", func() {
		It("falls through to the very next instruction", func() {
			program := []insts.Instruction{
				{Op: insts.OpMOVC, Rd: 1, Imm: 5},
				{Op: insts.OpSUB, Rd: 2, Rs1: 1, Rs2: 1}, // R2 = 0, Z = 1
				{Op: insts.OpBNZ, Imm: 8},                // not taken: Z == 1
				{Op: insts.OpMOVC, Rd: 3, Imm: 99},       // executes normally
				{Op: insts.OpHALT},
			}
			d := runToCompletion(program, cfg)

			Expect(d.RegisterFile().Read(3)).To(Equal(99))
			Expect(d.Retired()).To(Equal(5))
		})
	})

	Context("a JUMP whose target falls outside the code range", func() {
		It("stops the run and reports the invalid jump", func() {
			program := []insts.Instruction{
				{Op: insts.OpMOVC, Rd: 1, Imm: 0},
				{Op: insts.OpJUMP, Rs1: 1, Imm: 0}, // target 0, outside [4000, codeLimit)
				{Op: insts.OpHALT},
			}
			d := runToCompletion(program, cfg)

			Expect(d.InvalidJump()).To(BeTrue())
			Expect(d.Done()).To(BeTrue())
		})
	})

	Context("a cycle cap", func() {
		It("stops the run after exactly the configured number of cycles", func() {
			cfg.Cycles = 3
			program := []insts.Instruction{
				{Op: insts.OpMOVC, Rd: 1, Imm: 1},
				{Op: insts.OpMOVC, Rd: 2, Imm: 2},
				{Op: insts.OpMOVC, Rd: 3, Imm: 3},
				{Op: insts.OpMOVC, Rd: 4, Imm: 4},
				{Op: insts.OpHALT},
			}
			d := runToCompletion(program, cfg)
			Expect(d.Clock()).To(Equal(3))
		})
	})
})
