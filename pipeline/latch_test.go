package pipeline_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/pipeline"
)

func TestLatch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Latch Suite")
}

var _ = Describe("Latch", func() {
	It("treats the zero value as a bubble", func() {
		Expect(pipeline.Latch{}.Empty()).To(BeTrue())
	})

	It("is not empty once it carries a real instruction", func() {
		l := pipeline.Latch{Inst: insts.Instruction{Op: insts.OpMOVC, Rd: 1}}
		Expect(l.Empty()).To(BeFalse())
	})

	It("reports HasDest only for a live, register-writing instruction matching rd", func() {
		l := pipeline.Latch{Inst: insts.Instruction{Op: insts.OpADD, Rd: 3}}
		Expect(l.HasDest(3)).To(BeTrue())
		Expect(l.HasDest(4)).To(BeFalse())
		Expect(pipeline.Latch{}.HasDest(3)).To(BeFalse())

		store := pipeline.Latch{Inst: insts.Instruction{Op: insts.OpSTORE, Rs1: 3}}
		Expect(store.HasDest(3)).To(BeFalse())
	})
})

var _ = Describe("StageName", func() {
	It("names every stage from Fetch through Writeback", func() {
		Expect(pipeline.StageName(pipeline.StageF)).To(Equal("Fetch"))
		Expect(pipeline.StageName(pipeline.StageDRF)).To(Equal("Decode/RF"))
		Expect(pipeline.StageName(pipeline.StageWB)).To(Equal("Writeback"))
	})
})
