package assembler_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/assembler"
	"github.com/archsim/legv8/insts"
)

func mustAssemble(src string) *assembler.Program {
	prog, errs := assembler.Assemble("test.s", src)
	Expect(errs).To(BeEmpty())
	return prog
}

func decodeAt(prog *assembler.Program, i int64) *insts.Instruction {
	dec := insts.NewDecoder()
	inst, err := dec.Decode(prog.Word(i))
	Expect(err).NotTo(HaveOccurred())
	return inst
}

var _ = Describe("Assemble", func() {
	It("assembles a simple R-format ADD", func() {
		prog := mustAssemble("ADD X0, X1, X2\n")
		Expect(prog.Len()).To(BeNumerically("==", 1))
		inst := decodeAt(prog, 0)
		Expect(inst.Tag).To(Equal(insts.TagADD))
		Expect(inst.Rd).To(Equal(uint8(0)))
		Expect(inst.Rn).To(Equal(uint8(1)))
		Expect(inst.Rm).To(Equal(uint8(2)))
	})

	It("assembles an immediate instruction", func() {
		prog := mustAssemble("ADDI X0, X1, #42\n")
		inst := decodeAt(prog, 0)
		Expect(inst.Tag).To(Equal(insts.TagADDI))
		Expect(inst.Imm).To(BeNumerically("==", 42))
	})

	It("resolves register keyword aliases", func() {
		prog := mustAssemble("ADD SP, FP, LR\n")
		inst := decodeAt(prog, 0)
		Expect(inst.Rd).To(Equal(uint8(28)))
		Expect(inst.Rn).To(Equal(uint8(29)))
		Expect(inst.Rm).To(Equal(uint8(30)))
	})

	Describe("labels", func() {
		It("defines a label and resolves a forward branch to it", func() {
			prog := mustAssemble("B target\nHALT\ntarget: ADD X0, X1, X2\n")
			Expect(prog.Len()).To(BeNumerically("==", 3))
			inst := decodeAt(prog, 0)
			Expect(inst.Tag).To(Equal(insts.TagB))
			Expect(inst.Imm).To(BeNumerically("==", 2))

			labels := prog.Labels()
			Expect(labels).To(HaveLen(1))
			Expect(labels[0].Name).To(Equal("target"))
			Expect(labels[0].Index).To(BeNumerically("==", 2))
		})

		It("resolves a backward branch to a negative offset", func() {
			prog := mustAssemble("loop: ADDI X0, X0, #1\nB loop\n")
			inst := decodeAt(prog, 1)
			Expect(inst.Tag).To(Equal(insts.TagB))
			Expect(inst.Imm).To(BeNumerically("==", -1))
		})

		It("reports ErrUndefinedLabel for a branch to an unknown label", func() {
			_, errs := assembler.Assemble("test.s", "B nowhere\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrUndefinedLabel))
		})

		It("reports ErrDuplicateLabelName for a label defined twice", func() {
			_, errs := assembler.Assemble("test.s", "a: HALT\na: HALT\n")
			kinds := make([]assembler.ErrorKind, len(errs))
			for i, e := range errs {
				kinds[i] = e.Kind
			}
			Expect(kinds).To(ContainElement(assembler.ErrDuplicateLabelName))
		})

		It("rejects a dotted identifier as a label definition", func() {
			_, errs := assembler.Assemble("test.s", "B.EQ: HALT\n")
			Expect(errs).NotTo(BeEmpty())
		})

		It("rejects a dotted identifier as a branch label reference", func() {
			_, errs := assembler.Assemble("test.s", "B B.EQ\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrDotLabel))
		})

		It("rejects a dotted identifier as a CBZ label reference", func() {
			_, errs := assembler.Assemble("test.s", "CBZ X1, B.EQ\n")
			kinds := make([]assembler.ErrorKind, len(errs))
			for i, e := range errs {
				kinds[i] = e.Kind
			}
			Expect(kinds).To(ContainElement(assembler.ErrDotLabel))
		})

		It("reports an error for a colon with no preceding label name", func() {
			_, errs := assembler.Assemble("test.s", ": HALT\n")
			Expect(errs).NotTo(BeEmpty())
		})
	})

	Describe("syntax and range errors", func() {
		It("reports ErrUnknownMnemonic", func() {
			_, errs := assembler.Assemble("test.s", "NOPE X0, X1, X2\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrUnknownMnemonic))
		})

		It("reports ErrShiftAmountOverflow", func() {
			_, errs := assembler.Assemble("test.s", "LSL X0, X1, #64\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrShiftAmountOverflow))
		})

		It("reports ErrImmediateOverflow", func() {
			_, errs := assembler.Assemble("test.s", "ADDI X0, X1, #4096\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrImmediateOverflow))
		})

		It("reports ErrLoadStoreOffsetOverflow", func() {
			_, errs := assembler.Assemble("test.s", "LDUR X0, [X1, #512]\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrLoadStoreOffsetOverflow))
		})

		It("reports ErrMovShiftOverflow for a non-multiple-of-16 shift", func() {
			_, errs := assembler.Assemble("test.s", "MOVZ X0, #1, LSL #8\n")
			Expect(errs).To(HaveLen(1))
			Expect(errs[0].Kind).To(Equal(assembler.ErrMovShiftOverflow))
		})

		It("reports ErrUnimplementedFarJump for an out-of-range B.EQ", func() {
			src := "B.EQ target\n"
			for i := 0; i < (1 << 19); i++ {
				src += "HALT\n"
			}
			src += "target: HALT\n"
			_, errs := assembler.Assemble("test.s", src)
			kinds := make([]assembler.ErrorKind, len(errs))
			for i, e := range errs {
				kinds[i] = e.Kind
			}
			Expect(kinds).To(ContainElement(assembler.ErrUnimplementedFarJump))
		})

		It("sorts accumulated errors by source position", func() {
			// The undefined-label error (line 1) is only discovered after the
			// full pass completes, but must still sort before the line-2
			// syntax error in the reported diagnostics.
			_, errs := assembler.Assemble("test.s", "B nowhere\nNOPE X0, X1, X2\n")
			Expect(errs).To(HaveLen(2))
			Expect(errs[0].Kind).To(Equal(assembler.ErrUndefinedLabel))
			Expect(errs[1].Kind).To(Equal(assembler.ErrUnknownMnemonic))
		})
	})

	Describe("pseudo-instructions", func() {
		It("lowers MOV to ADD Xd, Xn, XZR", func() {
			prog := mustAssemble("MOV X0, X1\n")
			inst := decodeAt(prog, 0)
			Expect(inst.Tag).To(Equal(insts.TagADD))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(31)))
		})

		It("lowers CMP to SUBS XZR, Xn, Xm", func() {
			prog := mustAssemble("CMP X1, X2\n")
			inst := decodeAt(prog, 0)
			Expect(inst.Tag).To(Equal(insts.TagSUBS))
			Expect(inst.Rd).To(Equal(uint8(31)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(2)))
		})

		It("lowers CMPI to SUBIS XZR, Xn, #imm", func() {
			prog := mustAssemble("CMPI X1, #5\n")
			inst := decodeAt(prog, 0)
			Expect(inst.Tag).To(Equal(insts.TagSUBIS))
			Expect(inst.Rd).To(Equal(uint8(31)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Imm).To(BeNumerically("==", 5))
		})

		Describe("LDA", func() {
			It("emits a single MOVZ for a backward reference whose address fits one half", func() {
				prog := mustAssemble("target: HALT\nLDA X0, target\n")
				Expect(prog.Len()).To(BeNumerically("==", 2))
				inst := decodeAt(prog, 1)
				Expect(inst.Tag).To(Equal(insts.TagMOVZ))
			})

			It("reserves four slots for a forward reference without flagging relocations", func() {
				prog := mustAssemble("LDA X0, target\ntarget: HALT\n")
				Expect(prog.Len()).To(BeNumerically("==", 5))
				Expect(prog.NeedsRelocations).To(BeFalse())
				first := decodeAt(prog, 0)
				Expect(first.Tag).To(Equal(insts.TagMOVZ))
			})
		})
	})

	Describe("Program accessors", func() {
		It("packs Bytes() as the big-endian encoding of Word()", func() {
			prog := mustAssemble("HALT\n")
			b := prog.Bytes()
			Expect(b).To(HaveLen(4))
			word := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
			Expect(word).To(Equal(prog.Word(0)))
		})

		It("maps an instruction index back to its source line and nearest label", func() {
			prog := mustAssemble("start: ADD X0, X1, X2\nHALT\n")
			pos, ok := prog.SourceSpan(0)
			Expect(ok).To(BeTrue())
			Expect(pos.Line).To(Equal(1))

			name, ok := prog.LabelAt(1)
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("start"))
		})
	})
})
