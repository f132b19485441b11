package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/emu"
)

var _ = Describe("ALU", func() {
	var (
		regs *emu.RegFile
		alu  *emu.ALU
	)

	BeforeEach(func() {
		regs = emu.NewRegFile()
		alu = emu.NewALU(regs)
	})

	Describe("Add", func() {
		It("sets Z and C on X + (-X)", func() {
			regs.WriteX(1, 1)
			regs.WriteX(2, ^uint64(0)) // -1

			alu.Add(0, 1, regs.ReadX(2), true)

			Expect(regs.ReadX(0)).To(BeZero())
			Expect(regs.Z).To(BeTrue())
			Expect(regs.C).To(BeTrue())
			Expect(regs.N).To(BeFalse())
			Expect(regs.V).To(BeFalse())
		})

		It("sets V on signed overflow", func() {
			regs.WriteXSigned(1, 1<<62)
			regs.WriteXSigned(2, 1<<62)

			alu.Add(0, 1, regs.ReadX(2), true)

			Expect(regs.V).To(BeTrue())
		})
	})

	Describe("Sub", func() {
		It("sets carry when no borrow occurs", func() {
			regs.WriteX(1, 5)
			regs.WriteX(2, 3)

			alu.Sub(0, 1, regs.ReadX(2), true)

			Expect(regs.ReadX(0)).To(BeNumerically("==", 2))
			Expect(regs.C).To(BeTrue())
		})

		It("clears carry and sets N on borrow", func() {
			regs.WriteX(1, 3)
			regs.WriteX(2, 5)

			alu.Sub(0, 1, regs.ReadX(2), true)

			Expect(regs.C).To(BeFalse())
			Expect(regs.N).To(BeTrue())
		})
	})

	It("clears C and V unconditionally on AND", func() {
		regs.WriteX(1, 0xFF)
		regs.WriteX(2, 0x0F)
		regs.C, regs.V = true, true

		alu.And(0, 1, regs.ReadX(2), true)

		Expect(regs.ReadX(0)).To(BeNumerically("==", 0x0F))
		Expect(regs.C).To(BeFalse())
		Expect(regs.V).To(BeFalse())
	})

	It("never touches NZCV for ORR/EOR", func() {
		regs.N, regs.Z, regs.C, regs.V = true, true, true, true

		alu.Orr(0, 31, 0)
		alu.Eor(0, 31, 0)

		Expect(regs.N && regs.Z && regs.C && regs.V).To(BeTrue())
	})

	It("shifts left and right", func() {
		regs.WriteX(1, 1)
		alu.Lsl(0, 1, 4)
		Expect(regs.ReadX(0)).To(BeNumerically("==", 16))

		regs.WriteX(1, 16)
		alu.Lsr(0, 1, 4)
		Expect(regs.ReadX(0)).To(BeNumerically("==", 1))
	})

	It("multiplies and divides, signed and unsigned", func() {
		regs.WriteXSigned(1, -6)
		regs.WriteXSigned(2, 3)

		alu.Mul(0, 1, 2)
		Expect(regs.ReadXSigned(0)).To(BeNumerically("==", -18))

		alu.Sdiv(0, 1, 2)
		Expect(regs.ReadXSigned(0)).To(BeNumerically("==", -2))

		regs.WriteX(1, 20)
		regs.WriteX(2, 6)
		alu.Udiv(0, 1, 2)
		Expect(regs.ReadX(0)).To(BeNumerically("==", 3))
	})

	It("computes the high half of a 64x64 multiply", func() {
		regs.WriteX(1, ^uint64(0)) // all bits set = -1 signed, max unsigned
		regs.WriteX(2, 2)

		alu.Umulh(0, 1, 2)
		Expect(regs.ReadX(0)).To(BeNumerically("==", 1))

		alu.Smulh(0, 1, 2)
		Expect(regs.ReadXSigned(0)).To(BeNumerically("==", -1))
	})

	It("hardwires X31 to zero", func() {
		regs.WriteX(31, 12345)
		Expect(regs.ReadX(31)).To(BeZero())
	})
})
