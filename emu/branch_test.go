package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/emu"
	"github.com/archsim/legv8/insts"
)

var _ = Describe("BranchUnit", func() {
	var (
		regs   *emu.RegFile
		branch *emu.BranchUnit
	)

	BeforeEach(func() {
		regs = emu.NewRegFile()
		branch = emu.NewBranchUnit(regs)
	})

	Describe("CheckCondition", func() {
		cases := []struct {
			name       string
			n, z, c, v bool
			cond       insts.Cond
			want       bool
		}{
			{"EQ true", false, true, false, false, insts.CondEQ, true},
			{"EQ false", false, false, false, false, insts.CondEQ, false},
			{"NE", false, false, false, false, insts.CondNE, true},
			{"HS", false, false, true, false, insts.CondHS, true},
			{"LO", false, false, false, false, insts.CondLO, true},
			{"MI", true, false, false, false, insts.CondMI, true},
			{"PL", false, false, false, false, insts.CondPL, true},
			{"VS", false, false, false, true, insts.CondVS, true},
			{"VC", false, false, false, false, insts.CondVC, true},
			{"HI true", false, false, true, false, insts.CondHI, true},
			{"HI false (Z set)", false, true, true, false, insts.CondHI, false},
			{"LS true (C clear)", false, false, false, false, insts.CondLS, true},
			{"GE true (N==V)", false, false, false, false, insts.CondGE, true},
			{"GE false", true, false, false, false, insts.CondGE, false},
			{"LT true (N!=V)", true, false, false, false, insts.CondLT, true},
			{"GT true", false, false, false, false, insts.CondGT, true},
			{"GT false (Z set)", false, true, false, false, insts.CondGT, false},
			{"LE true (Z set)", false, true, false, false, insts.CondLE, true},
		}
		for _, c := range cases {
			c := c
			It(c.name, func() {
				regs.N, regs.Z, regs.C, regs.V = c.n, c.z, c.c, c.v
				Expect(branch.CheckCondition(c.cond)).To(Equal(c.want))
			})
		}
	})

	It("saves the return address in X30 on BL", func() {
		target := branch.BL(10, 5)

		Expect(target).To(BeNumerically("==", 15))
		Expect(regs.ReadX(30)).To(Equal(emu.IndexToAddr(11)))
	})

	It("translates a text-segment byte address back into an index on BR", func() {
		regs.WriteX(5, emu.IndexToAddr(7))
		Expect(branch.BR(5)).To(BeNumerically("==", 7))
	})

	It("branches on CBZ/CBNZ and falls through otherwise", func() {
		regs.WriteX(1, 0)
		Expect(branch.CBZ(0, 3, 1)).To(BeNumerically("==", 3))
		Expect(branch.CBZ(0, 3, 31)).To(BeNumerically("==", 3)) // X31 always reads zero

		regs.WriteX(1, 99)
		Expect(branch.CBNZ(0, 3, 1)).To(BeNumerically("==", 3))
		Expect(branch.CBZ(0, 3, 1)).To(BeNumerically("==", 1))
	})

	It("round-trips AddrToIndex/IndexToAddr", func() {
		for _, idx := range []int64{0, 1, 100, 65535} {
			addr := emu.IndexToAddr(idx)
			Expect(emu.AddrToIndex(addr)).To(Equal(idx))
		}
	})
})
