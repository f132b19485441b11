package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/emu"
	"github.com/archsim/legv8/insts"
)

// asm packs a sequence of instructions into a text segment; every case
// here is a fixed, known-good program so an encode error is a test bug.
func asm(insns ...*insts.Instruction) []byte {
	buf := make([]byte, 0, len(insns)*4)
	for _, in := range insns {
		w, err := insts.Encode(in.Tag, in)
		Expect(err).NotTo(HaveOccurred())
		buf = append(buf, byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	}
	return buf
}

var _ = Describe("Emulator", func() {
	It("adds two immediates and halts", func() {
		prog := asm(
			&insts.Instruction{Tag: insts.TagADDI, Rd: 1, Rn: 31, Imm: 40},
			&insts.Instruction{Tag: insts.TagADDI, Rd: 2, Rn: 31, Imm: 2},
			&insts.Instruction{Tag: insts.TagADD, Rd: 0, Rn: 1, Rm: 2},
			&insts.Instruction{Tag: insts.TagHALT},
		)
		e := emu.NewEmulator(prog)

		for i := 0; i < 3; i++ {
			r := e.Step()
			Expect(r.Err).To(BeNil())
			Expect(r.Exited).To(BeFalse())
		}
		Expect(e.RegFile().ReadXSigned(0)).To(BeNumerically("==", 42))

		r := e.Step()
		Expect(r.Err).NotTo(BeNil())
		Expect(r.Err.Kind).To(Equal(emu.ExcBreakpointHalt))
		Expect(e.State()).To(Equal(emu.StateFaulted))
	})

	It("Run returns 1 and reports the fault on HALT", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagHALT})
		var stderr bytes.Buffer
		e := emu.NewEmulator(prog, emu.WithStderr(&stderr))

		Expect(e.Run()).To(Equal(int64(1)))
		Expect(stderr.Len()).NotTo(BeZero())
	})

	It("exits cleanly when execution falls off the end of text", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagADDI, Rd: 0, Rn: 31, Imm: 1})
		e := emu.NewEmulator(prog)

		e.Step()
		r := e.Step()
		Expect(r.Exited).To(BeTrue())
		Expect(r.ExitCode).To(Equal(int64(0)))
		Expect(e.State()).To(Equal(emu.StateHalted))
	})

	It("faults when a branch target lands outside text", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagB, Imm: 1000})
		e := emu.NewEmulator(prog)

		r := e.Step()
		Expect(r.Err).NotTo(BeNil())
		Expect(r.Err.Kind).To(Equal(emu.ExcPC))
	})

	It("faults on SDIV by X31, which always reads zero", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagSDIV, Rd: 0, Rn: 31, Rm: 31})
		e := emu.NewEmulator(prog)

		r := e.Step()
		Expect(r.Err).NotTo(BeNil())
		Expect(r.Err.Kind).To(Equal(emu.ExcDivByZero))
	})

	It("sets X30 on BL and returns via BR X30", func() {
		// 0: BL +2 (call the routine at index 2)
		// 1: HALT (never reached directly; return lands here via BR X30)
		// 2: (routine) ADDI X0, X31, #7
		// 3: BR X30
		prog := asm(
			&insts.Instruction{Tag: insts.TagBL, Imm: 2},
			&insts.Instruction{Tag: insts.TagHALT},
			&insts.Instruction{Tag: insts.TagADDI, Rd: 0, Rn: 31, Imm: 7},
			&insts.Instruction{Tag: insts.TagBR, Rn: 30},
		)
		e := emu.NewEmulator(prog)

		e.Step() // BL
		Expect(e.RegFile().PC).To(BeNumerically("==", 2))
		e.Step() // ADDI
		e.Step() // BR
		Expect(e.RegFile().PC).To(BeNumerically("==", 1))
		Expect(e.RegFile().ReadXSigned(0)).To(BeNumerically("==", 7))
	})

	It("takes and skips a conditional branch", func() {
		// SUBS X31, X1, X2 sets flags from X1-X2 without clobbering a real reg.
		prog := asm(
			&insts.Instruction{Tag: insts.TagADDI, Rd: 1, Rn: 31, Imm: 5},
			&insts.Instruction{Tag: insts.TagADDI, Rd: 2, Rn: 31, Imm: 5},
			&insts.Instruction{Tag: insts.TagSUBS, Rd: 31, Rn: 1, Rm: 2},
			&insts.Instruction{Tag: insts.TagBCond, Cond: insts.CondEQ, Imm: 2},
			&insts.Instruction{Tag: insts.TagHALT}, // skipped when taken
			&insts.Instruction{Tag: insts.TagHALT}, // landed on
		)
		e := emu.NewEmulator(prog)
		for i := 0; i < 4; i++ {
			e.Step()
		}
		Expect(e.RegFile().PC).To(BeNumerically("==", 5))
	})

	It("round-trips a value through STUR/LDUR", func() {
		prog := asm(
			&insts.Instruction{Tag: insts.TagADDI, Rd: 1, Rn: 31, Imm: 99},
			&insts.Instruction{Tag: insts.TagSTUR, Rt: 1, Rn: 28, Imm: 0},
			&insts.Instruction{Tag: insts.TagLDUR, Rt: 2, Rn: 28, Imm: 0},
			&insts.Instruction{Tag: insts.TagHALT},
		)
		e := emu.NewEmulator(prog)
		for i := 0; i < 3; i++ {
			r := e.Step()
			Expect(r.Err).To(BeNil())
		}
		Expect(e.RegFile().ReadXSigned(2)).To(BeNumerically("==", 99))
	})

	It("applies LDXR's offset like LDUR", func() {
		// X28 starts 8 bytes below the top of the dynamic region, so move it
		// down first to leave room for the +16 offset.
		prog := asm(
			&insts.Instruction{Tag: insts.TagSUBI, Rd: 28, Rn: 28, Imm: 64},
			&insts.Instruction{Tag: insts.TagADDI, Rd: 1, Rn: 31, Imm: 7},
			&insts.Instruction{Tag: insts.TagSTUR, Rt: 1, Rn: 28, Imm: 16},
			&insts.Instruction{Tag: insts.TagLDXR, Rt: 2, Rn: 28, Imm: 16},
			&insts.Instruction{Tag: insts.TagHALT},
		)
		e := emu.NewEmulator(prog)
		for i := 0; i < 4; i++ {
			r := e.Step()
			Expect(r.Err).To(BeNil())
		}
		Expect(e.RegFile().ReadXSigned(2)).To(BeNumerically("==", 7))
	})

	It("reports success in Rs after STXR", func() {
		prog := asm(
			&insts.Instruction{Tag: insts.TagADDI, Rd: 1, Rn: 31, Imm: 5},
			&insts.Instruction{Tag: insts.TagSTXR, Rt: 1, Rn: 28, Imm: 0}, // Imm carries Rs here
			&insts.Instruction{Tag: insts.TagHALT},
		)
		e := emu.NewEmulator(prog)
		for i := 0; i < 2; i++ {
			r := e.Step()
			Expect(r.Err).To(BeNil())
		}
		Expect(e.RegFile().ReadX(0)).To(BeZero())
	})

	It("writes formatted PRNT output to configured stdout", func() {
		prog := asm(
			&insts.Instruction{Tag: insts.TagADDI, Rd: 0, Rn: 31, Imm: 42},
			&insts.Instruction{Tag: insts.TagPRNT, Rd: 0, Rn: 0}, // PrntX bank
			&insts.Instruction{Tag: insts.TagHALT},
		)
		var stdout bytes.Buffer
		e := emu.NewEmulator(prog, emu.WithStdout(&stdout))
		for i := 0; i < 2; i++ {
			e.Step()
		}
		Expect(stdout.String()).To(Equal("X0: 0x000000000000002A (42)\n"))
	})

	It("stops a runaway program at the instruction limit", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagB, Imm: 0}) // infinite self-branch
		e := emu.NewEmulator(prog, emu.WithMaxInstructions(3))

		for i := 0; i < 3; i++ {
			r := e.Step()
			Expect(r.Err).To(BeNil())
		}
		r := e.Step()
		Expect(r.Err).NotTo(BeNil())
	})

	It("stops at an armed breakpoint and continues once cleared", func() {
		prog := asm(
			&insts.Instruction{Tag: insts.TagADDI, Rd: 0, Rn: 31, Imm: 1},
			&insts.Instruction{Tag: insts.TagHALT},
		)
		e := emu.NewEmulator(prog)
		e.SetBreakpoint(1)

		e.Step()
		r := e.Step()
		Expect(r.Err).NotTo(BeNil())
		Expect(r.Err.Kind).To(Equal(emu.ExcBreakpointDebugger))

		e2 := emu.NewEmulator(prog)
		e2.SetBreakpoint(1)
		e2.ClearBreakpoint(1)
		e2.Step()
		r2 := e2.Step() // runs the HALT at index 1 instead of stopping before it
		Expect(r2.Err).NotTo(BeNil())
		Expect(r2.Err.Kind).To(Equal(emu.ExcBreakpointHalt))
	})

	It("returns an error stepping past a terminal state", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagHALT})
		e := emu.NewEmulator(prog)
		e.Step()
		r := e.Step()
		Expect(r.Err).NotTo(BeNil())
	})

	It("enables the zero page region via WithZeroPage", func() {
		prog := asm(&insts.Instruction{Tag: insts.TagHALT})
		e := emu.NewEmulator(prog, emu.WithZeroPage(true))
		Expect(e.Memory().Write8(0, 100, 1)).To(BeNil())
	})
})
