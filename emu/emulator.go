// Package emu provides functional LEGv8 emulation.
package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/archsim/legv8/insts"
)

// State is where the run loop currently stands.
type State uint8

const (
	StateRunning State = iota
	StateHalted
	StateFaulted
)

// StepResult is what Step reports after one fetch-decode-execute cycle.
type StepResult struct {
	Exited   bool
	ExitCode int64
	Err      *Exception
}

// Emulator executes a LEGv8 instruction stream against a register file
// and memory, one instruction at a time.
type Emulator struct {
	regs    *RegFile
	mem     *Memory
	decoder *insts.Decoder

	alu    *ALU
	lsu    *LoadStoreUnit
	branch *BranchUnit
	fp     *FPUnit
	io     *IOUnit

	stdout io.Writer
	stderr io.Writer

	state            State
	instructionCount uint64
	maxInstructions  uint64 // 0 means unlimited

	breakpoints    map[int64]bool
	zeroPageWanted bool
}

// EmulatorOption configures an Emulator at construction time.
type EmulatorOption func(*Emulator)

// WithStdout overrides the writer PRNT/PRNL/DUMP write to.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) { e.stdout = w }
}

// WithStderr overrides the writer uncaught run errors are reported to.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) { e.stderr = w }
}

// WithMaxInstructions caps how many instructions Run will execute before
// giving up, guarding against runaway programs in tests. 0 means no cap.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) { e.maxInstructions = max }
}

// WithZeroPage enables the optional zero_page memory region.
func WithZeroPage(enabled bool) EmulatorOption {
	return func(e *Emulator) { e.zeroPageWanted = enabled }
}

// NewEmulator builds an Emulator whose text segment is the given
// assembled instruction stream (big-endian packed words), ready to run
// from instruction 0.
func NewEmulator(text []byte, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		decoder:     insts.NewDecoder(),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		breakpoints: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.regs = NewRegFile()
	e.mem = NewMemory(text, e.zeroPageWanted)
	e.alu = NewALU(e.regs)
	e.lsu = NewLoadStoreUnit(e.regs, e.mem)
	e.branch = NewBranchUnit(e.regs)
	e.fp = NewFPUnit(e.regs)
	e.io = NewIOUnit(e.regs, e.stdout, e.stderr)
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile { return e.regs }

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory { return e.mem }

// InstructionCount returns the number of instructions executed so far.
func (e *Emulator) InstructionCount() uint64 { return e.instructionCount }

// State reports whether the emulator is running, halted, or faulted.
func (e *Emulator) State() State { return e.state }

// SetBreakpoint arms a debugger breakpoint at the given instruction
// index; the next Step to reach it returns bkpt.debugger instead of
// executing it.
func (e *Emulator) SetBreakpoint(pc int64) { e.breakpoints[pc] = true }

// ClearBreakpoint disarms a previously armed breakpoint.
func (e *Emulator) ClearBreakpoint(pc int64) { delete(e.breakpoints, pc) }

// Step executes a single instruction: fetch, decode, execute. It returns
// Exited/ExitCode when the PC has run past the end of text, and Err when
// an exception stopped execution (HALT included, as bkpt.halt); Err
// leaves the emulator in StateFaulted, and Exited leaves it in
// StateHalted, either way the loop must not keep calling Step.
func (e *Emulator) Step() StepResult {
	if e.state != StateRunning {
		return StepResult{Err: &Exception{Kind: ExcInstr, FaultPC: e.regs.PC, Detail: "step called after halt or fault"}}
	}
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		exc := &Exception{Kind: ExcInstr, FaultPC: e.regs.PC, Detail: "instruction limit reached"}
		e.state = StateFaulted
		return StepResult{Err: exc}
	}
	if e.breakpoints[e.regs.PC] {
		exc := &Exception{Kind: ExcBreakpointDebugger, FaultPC: e.regs.PC}
		e.state = StateFaulted
		return StepResult{Err: exc}
	}

	if e.regs.PC < 0 {
		exc := &Exception{Kind: ExcPC, FaultPC: e.regs.PC}
		e.state = StateFaulted
		return StepResult{Err: exc}
	}
	if e.regs.PC >= e.mem.TextLen() {
		e.state = StateHalted
		return StepResult{Exited: true, ExitCode: 0}
	}

	word, exc := e.mem.FetchInstruction(e.regs.PC)
	if exc != nil {
		e.state = StateFaulted
		return StepResult{Err: exc}
	}

	inst, err := e.decoder.Decode(word)
	if err != nil {
		exc := &Exception{Kind: ExcInstr, FaultPC: e.regs.PC, Detail: "undecodable word"}
		e.state = StateFaulted
		return StepResult{Err: exc}
	}

	e.instructionCount++
	return e.execute(inst)
}

// Run steps until the program halts or faults, returning the exit code
// (0 when execution runs past the end of text, 1 on any exception,
// HALT's bkpt.halt included).
func (e *Emulator) Run() int64 {
	for {
		result := e.Step()
		if result.Err != nil {
			fmt.Fprintln(e.stderr, result.Err)
			return 1
		}
		if result.Exited {
			return result.ExitCode
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	pc := e.regs.PC
	nextPC := pc + 1

	switch inst.Tag {
	case insts.TagADD:
		e.alu.Add(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm), false)
	case insts.TagADDS:
		e.alu.Add(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm), true)
	case insts.TagADDI:
		e.alu.Add(inst.Rd, inst.Rn, uint64(inst.Imm), false)
	case insts.TagADDIS:
		e.alu.Add(inst.Rd, inst.Rn, uint64(inst.Imm), true)
	case insts.TagSUB:
		e.alu.Sub(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm), false)
	case insts.TagSUBS:
		e.alu.Sub(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm), true)
	case insts.TagSUBI:
		e.alu.Sub(inst.Rd, inst.Rn, uint64(inst.Imm), false)
	case insts.TagSUBIS:
		e.alu.Sub(inst.Rd, inst.Rn, uint64(inst.Imm), true)
	case insts.TagAND:
		e.alu.And(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm), false)
	case insts.TagANDS:
		e.alu.And(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm), true)
	case insts.TagANDI:
		e.alu.And(inst.Rd, inst.Rn, uint64(inst.Imm), false)
	case insts.TagANDIS:
		e.alu.And(inst.Rd, inst.Rn, uint64(inst.Imm), true)
	case insts.TagORR:
		e.alu.Orr(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm))
	case insts.TagORRI:
		e.alu.Orr(inst.Rd, inst.Rn, uint64(inst.Imm))
	case insts.TagEOR:
		e.alu.Eor(inst.Rd, inst.Rn, e.regs.ReadX(inst.Rm))
	case insts.TagEORI:
		e.alu.Eor(inst.Rd, inst.Rn, uint64(inst.Imm))
	case insts.TagLSL:
		e.alu.Lsl(inst.Rd, inst.Rn, inst.Shamt)
	case insts.TagLSR:
		e.alu.Lsr(inst.Rd, inst.Rn, inst.Shamt)
	case insts.TagMUL:
		e.alu.Mul(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagSMULH:
		e.alu.Smulh(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagUMULH:
		e.alu.Umulh(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagSDIV:
		if e.regs.ReadX(inst.Rm) == 0 {
			return e.fault(&Exception{Kind: ExcDivByZero, FaultPC: pc})
		}
		e.alu.Sdiv(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagUDIV:
		if e.regs.ReadX(inst.Rm) == 0 {
			return e.fault(&Exception{Kind: ExcDivByZero, FaultPC: pc})
		}
		e.alu.Udiv(inst.Rd, inst.Rn, inst.Rm)

	case insts.TagMOVZ:
		e.regs.WriteX(inst.Rd, uint64(inst.Imm)<<(16*uint(inst.MovLSL)))
	case insts.TagMOVK:
		shift := 16 * uint(inst.MovLSL)
		mask := uint64(0xFFFF) << shift
		v := (e.regs.ReadX(inst.Rd) &^ mask) | (uint64(inst.Imm) << shift)
		e.regs.WriteX(inst.Rd, v)

	case insts.TagB:
		t, fe := e.branchTo(e.branch.B(pc, inst.Imm))
		if fe != nil {
			return e.fault(fe)
		}
		nextPC = t
	case insts.TagBL:
		t, fe := e.branchTo(e.branch.BL(pc, inst.Imm))
		if fe != nil {
			return e.fault(fe)
		}
		nextPC = t
	case insts.TagBR:
		addr := e.regs.ReadX(inst.Rn)
		if addr < TextStart || addr%4 != 0 {
			return e.fault(&Exception{Kind: ExcPC, FaultPC: pc})
		}
		t, fe := e.branchTo(e.branch.BR(inst.Rn))
		if fe != nil {
			return e.fault(fe)
		}
		nextPC = t
	case insts.TagBCond:
		if e.branch.CheckCondition(inst.Cond) {
			t, fe := e.branchTo(pc + inst.Imm)
			if fe != nil {
				return e.fault(fe)
			}
			nextPC = t
		}
	case insts.TagCBZ:
		taken := e.regs.ReadX(inst.Rt) == 0
		target := e.branch.CBZ(pc, inst.Imm, inst.Rt)
		if taken {
			t, fe := e.branchTo(target)
			if fe != nil {
				return e.fault(fe)
			}
			nextPC = t
		}
	case insts.TagCBNZ:
		taken := e.regs.ReadX(inst.Rt) != 0
		target := e.branch.CBNZ(pc, inst.Imm, inst.Rt)
		if taken {
			t, fe := e.branchTo(target)
			if fe != nil {
				return e.fault(fe)
			}
			nextPC = t
		}

	case insts.TagLDUR:
		if exc := e.lsu.LDUR(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagLDURB:
		if exc := e.lsu.LDURB(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagLDURH:
		if exc := e.lsu.LDURH(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagLDURSW:
		if exc := e.lsu.LDURSW(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTUR:
		if exc := e.lsu.STUR(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTURB:
		if exc := e.lsu.STURB(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTURH:
		if exc := e.lsu.STURH(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTURW:
		if exc := e.lsu.STURW(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagLDURS:
		if exc := e.lsu.LDURS(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagLDURD:
		if exc := e.lsu.LDURD(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTURS:
		if exc := e.lsu.STURS(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTURD:
		if exc := e.lsu.STURD(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagLDXR:
		if exc := e.lsu.LDXR(pc, inst.Rt, inst.Rn, inst.Imm); exc != nil {
			return e.fault(exc)
		}
	case insts.TagSTXR:
		if inst.Imm < 0 || inst.Imm > 31 {
			return e.fault(&Exception{Kind: ExcInstr, FaultPC: pc, Detail: "invalid status register"})
		}
		if exc := e.lsu.STXR(pc, uint8(inst.Imm), inst.Rt, inst.Rn); exc != nil {
			return e.fault(exc)
		}

	case insts.TagFADDS:
		e.fp.FAddS(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFADDD:
		e.fp.FAddD(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFSUBS:
		e.fp.FSubS(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFSUBD:
		e.fp.FSubD(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFMULS:
		e.fp.FMulS(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFMULD:
		e.fp.FMulD(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFDIVS:
		if e.regs.ReadS(inst.Rm) == 0 {
			return e.fault(&Exception{Kind: ExcFPDivByZero, FaultPC: pc})
		}
		e.fp.FDivS(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFDIVD:
		if e.regs.ReadD(inst.Rm) == 0 {
			return e.fault(&Exception{Kind: ExcFPDivByZero, FaultPC: pc})
		}
		e.fp.FDivD(inst.Rd, inst.Rn, inst.Rm)
	case insts.TagFCMPS:
		e.fp.FCmpS(inst.Rn, inst.Rm)
	case insts.TagFCMPD:
		e.fp.FCmpD(inst.Rn, inst.Rm)

	case insts.TagHALT:
		return e.fault(&Exception{Kind: ExcBreakpointHalt, FaultPC: pc})
	case insts.TagDUMP:
		e.io.Dump()
	case insts.TagPRNT:
		e.io.Prnt(PrntKind(inst.Rn), inst.Rd)
	case insts.TagPRNL:
		e.io.Prnl()
	case insts.TagTIME:
		e.io.Time(inst.Rd)

	default:
		return e.fault(&Exception{Kind: ExcInstr, FaultPC: pc, Detail: fmt.Sprintf("unhandled tag %d", inst.Tag)})
	}

	e.regs.PC = nextPC
	return StepResult{}
}

func (e *Emulator) fault(exc *Exception) StepResult {
	e.state = StateFaulted
	return StepResult{Err: exc}
}

// branchTo validates a computed branch target against the text segment
// bounds. Unlike falling off the natural end of the program (a clean
// halt), a branch landing outside text is a pc exception.
func (e *Emulator) branchTo(target int64) (int64, *Exception) {
	if target < 0 || target >= e.mem.TextLen() {
		return 0, &Exception{Kind: ExcPC, FaultPC: e.regs.PC}
	}
	return target, nil
}
