package emu

import "github.com/archsim/legv8/insts"

// BranchUnit implements LEGv8's branch family: B, BL, BR, B.cond, CBZ,
// CBNZ. PC is an instruction index; branch offsets are in instructions,
// not bytes, since fetch never sees a byte address for PC itself.
type BranchUnit struct {
	regs *RegFile
}

// NewBranchUnit creates a BranchUnit connected to the given register file.
func NewBranchUnit(regs *RegFile) *BranchUnit {
	return &BranchUnit{regs: regs}
}

// B branches unconditionally to pc + offset.
func (b *BranchUnit) B(pc, offset int64) int64 {
	return pc + offset
}

// BL branches to pc + offset, saving the return address (pc + 1) in X30.
func (b *BranchUnit) BL(pc, offset int64) int64 {
	b.regs.WriteX(30, IndexToAddr(pc+1))
	return pc + offset
}

// BR branches to the absolute text-segment byte address held in Xn,
// translating it back into an instruction index.
func (b *BranchUnit) BR(rn uint8) int64 {
	return AddrToIndex(b.regs.ReadX(rn))
}

// BCond branches to pc + offset if cond holds against the current NZCV
// flags, otherwise falls through to pc + 1.
func (b *BranchUnit) BCond(pc, offset int64, cond insts.Cond) int64 {
	if b.CheckCondition(cond) {
		return pc + offset
	}
	return pc + 1
}

// CBZ branches to pc + offset if Xt is zero, otherwise falls through.
func (b *BranchUnit) CBZ(pc, offset int64, rt uint8) int64 {
	if b.regs.ReadX(rt) == 0 {
		return pc + offset
	}
	return pc + 1
}

// CBNZ branches to pc + offset if Xt is nonzero, otherwise falls through.
func (b *BranchUnit) CBNZ(pc, offset int64, rt uint8) int64 {
	if b.regs.ReadX(rt) != 0 {
		return pc + offset
	}
	return pc + 1
}

// CheckCondition evaluates a 4-bit condition code against NZCV.
func (b *BranchUnit) CheckCondition(cond insts.Cond) bool {
	switch cond {
	case insts.CondEQ:
		return b.regs.Z
	case insts.CondNE:
		return !b.regs.Z
	case insts.CondHS:
		return b.regs.C
	case insts.CondLO:
		return !b.regs.C
	case insts.CondMI:
		return b.regs.N
	case insts.CondPL:
		return !b.regs.N
	case insts.CondVS:
		return b.regs.V
	case insts.CondVC:
		return !b.regs.V
	case insts.CondHI:
		return b.regs.C && !b.regs.Z
	case insts.CondLS:
		return !b.regs.C || b.regs.Z
	case insts.CondGE:
		return b.regs.N == b.regs.V
	case insts.CondLT:
		return b.regs.N != b.regs.V
	case insts.CondGT:
		return !b.regs.Z && (b.regs.N == b.regs.V)
	case insts.CondLE:
		return b.regs.Z || (b.regs.N != b.regs.V)
	default:
		return false
	}
}

// AddrToIndex converts a byte address inside the text segment into a
// 0-based instruction index, the inverse of the instruction fetch
// addressing BR needs since registers carry byte addresses but PC is
// an index.
func AddrToIndex(addr uint64) int64 {
	return (int64(addr) - TextStart) / 4
}

// IndexToAddr converts a 0-based instruction index into its text-segment
// byte address, used when materializing a return address for BL.
func IndexToAddr(index int64) uint64 {
	return uint64(TextStart + index*4)
}
