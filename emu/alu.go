package emu

import "math/bits"

// ALU implements LEGv8's 64-bit arithmetic and logic instruction family:
// ADD/ADDS/ADDI/ADDIS, SUB/SUBS/SUBI/SUBIS, AND/ANDS/ANDI/ANDIS,
// ORR/ORRI, EOR/EORI, LSL/LSR, and MUL/SDIV/UDIV/SMULH/UMULH.
type ALU struct {
	regs *RegFile
}

// NewALU creates an ALU connected to the given register file.
func NewALU(regs *RegFile) *ALU {
	return &ALU{regs: regs}
}

// Add computes rd = rn + op2, optionally setting NZCV.
func (a *ALU) Add(rd, rn uint8, op2 uint64, setFlags bool) {
	op1 := a.regs.ReadX(rn)
	result := op1 + op2
	a.regs.WriteX(rd, result)
	if setFlags {
		a.setAddFlags(op1, op2, result)
	}
}

// Sub computes rd = rn - op2, optionally setting NZCV.
func (a *ALU) Sub(rd, rn uint8, op2 uint64, setFlags bool) {
	op1 := a.regs.ReadX(rn)
	result := op1 - op2
	a.regs.WriteX(rd, result)
	if setFlags {
		a.setSubFlags(op1, op2, result)
	}
}

// And computes rd = rn & op2, optionally setting N/Z (C and V are cleared).
func (a *ALU) And(rd, rn uint8, op2 uint64, setFlags bool) {
	result := a.regs.ReadX(rn) & op2
	a.regs.WriteX(rd, result)
	if setFlags {
		a.setLogicFlags(result)
	}
}

// Orr computes rd = rn | op2. ORR/ORRI never set flags in this ISA.
func (a *ALU) Orr(rd, rn uint8, op2 uint64) {
	a.regs.WriteX(rd, a.regs.ReadX(rn)|op2)
}

// Eor computes rd = rn ^ op2. EOR/EORI never set flags in this ISA.
func (a *ALU) Eor(rd, rn uint8, op2 uint64) {
	a.regs.WriteX(rd, a.regs.ReadX(rn)^op2)
}

// Lsl computes rd = rn << shamt.
func (a *ALU) Lsl(rd, rn, shamt uint8) {
	a.regs.WriteX(rd, a.regs.ReadX(rn)<<(shamt&0x3F))
}

// Lsr computes rd = rn >> shamt (logical, unsigned).
func (a *ALU) Lsr(rd, rn, shamt uint8) {
	a.regs.WriteX(rd, a.regs.ReadX(rn)>>(shamt&0x3F))
}

// Mul computes rd = rn * rm, truncated to 64 bits.
func (a *ALU) Mul(rd, rn, rm uint8) {
	a.regs.WriteX(rd, a.regs.ReadX(rn)*a.regs.ReadX(rm))
}

// Sdiv computes rd = rn / rm as a signed division. The caller is
// responsible for checking rm != 0 and raising ExcDivByZero first.
func (a *ALU) Sdiv(rd, rn, rm uint8) {
	a.regs.WriteXSigned(rd, a.regs.ReadXSigned(rn)/a.regs.ReadXSigned(rm))
}

// Udiv computes rd = rn / rm as an unsigned division.
func (a *ALU) Udiv(rd, rn, rm uint8) {
	a.regs.WriteX(rd, a.regs.ReadX(rn)/a.regs.ReadX(rm))
}

// Smulh computes rd = high 64 bits of the signed 128-bit product rn*rm.
func (a *ALU) Smulh(rd, rn, rm uint8) {
	hi, _ := mulSigned64(a.regs.ReadXSigned(rn), a.regs.ReadXSigned(rm))
	a.regs.WriteXSigned(rd, hi)
}

// Umulh computes rd = high 64 bits of the unsigned 128-bit product rn*rm.
func (a *ALU) Umulh(rd, rn, rm uint8) {
	hi, _ := mulUnsigned64(a.regs.ReadX(rn), a.regs.ReadX(rm))
	a.regs.WriteX(rd, hi)
}

func (a *ALU) setAddFlags(op1, op2, result uint64) {
	a.regs.N = (result >> 63) == 1
	a.regs.Z = result == 0
	a.regs.C = result < op1
	op1Sign, op2Sign, resultSign := op1>>63, op2>>63, result>>63
	a.regs.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

func (a *ALU) setSubFlags(op1, op2, result uint64) {
	a.regs.N = (result >> 63) == 1
	a.regs.Z = result == 0
	a.regs.C = op1 >= op2
	op1Sign, op2Sign, resultSign := op1>>63, op2>>63, result>>63
	a.regs.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

func (a *ALU) setLogicFlags(result uint64) {
	a.regs.N = (result >> 63) == 1
	a.regs.Z = result == 0
	a.regs.C = false
	a.regs.V = false
}

// mulSigned64 returns the high and low 64 bits of the signed 128-bit
// product a*b, via bits.Mul64 on the magnitudes.
func mulSigned64(a, b int64) (hi, lo int64) {
	negative := (a < 0) != (b < 0)
	uhi, ulo := mulUnsigned64(abs64(a), abs64(b))
	if !negative {
		return int64(uhi), int64(ulo)
	}
	lo64, borrow := bits.Sub64(0, ulo, 0)
	hi64, _ := bits.Sub64(0, uhi, borrow)
	return int64(hi64), int64(lo64)
}

func mulUnsigned64(a, b uint64) (hi, lo uint64) {
	hi, lo = bits.Mul64(a, b)
	return hi, lo
}

func abs64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
