package emu

import "math"

// FPUnit implements LEGv8's scalar floating-point family: FADDS/FADDD,
// FSUBS/FSUBD, FMULS/FMULD, FDIVS/FDIVD, and FCMPS/FCMPD. Single- and
// double-precision share one opcode per operation in the codec table and
// are told apart at decode time by shamt; by the time an FPUnit method
// runs, that's already resolved into which method got called.
type FPUnit struct {
	regs *RegFile
}

// NewFPUnit creates an FPUnit connected to the given register file.
func NewFPUnit(regs *RegFile) *FPUnit {
	return &FPUnit{regs: regs}
}

func (f *FPUnit) FAddS(sd, sn, sm uint8) { f.regs.WriteS(sd, f.regs.ReadS(sn)+f.regs.ReadS(sm)) }
func (f *FPUnit) FAddD(dd, dn, dm uint8) { f.regs.WriteD(dd, f.regs.ReadD(dn)+f.regs.ReadD(dm)) }
func (f *FPUnit) FSubS(sd, sn, sm uint8) { f.regs.WriteS(sd, f.regs.ReadS(sn)-f.regs.ReadS(sm)) }
func (f *FPUnit) FSubD(dd, dn, dm uint8) { f.regs.WriteD(dd, f.regs.ReadD(dn)-f.regs.ReadD(dm)) }
func (f *FPUnit) FMulS(sd, sn, sm uint8) { f.regs.WriteS(sd, f.regs.ReadS(sn)*f.regs.ReadS(sm)) }
func (f *FPUnit) FMulD(dd, dn, dm uint8) { f.regs.WriteD(dd, f.regs.ReadD(dn)*f.regs.ReadD(dm)) }

// FDivS divides two single-precision values. The caller must check for a
// zero divisor and raise ExcFPDivByZero before calling, per spec: this
// ISA treats float division by zero as a fault rather than producing Inf.
func (f *FPUnit) FDivS(sd, sn, sm uint8) {
	f.regs.WriteS(sd, f.regs.ReadS(sn)/f.regs.ReadS(sm))
}

func (f *FPUnit) FDivD(dd, dn, dm uint8) {
	f.regs.WriteD(dd, f.regs.ReadD(dn)/f.regs.ReadD(dm))
}

// FCmpS compares two single-precision values and packs NZCV per the FP
// compare table: equal -> N=0,Z=1,V=1,C=0; less -> N=1,Z=0,V=0,C=0;
// greater -> N=0,Z=0,V=1,C=0; unordered (either operand NaN) -> N=0,Z=0,
// V=1,C=1.
func (f *FPUnit) FCmpS(sn, sm uint8) {
	a, b := f.regs.ReadS(sn), f.regs.ReadS(sm)
	f.setFPFlags(math.IsNaN(float64(a)) || math.IsNaN(float64(b)), a == b, a < b)
}

func (f *FPUnit) FCmpD(dn, dm uint8) {
	a, b := f.regs.ReadD(dn), f.regs.ReadD(dm)
	f.setFPFlags(math.IsNaN(a) || math.IsNaN(b), a == b, a < b)
}

func (f *FPUnit) setFPFlags(unordered, equal, less bool) {
	switch {
	case unordered:
		f.regs.N, f.regs.Z, f.regs.V, f.regs.C = false, false, true, true
	case equal:
		f.regs.N, f.regs.Z, f.regs.V, f.regs.C = false, true, true, false
	case less:
		f.regs.N, f.regs.Z, f.regs.V, f.regs.C = true, false, false, false
	default:
		f.regs.N, f.regs.Z, f.regs.V, f.regs.C = false, false, true, false
	}
}
