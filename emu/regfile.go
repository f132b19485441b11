// Package emu provides the LEGv8 register file, memory model, and
// fetch-decode-execute loop.
package emu

// Register initialization constants: X28 starts one doubleword below the
// top of the dynamic region (the stack pointer, which the assembler also
// accepts as SP) and X30 starts at a sentinel one word before text_end so an unresolved
// BR X30 return faults obviously instead of silently reading whatever
// instruction happens to sit at address 0.
const (
	TextStart   = 0x0040_0000
	TextEnd     = 0x1000_0000
	DynamicEnd  = 0x0000_007F_FFFF_FFFC
	initialX28  = DynamicEnd - 8
	initialX30  = TextEnd - 4
	ZeroPageEnd = 4096
)

// RegFile is the LEGv8 register file: 32 general-purpose registers, 32
// single- and 32 double-precision floating-point registers, and the NZCV
// condition flags. X31 is hardwired to zero: WriteX silently drops writes
// to it and ReadX always returns 0 for it.
type RegFile struct {
	X [32]uint64
	S [32]float32
	D [32]float64

	PC int64 // instruction index into the assembled program, not a byte address

	N, Z, C, V bool
}

// NewRegFile returns a RegFile with X31 zeroed and X28/X30 set to their
// documented startup values; every other register starts at zero.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.X[28] = initialX28
	r.X[30] = initialX30
	return r
}

// ReadX reads general-purpose register n. X31 always reads as zero.
func (r *RegFile) ReadX(n uint8) uint64 {
	if n == 31 {
		return 0
	}
	return r.X[n]
}

// ReadXSigned reads general-purpose register n as a signed 64-bit value.
func (r *RegFile) ReadXSigned(n uint8) int64 {
	return int64(r.ReadX(n))
}

// WriteX writes general-purpose register n. Writes to X31 are discarded.
func (r *RegFile) WriteX(n uint8, value uint64) {
	if n == 31 {
		return
	}
	r.X[n] = value
}

// WriteXSigned writes a signed value to general-purpose register n.
func (r *RegFile) WriteXSigned(n uint8, value int64) {
	r.WriteX(n, uint64(value))
}

// ReadS reads single-precision FP register n.
func (r *RegFile) ReadS(n uint8) float32 { return r.S[n&0x1F] }

// WriteS writes single-precision FP register n.
func (r *RegFile) WriteS(n uint8, v float32) { r.S[n&0x1F] = v }

// ReadD reads double-precision FP register n.
func (r *RegFile) ReadD(n uint8) float64 { return r.D[n&0x1F] }

// WriteD writes double-precision FP register n.
func (r *RegFile) WriteD(n uint8, v float64) { r.D[n&0x1F] = v }

// NZCV packs the four condition flags into their conventional 4-bit order
// (N in bit 3 down to V in bit 0).
func (r *RegFile) NZCV() uint8 {
	var v uint8
	if r.N {
		v |= 0x8
	}
	if r.Z {
		v |= 0x4
	}
	if r.C {
		v |= 0x2
	}
	if r.V {
		v |= 0x1
	}
	return v
}
