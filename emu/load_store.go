package emu

import "math"

// LoadStoreUnit implements LEGv8's load/store family: LDUR/STUR and its
// byte/halfword/word-sign-extended variants, the FP LDURS/LDURD/STURS/
// STURD forms, and the non-atomic LDXR/STXR pair.
type LoadStoreUnit struct {
	regs *RegFile
	mem  *Memory
}

// NewLoadStoreUnit creates a LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regs *RegFile, mem *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{regs: regs, mem: mem}
}

func (u *LoadStoreUnit) addr(rn uint8, offset int64) uint64 {
	return uint64(int64(u.regs.ReadX(rn)) + offset)
}

// LDUR loads 64 bits: Xt = mem[Xn + offset].
func (u *LoadStoreUnit) LDUR(pc int64, rt, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read64(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteX(rt, v)
	return nil
}

// LDURB loads a byte, zero-extended: Xt = mem[Xn + offset].
func (u *LoadStoreUnit) LDURB(pc int64, rt, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read8(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteX(rt, uint64(v))
	return nil
}

// LDURH loads a halfword, zero-extended: Xt = mem[Xn + offset].
func (u *LoadStoreUnit) LDURH(pc int64, rt, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read16(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteX(rt, uint64(v))
	return nil
}

// LDURSW loads a word, sign-extended to 64 bits: Xt = mem[Xn + offset].
func (u *LoadStoreUnit) LDURSW(pc int64, rt, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read32(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteXSigned(rt, int64(int32(v)))
	return nil
}

// STUR stores 64 bits: mem[Xn + offset] = Xt.
func (u *LoadStoreUnit) STUR(pc int64, rt, rn uint8, offset int64) *Exception {
	return u.mem.Write64(pc, u.addr(rn, offset), u.regs.ReadX(rt))
}

// STURB stores the low byte of Xt.
func (u *LoadStoreUnit) STURB(pc int64, rt, rn uint8, offset int64) *Exception {
	return u.mem.Write8(pc, u.addr(rn, offset), uint8(u.regs.ReadX(rt)))
}

// STURH stores the low halfword of Xt.
func (u *LoadStoreUnit) STURH(pc int64, rt, rn uint8, offset int64) *Exception {
	return u.mem.Write16(pc, u.addr(rn, offset), uint16(u.regs.ReadX(rt)))
}

// STURW stores the low word of Xt.
func (u *LoadStoreUnit) STURW(pc int64, rt, rn uint8, offset int64) *Exception {
	return u.mem.Write32(pc, u.addr(rn, offset), uint32(u.regs.ReadX(rt)))
}

// LDURS loads a single-precision float: St = mem[Xn + offset].
func (u *LoadStoreUnit) LDURS(pc int64, st, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read32(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteS(st, math.Float32frombits(v))
	return nil
}

// LDURD loads a double-precision float: Dt = mem[Xn + offset].
func (u *LoadStoreUnit) LDURD(pc int64, dt, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read64(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteD(dt, math.Float64frombits(v))
	return nil
}

// STURS stores a single-precision float.
func (u *LoadStoreUnit) STURS(pc int64, st, rn uint8, offset int64) *Exception {
	return u.mem.Write32(pc, u.addr(rn, offset), math.Float32bits(u.regs.ReadS(st)))
}

// STURD stores a double-precision float.
func (u *LoadStoreUnit) STURD(pc int64, dt, rn uint8, offset int64) *Exception {
	return u.mem.Write64(pc, u.addr(rn, offset), math.Float64bits(u.regs.ReadD(dt)))
}

// LDXR loads 64 bits from [Xn + offset] into Xt. This emulator is
// single-threaded, so "exclusive" is tracked in name only: no reservation
// state is kept.
func (u *LoadStoreUnit) LDXR(pc int64, rt, rn uint8, offset int64) *Exception {
	v, err := u.mem.Read64(pc, u.addr(rn, offset))
	if err != nil {
		return err
	}
	u.regs.WriteX(rt, v)
	return nil
}

// STXR stores Xt to [Xn] and reports success in Rs: STXR always succeeds
// since there are no concurrent writers to race against.
func (u *LoadStoreUnit) STXR(pc int64, rs, rt, rn uint8) *Exception {
	if err := u.mem.Write64(pc, u.regs.ReadX(rn), u.regs.ReadX(rt)); err != nil {
		return err
	}
	u.regs.WriteX(rs, 0) // 0 signals success, matching the real STXR status convention
	return nil
}
