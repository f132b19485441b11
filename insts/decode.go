package insts

import "fmt"

// Instruction is a decoded 32-bit word: which family it belongs to, plus
// whichever operand fields that family's format carries. Fields unused by
// a given Tag are left zero.
type Instruction struct {
	Tag    Tag
	Word   uint32
	Rd     uint8
	Rn     uint8
	Rm     uint8
	Rt     uint8
	Shamt  uint8
	Imm    int64 // sign-extended immediate/branch offset, in the format's native unit
	Cond   Cond
	MovLSL uint8 // MOVZ/MOVK shift amount in units of 16 bits (0-3)
}

// fastTable maps an 11-bit opcode prefix directly to its codec when the
// prefix is unambiguous. Slots covered by more than one codec are left
// nil and fall back to ambiguous, which lists every candidate for a
// linear discriminator scan.
var fastTable [1 << PrefixWidth]*Codec

// ambiguous lists, per 11-bit prefix, every codec whose range covers a
// slot that fastTable left nil because more than one codec claims it.
var ambiguous = make(map[uint16][]*Codec)

func init() {
	counts := make(map[uint16]int)
	for _, c := range codecs {
		for p := c.OpcodeStart; ; p++ {
			counts[p]++
			if p == c.OpcodeEnd {
				break
			}
		}
	}
	for _, c := range codecs {
		for p := c.OpcodeStart; ; p++ {
			if counts[p] == 1 {
				fastTable[p] = c
			} else {
				ambiguous[p] = append(ambiguous[p], c)
			}
			if p == c.OpcodeEnd {
				break
			}
		}
	}
}

// Decoder turns 32-bit words into Instructions using the codec table.
// It carries no mutable state; a zero-value Decoder is ready to use.
type Decoder struct{}

// NewDecoder returns a ready-to-use Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode looks up the codec for word's opcode prefix in O(1) via the fast
// table, falling back to a scan of the ambiguous slot's discriminator list,
// then unpacks the operand fields for that codec's format.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	prefix := Prefix(word)
	codec := fastTable[prefix]
	if codec == nil {
		codec = resolveAmbiguous(prefix, word)
	}
	if codec == nil {
		return nil, fmt.Errorf("insts: unknown opcode prefix %#03x (word %#08x)", prefix, word)
	}
	return codec.decodeOperands(word), nil
}

func resolveAmbiguous(prefix uint16, word uint32) *Codec {
	candidates := ambiguous[prefix]
	if len(candidates) == 0 {
		return nil
	}
	switch candidates[0].Format {
	case FormatR:
		_, _, shamt, _, _ := UnpackR(word)
		for _, c := range candidates {
			if c.discriminator == shamt {
				return c
			}
		}
	case FormatCB:
		rt, _, _ := UnpackCB(word)
		for _, c := range candidates {
			if c.discriminator == rt {
				return c
			}
		}
	}
	return nil
}

func (c *Codec) decodeOperands(word uint32) *Instruction {
	inst := &Instruction{Tag: c.Tag, Word: word}
	switch c.Format {
	case FormatR:
		rd, rn, shamt, rm, _ := UnpackR(word)
		inst.Rd, inst.Rn, inst.Rm, inst.Shamt = rd, rn, rm, shamt
	case FormatI:
		rd, rn, imm12, _ := UnpackI(word)
		inst.Rd, inst.Rn, inst.Imm = rd, rn, int64(imm12)
	case FormatD:
		rt, rn, _, dtAddress, _ := UnpackD(word)
		inst.Rt, inst.Rn, inst.Imm = rt, rn, int64(dtAddress) // unsigned 9-bit offset
	case FormatB:
		brAddress, _ := UnpackB(word)
		inst.Imm = int64(brAddress)
	case FormatCB:
		rt, condBrAddress, _ := UnpackCB(word)
		inst.Rt, inst.Imm = rt, int64(condBrAddress)
		if c.Tag == TagBCond {
			inst.Cond = Cond(rt)
		}
	case FormatIW:
		rd, movImm, shamtX16, _ := UnpackIW(word)
		inst.Rd, inst.Imm, inst.MovLSL = rd, int64(movImm), shamtX16
	}
	return inst
}

// Encode packs operand fields into a 32-bit word for the named tag. It is
// the assembler's half of the codec: given a resolved mnemonic and its
// operands, produce the word Decode would read back unchanged.
func Encode(tag Tag, inst *Instruction) (uint32, error) {
	candidates := byTag[tag]
	if len(candidates) == 0 {
		return 0, fmt.Errorf("insts: no codec registered for tag %d", tag)
	}
	c := candidates[0]
	if tag == TagBCond {
		for _, cand := range candidates {
			if cand.discriminator == uint8(inst.Cond) {
				c = cand
				break
			}
		}
	}
	// OpcodeStart is an 11-bit prefix; formats whose opcode field is
	// narrower than 11 bits take its top bits, and the low bits of the
	// prefix come from the operand fields packed below them.
	switch c.Format {
	case FormatR:
		shamt := inst.Shamt
		if c.hasDiscriminator {
			shamt = c.discriminator
		}
		return PackR(inst.Rd, inst.Rn, shamt, inst.Rm, c.OpcodeStart), nil
	case FormatI:
		return PackI(inst.Rd, inst.Rn, int16(inst.Imm), c.OpcodeStart>>1), nil
	case FormatD:
		return PackD(inst.Rt, inst.Rn, 0, uint16(inst.Imm)&0x1FF, c.OpcodeStart), nil
	case FormatB:
		return PackB(int32(inst.Imm), c.OpcodeStart>>5), nil
	case FormatCB:
		rt := inst.Rt
		if c.Tag == TagBCond {
			rt = uint8(inst.Cond)
		}
		return PackCB(rt, int32(inst.Imm), c.OpcodeStart>>3), nil
	case FormatIW:
		return PackIW(inst.Rd, uint16(inst.Imm), inst.MovLSL, c.OpcodeStart>>2), nil
	}
	return 0, fmt.Errorf("insts: unhandled format %s", c.Format)
}
