// Package insts provides the LEGv8 instruction codec: the static catalogue
// of mnemonics, opcode ranges, and bit-field layouts shared by the
// assembler and the VM, plus the O(1) decoder built on top of it.
//
// Usage:
//
//	codec, ok := insts.Lookup("ADDI")
//	word, err := insts.Encode(codec.Tag, &insts.Instruction{Rd: 0, Rn: 1, Imm: 42})
//	dec := insts.NewDecoder()
//	got, err := dec.Decode(word)
package insts

// Format identifies which of the six 32-bit instruction layouts a codec
// entry uses.
type Format uint8

// The six LEGv8 instruction formats, LSB to MSB field order per spec.
const (
	FormatR Format = iota
	FormatI
	FormatD
	FormatB
	FormatCB
	FormatIW
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatD:
		return "D"
	case FormatB:
		return "B"
	case FormatCB:
		return "CB"
	case FormatIW:
		return "IW"
	default:
		return "?"
	}
}

// OperandStyle names the operand grammar a mnemonic accepts, matching the
// table in spec.md §4.3.
type OperandStyle uint8

const (
	StyleNone OperandStyle = iota
	StyleXXX               // Xd, Xn, Xm
	StyleXXShamt           // Xd, Xn, #shamt
	StyleX                 // Xn
	StyleSSS               // Sd, Sn, Sm
	StyleDDD               // Dd, Dn, Dm
	StyleSS                // Sn, Sm
	StyleDD                // Dn, Dm
	StyleEmpty             // no operands
	StyleTime              // optional Xn, default X0
	StylePrnt              // one register, any bank
	StyleI                 // Xd, Xn, #imm12
	StyleDLoadX            // Xt, [Xn, #off]  (X register)
	StyleDLoadS            // St, [Xn, #off]  (S register)
	StyleDLoadD            // Dt, [Xn, #off]  (D register)
	StyleDStxr             // Xs, Xt, [Xn]
	StyleB                 // one label
	StyleCB                // one label (fixed condition)
	StyleCBZ               // Xt, label
	StyleIW                // Xd, #imm16 [, LSL #s]
)

var operandStyleNames = map[OperandStyle]string{
	StyleXXX: "Xd,Xn,Xm", StyleXXShamt: "Xd,Xn,#sh", StyleX: "Xn",
	StyleSSS: "Sd,Sn,Sm", StyleDDD: "Dd,Dn,Dm", StyleSS: "Sn,Sm", StyleDD: "Dn,Dm",
	StyleEmpty: "-", StyleTime: "[Xn]", StylePrnt: "Rn",
	StyleI: "Xd,Xn,#imm", StyleDLoadX: "Xt,[Xn,#off]", StyleDLoadS: "St,[Xn,#off]", StyleDLoadD: "Dt,[Xn,#off]",
	StyleDStxr: "Xs,Xt,[Xn]", StyleB: "label", StyleCB: "label", StyleCBZ: "Xt,label", StyleIW: "Xd,#imm16[,LSL]",
}

func (s OperandStyle) String() string {
	if n, ok := operandStyleNames[s]; ok {
		return n
	}
	return "?"
}

// Tag is a stable ordinal identifying one codec entry (one instruction
// family). Tags are never renumbered once assigned; new mnemonics append.
type Tag uint16

// Every instruction family this ISA defines.
const (
	TagADD Tag = iota
	TagADDS
	TagADDI
	TagADDIS
	TagSUB
	TagSUBS
	TagSUBI
	TagSUBIS
	TagAND
	TagANDS
	TagANDI
	TagANDIS
	TagORR
	TagORRI
	TagEOR
	TagEORI
	TagLSL
	TagLSR
	TagMOVZ
	TagMOVK
	TagB
	TagBL
	TagBCond
	TagBR
	TagCBZ
	TagCBNZ
	TagLDUR
	TagLDURB
	TagLDURH
	TagLDURSW
	TagLDXR
	TagSTUR
	TagSTURB
	TagSTURH
	TagSTURW
	TagSTXR
	TagMUL
	TagSDIV
	TagUDIV
	TagSMULH
	TagUMULH
	TagFADDS
	TagFADDD
	TagFSUBS
	TagFSUBD
	TagFMULS
	TagFMULD
	TagFDIVS
	TagFDIVD
	TagFCMPS
	TagFCMPD
	TagLDURS
	TagLDURD
	TagSTURS
	TagSTURD
	TagHALT
	TagDUMP
	TagPRNT
	TagPRNL
	TagTIME
	tagCount
)

// Cond is a 4-bit LEGv8 condition code, stored verbatim in the CB format's
// discriminator field for conditional branches.
type Cond uint8

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondLT Cond = 0xB
	CondGE Cond = 0xA
	CondLE Cond = 0xD
	CondGT Cond = 0xC
	CondLO Cond = 0x3
	CondHS Cond = 0x2
	CondLS Cond = 0x9
	CondHI Cond = 0x8
	CondMI Cond = 0x4
	CondPL Cond = 0x5
	CondVS Cond = 0x6
	CondVC Cond = 0x7
)

// Codec is one immutable row of the instruction catalogue: everything
// needed to encode, decode, and describe one instruction family.
type Codec struct {
	Tag         Tag
	Format      Format
	Style       OperandStyle
	OpcodeStart uint16 // inclusive, 11-bit opcode range
	OpcodeEnd   uint16 // inclusive
	SetsFlags   bool
	Mnemonics   []string // all accepted aliases, uppercase
	Description string

	// Discriminator distinguishes codecs whose opcode ranges overlap.
	// hasDiscriminator is false for codecs that own their opcode range
	// outright. When true, Format determines which field is compared:
	// FormatR compares against the instruction's shamt field, FormatCB
	// against its condition (rt) field.
	hasDiscriminator bool
	discriminator    uint8
}

// HasDiscriminator reports whether this codec shares its opcode range
// with another and must be told apart by a fixed shamt/condition value.
func (c *Codec) HasDiscriminator() bool { return c.hasDiscriminator }

// Discriminator returns the fixed shamt (R) or condition (CB) value that
// identifies this codec among others sharing its opcode range.
func (c *Codec) Discriminator() uint8 { return c.discriminator }
