package insts

import "fmt"

// codecs is the immutable catalogue: one row per instruction family. Two
// families are allowed to share an opcode range — the FP arithmetic family
// (R format, told apart by shamt) and the conditional-branch family (CB
// format, told apart by the condition packed into the rt field) — every
// other range must be unique. verify() enforces this at package init.
var codecs = []*Codec{
	// R format — arithmetic and logical, register operands.
	{Tag: TagADD, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x458, OpcodeEnd: 0x458, Mnemonics: []string{"ADD"}, Description: "add"},
	{Tag: TagADDS, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x558, OpcodeEnd: 0x558, SetsFlags: true, Mnemonics: []string{"ADDS"}, Description: "add, set flags"},
	{Tag: TagSUB, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x658, OpcodeEnd: 0x658, Mnemonics: []string{"SUB"}, Description: "subtract"},
	{Tag: TagSUBS, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x758, OpcodeEnd: 0x758, SetsFlags: true, Mnemonics: []string{"SUBS"}, Description: "subtract, set flags"},
	{Tag: TagAND, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x450, OpcodeEnd: 0x450, Mnemonics: []string{"AND"}, Description: "bitwise and"},
	{Tag: TagANDS, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x750, OpcodeEnd: 0x750, SetsFlags: true, Mnemonics: []string{"ANDS"}, Description: "bitwise and, set N/Z"},
	{Tag: TagORR, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x550, OpcodeEnd: 0x550, Mnemonics: []string{"ORR"}, Description: "bitwise or"},
	{Tag: TagEOR, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x650, OpcodeEnd: 0x650, Mnemonics: []string{"EOR"}, Description: "bitwise xor"},
	{Tag: TagLSL, Format: FormatR, Style: StyleXXShamt, OpcodeStart: 0x69B, OpcodeEnd: 0x69B, Mnemonics: []string{"LSL"}, Description: "logical shift left"},
	{Tag: TagLSR, Format: FormatR, Style: StyleXXShamt, OpcodeStart: 0x69A, OpcodeEnd: 0x69A, Mnemonics: []string{"LSR"}, Description: "logical shift right"},
	{Tag: TagBR, Format: FormatR, Style: StyleX, OpcodeStart: 0x6B0, OpcodeEnd: 0x6B0, Mnemonics: []string{"BR"}, Description: "branch to register"},
	{Tag: TagMUL, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x4D8, OpcodeEnd: 0x4D8, Mnemonics: []string{"MUL"}, Description: "multiply, low 64 bits"},
	{Tag: TagSDIV, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x4D6, OpcodeEnd: 0x4D6, Mnemonics: []string{"SDIV"}, Description: "signed divide"},
	{Tag: TagUDIV, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x4D2, OpcodeEnd: 0x4D2, Mnemonics: []string{"UDIV"}, Description: "unsigned divide"},
	{Tag: TagSMULH, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x4DA, OpcodeEnd: 0x4DA, Mnemonics: []string{"SMULH"}, Description: "signed multiply, high 64 bits"},
	{Tag: TagUMULH, Format: FormatR, Style: StyleXXX, OpcodeStart: 0x4DE, OpcodeEnd: 0x4DE, Mnemonics: []string{"UMULH"}, Description: "unsigned multiply, high 64 bits"},
	{Tag: TagHALT, Format: FormatR, Style: StyleEmpty, OpcodeStart: 0x6A2, OpcodeEnd: 0x6A2, Mnemonics: []string{"HALT"}, Description: "stop the run loop"},
	{Tag: TagDUMP, Format: FormatR, Style: StyleEmpty, OpcodeStart: 0x6A3, OpcodeEnd: 0x6A3, Mnemonics: []string{"DUMP"}, Description: "log a dump marker"},
	{Tag: TagPRNT, Format: FormatR, Style: StylePrnt, OpcodeStart: 0x6A4, OpcodeEnd: 0x6A4, Mnemonics: []string{"PRNT"}, Description: "print one register"},
	{Tag: TagPRNL, Format: FormatR, Style: StyleEmpty, OpcodeStart: 0x6A5, OpcodeEnd: 0x6A5, Mnemonics: []string{"PRNL"}, Description: "print a newline"},
	{Tag: TagTIME, Format: FormatR, Style: StyleTime, OpcodeStart: 0x6A6, OpcodeEnd: 0x6A6, Mnemonics: []string{"TIME"}, Description: "read wall-clock milliseconds into a register"},

	// R format, ambiguous — scalar FP arithmetic, S vs D told apart by shamt.
	{Tag: TagFADDS, Format: FormatR, Style: StyleSSS, OpcodeStart: 0x058, OpcodeEnd: 0x058, Mnemonics: []string{"FADDS"}, Description: "single-precision add", hasDiscriminator: true, discriminator: 0},
	{Tag: TagFADDD, Format: FormatR, Style: StyleDDD, OpcodeStart: 0x058, OpcodeEnd: 0x058, Mnemonics: []string{"FADDD"}, Description: "double-precision add", hasDiscriminator: true, discriminator: 1},
	{Tag: TagFSUBS, Format: FormatR, Style: StyleSSS, OpcodeStart: 0x059, OpcodeEnd: 0x059, Mnemonics: []string{"FSUBS"}, Description: "single-precision subtract", hasDiscriminator: true, discriminator: 0},
	{Tag: TagFSUBD, Format: FormatR, Style: StyleDDD, OpcodeStart: 0x059, OpcodeEnd: 0x059, Mnemonics: []string{"FSUBD"}, Description: "double-precision subtract", hasDiscriminator: true, discriminator: 1},
	{Tag: TagFMULS, Format: FormatR, Style: StyleSSS, OpcodeStart: 0x05A, OpcodeEnd: 0x05A, Mnemonics: []string{"FMULS"}, Description: "single-precision multiply", hasDiscriminator: true, discriminator: 0},
	{Tag: TagFMULD, Format: FormatR, Style: StyleDDD, OpcodeStart: 0x05A, OpcodeEnd: 0x05A, Mnemonics: []string{"FMULD"}, Description: "double-precision multiply", hasDiscriminator: true, discriminator: 1},
	{Tag: TagFDIVS, Format: FormatR, Style: StyleSSS, OpcodeStart: 0x05B, OpcodeEnd: 0x05B, Mnemonics: []string{"FDIVS"}, Description: "single-precision divide", hasDiscriminator: true, discriminator: 0},
	{Tag: TagFDIVD, Format: FormatR, Style: StyleDDD, OpcodeStart: 0x05B, OpcodeEnd: 0x05B, Mnemonics: []string{"FDIVD"}, Description: "double-precision divide", hasDiscriminator: true, discriminator: 1},
	{Tag: TagFCMPS, Format: FormatR, Style: StyleSS, OpcodeStart: 0x05C, OpcodeEnd: 0x05C, SetsFlags: true, Mnemonics: []string{"FCMPS"}, Description: "single-precision compare", hasDiscriminator: true, discriminator: 0},
	{Tag: TagFCMPD, Format: FormatR, Style: StyleDD, OpcodeStart: 0x05C, OpcodeEnd: 0x05C, SetsFlags: true, Mnemonics: []string{"FCMPD"}, Description: "double-precision compare", hasDiscriminator: true, discriminator: 1},

	// I format — arithmetic/logical, 12-bit immediate.
	{Tag: TagADDI, Format: FormatI, Style: StyleI, OpcodeStart: 0x120, OpcodeEnd: 0x121, Mnemonics: []string{"ADDI"}, Description: "add immediate"},
	{Tag: TagADDIS, Format: FormatI, Style: StyleI, OpcodeStart: 0x162, OpcodeEnd: 0x163, SetsFlags: true, Mnemonics: []string{"ADDIS"}, Description: "add immediate, set flags"},
	{Tag: TagSUBI, Format: FormatI, Style: StyleI, OpcodeStart: 0x1A2, OpcodeEnd: 0x1A3, Mnemonics: []string{"SUBI"}, Description: "subtract immediate"},
	{Tag: TagSUBIS, Format: FormatI, Style: StyleI, OpcodeStart: 0x1E2, OpcodeEnd: 0x1E3, SetsFlags: true, Mnemonics: []string{"SUBIS"}, Description: "subtract immediate, set flags"},
	{Tag: TagANDI, Format: FormatI, Style: StyleI, OpcodeStart: 0x124, OpcodeEnd: 0x125, Mnemonics: []string{"ANDI"}, Description: "and immediate"},
	{Tag: TagANDIS, Format: FormatI, Style: StyleI, OpcodeStart: 0x1E4, OpcodeEnd: 0x1E5, SetsFlags: true, Mnemonics: []string{"ANDIS"}, Description: "and immediate, set N/Z"},
	{Tag: TagORRI, Format: FormatI, Style: StyleI, OpcodeStart: 0x164, OpcodeEnd: 0x165, Mnemonics: []string{"ORRI"}, Description: "or immediate"},
	{Tag: TagEORI, Format: FormatI, Style: StyleI, OpcodeStart: 0x1A4, OpcodeEnd: 0x1A5, Mnemonics: []string{"EORI"}, Description: "xor immediate"},

	// D format — loads and stores, 9-bit unsigned byte offset.
	{Tag: TagLDUR, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x7C2, OpcodeEnd: 0x7C2, Mnemonics: []string{"LDUR"}, Description: "load 64-bit"},
	{Tag: TagLDURB, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x1C2, OpcodeEnd: 0x1C2, Mnemonics: []string{"LDURB"}, Description: "load byte, zero-extend"},
	{Tag: TagLDURH, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x3C2, OpcodeEnd: 0x3C2, Mnemonics: []string{"LDURH"}, Description: "load halfword, zero-extend"},
	{Tag: TagLDURSW, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x5C4, OpcodeEnd: 0x5C4, Mnemonics: []string{"LDURSW"}, Description: "load word, sign-extend"},
	{Tag: TagSTUR, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x7C0, OpcodeEnd: 0x7C0, Mnemonics: []string{"STUR"}, Description: "store 64-bit"},
	{Tag: TagSTURB, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x1C0, OpcodeEnd: 0x1C0, Mnemonics: []string{"STURB"}, Description: "store byte"},
	{Tag: TagSTURH, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x3C0, OpcodeEnd: 0x3C0, Mnemonics: []string{"STURH"}, Description: "store halfword"},
	{Tag: TagSTURW, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x5C0, OpcodeEnd: 0x5C0, Mnemonics: []string{"STURW"}, Description: "store word"},
	{Tag: TagLDXR, Format: FormatD, Style: StyleDLoadX, OpcodeStart: 0x5C6, OpcodeEnd: 0x5C6, Mnemonics: []string{"LDXR"}, Description: "load exclusive (non-atomic)"},
	{Tag: TagSTXR, Format: FormatD, Style: StyleDStxr, OpcodeStart: 0x5C2, OpcodeEnd: 0x5C2, Mnemonics: []string{"STXR"}, Description: "store exclusive (non-atomic)"},
	{Tag: TagLDURS, Format: FormatD, Style: StyleDLoadS, OpcodeStart: 0x7CA, OpcodeEnd: 0x7CA, Mnemonics: []string{"LDURS"}, Description: "load single-precision"},
	{Tag: TagLDURD, Format: FormatD, Style: StyleDLoadD, OpcodeStart: 0x7CC, OpcodeEnd: 0x7CC, Mnemonics: []string{"LDURD"}, Description: "load double-precision"},
	{Tag: TagSTURS, Format: FormatD, Style: StyleDLoadS, OpcodeStart: 0x7C8, OpcodeEnd: 0x7C8, Mnemonics: []string{"STURS"}, Description: "store single-precision"},
	{Tag: TagSTURD, Format: FormatD, Style: StyleDLoadD, OpcodeStart: 0x7CE, OpcodeEnd: 0x7CE, Mnemonics: []string{"STURD"}, Description: "store double-precision"},

	// B format — unconditional branch, 26-bit signed word offset.
	{Tag: TagB, Format: FormatB, Style: StyleB, OpcodeStart: 0x0A0, OpcodeEnd: 0x0BF, Mnemonics: []string{"B"}, Description: "branch"},
	{Tag: TagBL, Format: FormatB, Style: StyleB, OpcodeStart: 0x4A0, OpcodeEnd: 0x4BF, Mnemonics: []string{"BL"}, Description: "branch and link"},

	// CB format, ambiguous conditional family — one shared range, told
	// apart by the condition nibble packed into the rt field.
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.EQ"}, Description: "branch if equal", hasDiscriminator: true, discriminator: uint8(CondEQ)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.NE"}, Description: "branch if not equal", hasDiscriminator: true, discriminator: uint8(CondNE)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.LT"}, Description: "branch if less than", hasDiscriminator: true, discriminator: uint8(CondLT)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.GE"}, Description: "branch if greater or equal", hasDiscriminator: true, discriminator: uint8(CondGE)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.LE"}, Description: "branch if less or equal", hasDiscriminator: true, discriminator: uint8(CondLE)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.GT"}, Description: "branch if greater than", hasDiscriminator: true, discriminator: uint8(CondGT)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.LO"}, Description: "branch if lower (unsigned)", hasDiscriminator: true, discriminator: uint8(CondLO)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.HS"}, Description: "branch if higher or same (unsigned)", hasDiscriminator: true, discriminator: uint8(CondHS)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.LS"}, Description: "branch if lower or same (unsigned)", hasDiscriminator: true, discriminator: uint8(CondLS)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.HI"}, Description: "branch if higher (unsigned)", hasDiscriminator: true, discriminator: uint8(CondHI)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.MI"}, Description: "branch if negative", hasDiscriminator: true, discriminator: uint8(CondMI)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.PL"}, Description: "branch if positive or zero", hasDiscriminator: true, discriminator: uint8(CondPL)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.VS"}, Description: "branch if overflow set", hasDiscriminator: true, discriminator: uint8(CondVS)},
	{Tag: TagBCond, Format: FormatCB, Style: StyleCB, OpcodeStart: 0x0C0, OpcodeEnd: 0x0C7, Mnemonics: []string{"B.VC"}, Description: "branch if overflow clear", hasDiscriminator: true, discriminator: uint8(CondVC)},

	// CB format — register-vs-zero conditional branch, each owns its range.
	{Tag: TagCBZ, Format: FormatCB, Style: StyleCBZ, OpcodeStart: 0x0C8, OpcodeEnd: 0x0CF, Mnemonics: []string{"CBZ"}, Description: "branch if register zero"},
	{Tag: TagCBNZ, Format: FormatCB, Style: StyleCBZ, OpcodeStart: 0x0D0, OpcodeEnd: 0x0D7, Mnemonics: []string{"CBNZ"}, Description: "branch if register nonzero"},

	// IW format — wide-immediate move.
	{Tag: TagMOVZ, Format: FormatIW, Style: StyleIW, OpcodeStart: 0x0D8, OpcodeEnd: 0x0DB, Mnemonics: []string{"MOVZ"}, Description: "move wide, zero"},
	{Tag: TagMOVK, Format: FormatIW, Style: StyleIW, OpcodeStart: 0x0DC, OpcodeEnd: 0x0DF, Mnemonics: []string{"MOVK"}, Description: "move wide, keep"},
}

// byTag indexes codecs by Tag for anything that already knows which
// instruction family it wants (the assembler after mnemonic lookup, the
// VM's exception formatter).
var byTag = make(map[Tag][]*Codec, tagCount)

// mnemonics maps an uppercased mnemonic string to its codec. The
// pseudo-instructions CMP, CMPI, MOV and LDA are not in it; the assembler
// lowers them before lookup.
var mnemonics = make(map[string]*Codec)

func init() {
	for _, c := range codecs {
		byTag[c.Tag] = append(byTag[c.Tag], c)
		for _, m := range c.Mnemonics {
			if prev, dup := mnemonics[m]; dup {
				panic(fmt.Sprintf("insts: mnemonic %q registered twice (tags %d and %d)", m, prev.Tag, c.Tag))
			}
			mnemonics[m] = c
		}
	}
	verify()
}

// verify enforces spec.md §4.2's startup invariant: any two codecs whose
// 11-bit opcode ranges overlap must carry distinct discriminators over the
// same format. It panics loudly on the first violation found, since a
// silently ambiguous table would make decoding non-deterministic.
func verify() {
	for i, a := range codecs {
		for _, b := range codecs[i+1:] {
			if !rangesOverlap(a, b) {
				continue
			}
			if a.Format != b.Format {
				panic(fmt.Sprintf("insts: codec ranges [%#x,%#x] (tag %d) and [%#x,%#x] (tag %d) overlap across formats %s/%s",
					a.OpcodeStart, a.OpcodeEnd, a.Tag, b.OpcodeStart, b.OpcodeEnd, b.Tag, a.Format, b.Format))
			}
			if !a.hasDiscriminator || !b.hasDiscriminator {
				panic(fmt.Sprintf("insts: codec ranges [%#x,%#x] (tag %d, %q) and [%#x,%#x] (tag %d, %q) overlap without both carrying a discriminator",
					a.OpcodeStart, a.OpcodeEnd, a.Tag, a.Mnemonics, b.OpcodeStart, b.OpcodeEnd, b.Tag, b.Mnemonics))
			}
			if a.discriminator == b.discriminator {
				panic(fmt.Sprintf("insts: codecs %q and %q share opcode range [%#x,%#x] and discriminator %d",
					a.Mnemonics, b.Mnemonics, a.OpcodeStart, a.OpcodeEnd, a.discriminator))
			}
		}
	}
}

func rangesOverlap(a, b *Codec) bool {
	return a.OpcodeStart <= b.OpcodeEnd && b.OpcodeStart <= a.OpcodeEnd
}

// Lookup resolves an uppercased mnemonic to its codec. Pseudo-instructions
// such as CMP, CMPI and MOV are not found here.
func Lookup(mnemonic string) (*Codec, bool) {
	c, ok := mnemonics[mnemonic]
	return c, ok
}

// ByTag returns the codec(s) registered under tag. Most tags have exactly
// one; TagBCond has one per condition.
func ByTag(tag Tag) []*Codec {
	return byTag[tag]
}

// Mnemonics returns every registered mnemonic, pseudo-instructions not
// included, for tooling that wants to enumerate the instruction catalogue (a
// checker CLI, an editor's completion list).
func Mnemonics() []string {
	out := make([]string, 0, len(mnemonics))
	for m := range mnemonics {
		out = append(out, m)
	}
	return out
}

// CodecCount returns the number of distinct codec rows in the table
// (counting each conditional-branch variant separately), for a startup
// invariant checker that wants to report table size.
func CodecCount() int {
	return len(codecs)
}
