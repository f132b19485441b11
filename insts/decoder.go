package insts

import "fmt"

// Disassemble renders a decoded Instruction back into mnemonic text, the
// inverse companion to Decoder.Decode. It is grounded on the codec table's
// own Style field rather than a second classification pass: each operand
// style already says exactly which fields to print and how.
func Disassemble(inst *Instruction) string {
	c := codecFor(inst)
	if c == nil {
		return fmt.Sprintf("UNKNOWN(word=%#08x)", inst.Word)
	}
	mnemonic := c.Mnemonics[0]
	switch c.Style {
	case StyleXXX, StyleSSS, StyleDDD:
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, regName(c.Style, inst.Rd), regName(c.Style, inst.Rn), regName(c.Style, inst.Rm))
	case StyleXXShamt:
		return fmt.Sprintf("%s X%d, X%d, #%d", mnemonic, inst.Rd, inst.Rn, inst.Shamt)
	case StyleX:
		return fmt.Sprintf("%s X%d", mnemonic, inst.Rn)
	case StyleSS, StyleDD:
		return fmt.Sprintf("%s %s, %s", mnemonic, regName(c.Style, inst.Rn), regName(c.Style, inst.Rm))
	case StyleEmpty:
		return mnemonic
	case StyleTime:
		return fmt.Sprintf("%s X%d", mnemonic, inst.Rd)
	case StylePrnt:
		kinds := [3]string{"X", "S", "D"}
		kind := "X"
		if int(inst.Rn) < len(kinds) {
			kind = kinds[inst.Rn]
		}
		return fmt.Sprintf("%s %s%d", mnemonic, kind, inst.Rd)
	case StyleI:
		return fmt.Sprintf("%s X%d, X%d, #%d", mnemonic, inst.Rd, inst.Rn, inst.Imm)
	case StyleDLoadX:
		return fmt.Sprintf("%s X%d, [X%d, #%d]", mnemonic, inst.Rt, inst.Rn, inst.Imm)
	case StyleDLoadS:
		return fmt.Sprintf("%s S%d, [X%d, #%d]", mnemonic, inst.Rt, inst.Rn, inst.Imm)
	case StyleDLoadD:
		return fmt.Sprintf("%s D%d, [X%d, #%d]", mnemonic, inst.Rt, inst.Rn, inst.Imm)
	case StyleDStxr:
		return fmt.Sprintf("%s X%d, X%d, [X%d]", mnemonic, inst.Imm, inst.Rt, inst.Rn)
	case StyleB:
		return fmt.Sprintf("%s #%d", mnemonic, inst.Imm)
	case StyleCB:
		return fmt.Sprintf("B.%s #%d", condName(inst.Cond), inst.Imm)
	case StyleCBZ:
		return fmt.Sprintf("%s X%d, #%d", mnemonic, inst.Rt, inst.Imm)
	case StyleIW:
		if inst.MovLSL == 0 {
			return fmt.Sprintf("%s X%d, #%d", mnemonic, inst.Rd, inst.Imm)
		}
		return fmt.Sprintf("%s X%d, #%d, LSL #%d", mnemonic, inst.Rd, inst.Imm, uint16(inst.MovLSL)*16)
	default:
		return fmt.Sprintf("%s(word=%#08x)", mnemonic, inst.Word)
	}
}

func codecFor(inst *Instruction) *Codec {
	candidates := byTag[inst.Tag]
	if len(candidates) == 0 {
		return nil
	}
	if inst.Tag != TagBCond {
		return candidates[0]
	}
	for _, c := range candidates {
		if c.discriminator == uint8(inst.Cond) {
			return c
		}
	}
	return candidates[0]
}

func regName(style OperandStyle, n uint8) string {
	switch style {
	case StyleSSS, StyleSS:
		return fmt.Sprintf("S%d", n)
	case StyleDDD, StyleDD:
		return fmt.Sprintf("D%d", n)
	default:
		return fmt.Sprintf("X%d", n)
	}
}

func condName(c Cond) string {
	names := map[Cond]string{
		CondEQ: "EQ", CondNE: "NE", CondLT: "LT", CondGE: "GE",
		CondLE: "LE", CondGT: "GT", CondLO: "LO", CondHS: "HS",
		CondLS: "LS", CondHI: "HI", CondMI: "MI", CondPL: "PL",
		CondVS: "VS", CondVC: "VC",
	}
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("?%d", c)
}
