// Package assembler turns LEGv8 assembly source into a packed, big-endian
// instruction stream. It is line-oriented: each line is empty, a label
// definition, one instruction, or a label definition followed by one
// instruction, and a syntax error on a line recovers
// by skipping to the next newline rather than aborting the whole file.
package assembler

import (
	"fmt"
	"sort"

	"github.com/archsim/legv8/emu"
	"github.com/archsim/legv8/insts"
	"github.com/db47h/lex"
)

// ErrorKind classifies an assembly-time diagnostic. The set matches
// spec.md §7's enumerated error kinds exactly.
type ErrorKind uint8

const (
	ErrExpectedToken ErrorKind = iota
	ErrUnknownMnemonic
	ErrShiftAmountOverflow
	ErrImmediateOverflow
	ErrMovImmediateOverflow
	ErrMovShiftOverflow
	ErrMovNoLSL
	ErrLoadStoreOffsetOverflow
	ErrUnimplementedFarJump
	ErrDotLabel
	ErrUnexpectedToken
	ErrDuplicateLabelName
	ErrUndefinedLabel
	ErrEmptyLabel
)

// AssembleError is one accumulated diagnostic, carrying the source byte
// range (Pos plus a best-effort Length for underlining) it applies to.
type AssembleError struct {
	Kind    ErrorKind
	Pos     lex.Pos
	Length  int
	Message string
}

func (e *AssembleError) Error() string { return e.Message }

// LabelEntry names one resolved label and the instruction index it
// points at, for tooling that wants to symbolicate a PC.
type LabelEntry struct {
	Name  string
	Index int64
}

// Program is the assembled result: a packed instruction stream plus
// enough bookkeeping to symbolicate addresses and render diagnostics
// against the original source. File must stay alive for Program's
// lifetime, per spec.md §5's note that the assembler borrows label
// strings from the immutable source buffer.
type Program struct {
	File             *lex.File
	NeedsRelocations bool

	words  []uint32
	spans  []lex.Pos
	labels map[string]int64
	order  []string
}

// Len reports the number of assembled instructions.
func (p *Program) Len() int64 { return int64(len(p.words)) }

// Word returns the raw 32-bit word at instruction index i.
func (p *Program) Word(i int64) uint32 { return p.words[i] }

// Bytes packs the program into the big-endian instruction stream
// spec.md §6 describes as the binary instruction layout.
func (p *Program) Bytes() []byte {
	buf := make([]byte, len(p.words)*4)
	for i, w := range p.words {
		buf[i*4+0] = byte(w >> 24)
		buf[i*4+1] = byte(w >> 16)
		buf[i*4+2] = byte(w >> 8)
		buf[i*4+3] = byte(w)
	}
	return buf
}

// Labels returns every resolved label in definition order.
func (p *Program) Labels() []LabelEntry {
	out := make([]LabelEntry, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, LabelEntry{Name: name, Index: p.labels[name]})
	}
	return out
}

// SourceSpan returns the source position of the instruction at index,
// for a debugger or diagnostic formatter that needs to point at the
// line that produced a given PC.
func (p *Program) SourceSpan(index int) (lex.Position, bool) {
	pos, ok := p.RawSpan(index)
	if !ok {
		return lex.Position{}, false
	}
	return p.File.Position(pos), true
}

// RawSpan returns the raw lex.Pos of the instruction at index, for
// callers that need to re-derive line text via File.GetLineBytes rather
// than just the line/column pair SourceSpan gives.
func (p *Program) RawSpan(index int) (lex.Pos, bool) {
	if index < 0 || index >= len(p.spans) {
		return 0, false
	}
	return p.spans[index], true
}

// LabelAt returns the name of the nearest label whose instruction index
// is <= pc, used by the VM exception formatter's "label context".
func (p *Program) LabelAt(pc int64) (string, bool) {
	best := ""
	bestIdx := int64(-1)
	for _, name := range p.order {
		idx := p.labels[name]
		if idx <= pc && idx > bestIdx {
			bestIdx, best = idx, name
		}
	}
	return best, bestIdx >= 0
}

type refKind uint8

const (
	refBranch refKind = iota
	refCondBranch
	refLDA
)

type pendingRef struct {
	kind     refKind
	instrIdx int64
	ldaSlots []int64
	ldaReg   uint8
	pos      lex.Pos
}

type assembler struct {
	sc        *Scanner
	file      *lex.File
	cur       Item
	lookahead *Item

	words  []uint32
	spans  []lex.Pos
	labels map[string]int64
	order  []string

	pending          map[string][]pendingRef
	errs             []*AssembleError
	needsRelocations bool
}

// Assemble compiles source into a Program. name is used only for
// diagnostic messages. If any error was recorded the returned Program
// still holds whatever was successfully assembled, but per spec.md §7
// assembly as a whole is considered to have failed.
func Assemble(name, source string) (*Program, []*AssembleError) {
	sc := NewScanner(name, source)
	a := &assembler{
		sc:      sc,
		file:    sc.File(),
		labels:  make(map[string]int64),
		pending: make(map[string][]pendingRef),
	}
	a.advance()
	for a.cur.Tok != TokEOF {
		a.assembleLine()
	}
	a.finalize()
	sort.SliceStable(a.errs, func(i, j int) bool { return a.errs[i].Pos < a.errs[j].Pos })
	prog := &Program{
		File:             a.file,
		NeedsRelocations: a.needsRelocations,
		words:            a.words,
		spans:            a.spans,
		labels:           a.labels,
		order:            a.order,
	}
	return prog, a.errs
}

func (a *assembler) advance() {
	if a.lookahead != nil {
		a.cur = *a.lookahead
		a.lookahead = nil
		return
	}
	a.cur = a.sc.Next()
}

func (a *assembler) peek() Item {
	if a.lookahead == nil {
		it := a.sc.Next()
		a.lookahead = &it
	}
	return *a.lookahead
}

func (a *assembler) errf(kind ErrorKind, pos lex.Pos, format string, args ...interface{}) {
	a.errs = append(a.errs, &AssembleError{Kind: kind, Pos: pos, Length: 1, Message: fmt.Sprintf(format, args...)})
}

func (a *assembler) errfLen(kind ErrorKind, pos lex.Pos, length int, format string, args ...interface{}) {
	if length < 1 {
		length = 1
	}
	a.errs = append(a.errs, &AssembleError{Kind: kind, Pos: pos, Length: length, Message: fmt.Sprintf(format, args...)})
}

// recover consumes tokens through the next newline (or EOF), per
// spec.md §4.3's per-line error recovery policy.
func (a *assembler) recover() {
	for a.cur.Tok != TokNewline && a.cur.Tok != TokEOF {
		a.advance()
	}
	if a.cur.Tok == TokNewline {
		a.advance()
	}
}

func (a *assembler) expectNewline() {
	switch a.cur.Tok {
	case TokNewline:
		a.advance()
	case TokEOF:
		// end of file also terminates the last line
	default:
		a.errf(ErrExpectedToken, a.cur.Pos, "expected newline, got %s", a.cur.Tok)
		a.recover()
	}
}

func (a *assembler) assembleLine() {
	switch {
	case a.cur.Tok == TokNewline:
		a.advance()
	case a.cur.Tok == TokColon:
		a.errf(ErrEmptyLabel, a.cur.Pos, "empty label")
		a.recover()
	case a.cur.Tok == TokIdentifier || a.cur.Tok == TokDotIdentifier:
		name := a.cur
		if a.peek().Tok == TokColon {
			a.advance() // name
			a.advance() // ':'
			if name.Tok == TokDotIdentifier {
				a.errfLen(ErrDotLabel, name.Pos, len(name.Text), "label cannot contain '.'")
			} else {
				a.defineLabel(name.Text, name.Pos)
			}
			if a.cur.Tok == TokIdentifier || a.cur.Tok == TokDotIdentifier {
				// an instruction may follow the label on the same line
				a.assembleInstruction(a.cur)
				return
			}
			a.expectNewline()
			return
		}
		a.assembleInstruction(name)
	default:
		a.errf(ErrUnexpectedToken, a.cur.Pos, "unexpected token %s", a.cur.Tok)
		a.recover()
	}
}

func (a *assembler) defineLabel(name string, pos lex.Pos) {
	if _, dup := a.labels[name]; dup {
		a.errfLen(ErrDuplicateLabelName, pos, len(name), "duplicate label %q", name)
		return
	}
	idx := int64(len(a.words))
	a.labels[name] = idx
	a.order = append(a.order, name)
	refs := a.pending[name]
	delete(a.pending, name)
	for _, ref := range refs {
		switch ref.kind {
		case refBranch:
			a.patchBranch(ref.instrIdx, idx, false, ref.pos)
		case refCondBranch:
			a.patchBranch(ref.instrIdx, idx, true, ref.pos)
		case refLDA:
			a.patchLDASlots(ref.ldaSlots, ref.ldaReg, ldaAddress(idx))
		}
	}
}

func ldaAddress(targetIdx int64) uint64 {
	return uint64(emu.TextStart) + uint64(targetIdx)*4
}

func fitsSigned(v int64, bits uint) bool {
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return v >= lo && v <= hi
}

func (a *assembler) patchBranch(instrIdx, targetIdx int64, cb bool, pos lex.Pos) {
	offset := targetIdx - instrIdx
	bits := uint(26)
	if cb {
		bits = 19
	}
	if !fitsSigned(offset, bits) {
		a.needsRelocations = true
		a.errf(ErrUnimplementedFarJump, pos, "branch target out of range for a native immediate; relocations are not implemented")
		return
	}
	word := a.words[instrIdx]
	if cb {
		rt, _, opcode := insts.UnpackCB(word)
		a.words[instrIdx] = insts.PackCB(rt, int32(offset), opcode)
	} else {
		_, opcode := insts.UnpackB(word)
		a.words[instrIdx] = insts.PackB(int32(offset), opcode)
	}
}

func (a *assembler) patchLDASlots(slots []int64, reg uint8, addr uint64) {
	halves := [4]uint16{uint16(addr), uint16(addr >> 16), uint16(addr >> 32), uint16(addr >> 48)}
	for i, idx := range slots {
		if i >= len(halves) {
			break
		}
		tag := insts.TagMOVK
		if i == 0 {
			tag = insts.TagMOVZ
		}
		word, err := insts.Encode(tag, &insts.Instruction{Rd: reg, Imm: int64(halves[i]), MovLSL: uint8(i)})
		if err == nil {
			a.words[idx] = word
		}
	}
}

func (a *assembler) resolveOrDeferBranch(name string, cb bool, instrIdx int64, pos lex.Pos) {
	if idx, ok := a.labels[name]; ok {
		a.patchBranch(instrIdx, idx, cb, pos)
		return
	}
	kind := refBranch
	if cb {
		kind = refCondBranch
	}
	a.pending[name] = append(a.pending[name], pendingRef{kind: kind, instrIdx: instrIdx, pos: pos})
}

// ldaHalves computes the minimal MOVZ+MOVK sequence for an already-known
// absolute address: MOVZ loads the lowest nonzero half (zeroing the rest
// of the register for free), and MOVK fills in any higher nonzero half
// up to the highest one, per spec.md's "trailing zero-half MOVKs are
// omitted" rule.
func ldaHalves(addr uint64) []struct {
	tag   insts.Tag
	imm   uint16
	shamt uint8
} {
	halves := [4]uint16{uint16(addr), uint16(addr >> 16), uint16(addr >> 32), uint16(addr >> 48)}
	maxIdx := 0
	for i := 3; i >= 0; i-- {
		if halves[i] != 0 {
			maxIdx = i
			break
		}
	}
	base := 0
	for i := 0; i <= maxIdx; i++ {
		if halves[i] != 0 {
			base = i
			break
		}
	}
	out := []struct {
		tag   insts.Tag
		imm   uint16
		shamt uint8
	}{{tag: insts.TagMOVZ, imm: halves[base], shamt: uint8(base)}}
	for i := base + 1; i <= maxIdx; i++ {
		if halves[i] != 0 {
			out = append(out, struct {
				tag   insts.Tag
				imm   uint16
				shamt uint8
			}{tag: insts.TagMOVK, imm: halves[i], shamt: uint8(i)})
		}
	}
	return out
}

func (a *assembler) resolveOrDeferLDA(name string, rd uint8, pos lex.Pos) {
	if idx, ok := a.labels[name]; ok {
		for _, h := range ldaHalves(ldaAddress(idx)) {
			a.emitSimple(h.tag, pos, &insts.Instruction{Rd: rd, Imm: int64(h.imm), MovLSL: h.shamt})
		}
		return
	}
	// Forward reference: the eventual address isn't known yet, so the
	// instruction count can't be minimized. Emit the worst-case 4-slot
	// MOVZ+MOVK*3 sequence now and patch every slot's immediate once the
	// label resolves.
	var slots []int64
	slots = append(slots, a.emitSimple(insts.TagMOVZ, pos, &insts.Instruction{Rd: rd}))
	for i := uint8(1); i < 4; i++ {
		slots = append(slots, a.emitSimple(insts.TagMOVK, pos, &insts.Instruction{Rd: rd, MovLSL: i}))
	}
	a.pending[name] = append(a.pending[name], pendingRef{kind: refLDA, ldaSlots: slots, ldaReg: rd, pos: pos})
}

func (a *assembler) finalize() {
	var leftover []pendingRef
	for _, refs := range a.pending {
		leftover = append(leftover, refs...)
	}
	sort.Slice(leftover, func(i, j int) bool { return leftover[i].pos < leftover[j].pos })
	for _, ref := range leftover {
		a.errf(ErrUndefinedLabel, ref.pos, "undefined label")
	}
}

func (a *assembler) emit(word uint32, pos lex.Pos) int64 {
	idx := int64(len(a.words))
	a.words = append(a.words, word)
	a.spans = append(a.spans, pos)
	return idx
}

func (a *assembler) emitSimple(tag insts.Tag, pos lex.Pos, inst *insts.Instruction) int64 {
	word, err := insts.Encode(tag, inst)
	if err != nil {
		a.errf(ErrUnexpectedToken, pos, "internal encode error: %v", err)
		return -1
	}
	return a.emit(word, pos)
}

func (a *assembler) assembleInstruction(name Item) {
	a.advance()
	switch name.Text {
	case "MOV":
		a.parseMOV(name.Pos)
	case "LDA":
		a.parseLDA(name.Pos)
	case "CMP":
		a.parseCMP(name.Pos)
	case "CMPI":
		a.parseCMPI(name.Pos)
	default:
		codec, ok := insts.Lookup(name.Text)
		if !ok {
			a.errfLen(ErrUnknownMnemonic, name.Pos, len(name.Text), "unknown instruction mnemonic")
			a.recover()
			return
		}
		a.parseReal(codec, name.Pos)
	}
}

func (a *assembler) parseReal(codec *insts.Codec, pos lex.Pos) {
	switch codec.Style {
	case insts.StyleXXX:
		a.parseXXX(codec.Tag, pos, 'X')
	case insts.StyleSSS:
		a.parseXXX(codec.Tag, pos, 'S')
	case insts.StyleDDD:
		a.parseXXX(codec.Tag, pos, 'D')
	case insts.StyleXXShamt:
		a.parseXXShamt(codec.Tag, pos)
	case insts.StyleX:
		a.parseX(codec.Tag, pos)
	case insts.StyleSS:
		a.parseXX2(codec.Tag, pos, 'S')
	case insts.StyleDD:
		a.parseXX2(codec.Tag, pos, 'D')
	case insts.StyleEmpty:
		a.emitSimple(codec.Tag, pos, &insts.Instruction{})
		a.expectNewline()
	case insts.StyleTime:
		a.parseTime(codec.Tag, pos)
	case insts.StylePrnt:
		a.parsePrnt(codec.Tag, pos)
	case insts.StyleI:
		a.parseI(codec.Tag, pos)
	case insts.StyleDLoadX:
		a.parseDLoad(codec.Tag, pos, 'X')
	case insts.StyleDLoadS:
		a.parseDLoad(codec.Tag, pos, 'S')
	case insts.StyleDLoadD:
		a.parseDLoad(codec.Tag, pos, 'D')
	case insts.StyleDStxr:
		a.parseStxr(codec.Tag, pos)
	case insts.StyleB:
		a.parseBranchLabel(codec.Tag, pos)
	case insts.StyleCB:
		a.parseCondLabel(codec, pos)
	case insts.StyleCBZ:
		a.parseCBZLabel(codec.Tag, pos)
	case insts.StyleIW:
		a.parseIW(codec.Tag, pos)
	default:
		a.errf(ErrUnexpectedToken, pos, "unsupported operand style")
		a.recover()
	}
}

func (a *assembler) expectReg(bank byte) (Register, bool) {
	if a.cur.Tok != TokRegister {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected %c register, got %s", bank, a.cur.Tok)
		return Register{}, false
	}
	r := a.cur.Value.(Register)
	if r.Bank != bank {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected %c register, got %c register", bank, r.Bank)
		return Register{}, false
	}
	a.advance()
	return r, true
}

func (a *assembler) expectComma() bool {
	if a.cur.Tok != TokComma {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected ',', got %s", a.cur.Tok)
		return false
	}
	a.advance()
	return true
}

func (a *assembler) expectLBracket() bool {
	if a.cur.Tok != TokLBracket {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected '[', got %s", a.cur.Tok)
		return false
	}
	a.advance()
	return true
}

func (a *assembler) expectRBracket() bool {
	if a.cur.Tok != TokRBracket {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected ']', got %s", a.cur.Tok)
		return false
	}
	a.advance()
	return true
}

func (a *assembler) expectInt() (int64, bool) {
	if a.cur.Tok != TokInteger {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected integer, got %s", a.cur.Tok)
		return 0, false
	}
	v := a.cur.Value.(int64)
	a.advance()
	return v, true
}

func (a *assembler) expectLabelName() (Item, bool) {
	if a.cur.Tok == TokDotIdentifier {
		a.errfLen(ErrDotLabel, a.cur.Pos, len(a.cur.Text), "label cannot contain '.'")
		return Item{}, false
	}
	if a.cur.Tok != TokIdentifier {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected label name, got %s", a.cur.Tok)
		return Item{}, false
	}
	it := a.cur
	a.advance()
	return it, true
}

func (a *assembler) parseXXX(tag insts.Tag, pos lex.Pos, bank byte) {
	rd, ok1 := a.expectReg(bank)
	ok2 := a.expectComma()
	rn, ok3 := a.expectReg(bank)
	ok4 := a.expectComma()
	rm, ok5 := a.expectReg(bank)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rd: rd.Index, Rn: rn.Index, Rm: rm.Index})
	a.expectNewline()
}

func (a *assembler) parseXXShamt(tag insts.Tag, pos lex.Pos) {
	rd, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	rn, ok3 := a.expectReg('X')
	ok4 := a.expectComma()
	shPos := a.cur.Pos
	sh, ok5 := a.expectInt()
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		a.recover()
		return
	}
	if sh < 0 || sh > 63 {
		a.errf(ErrShiftAmountOverflow, shPos, "shift amount out of range")
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rd: rd.Index, Rn: rn.Index, Shamt: uint8(sh)})
	a.expectNewline()
}

func (a *assembler) parseX(tag insts.Tag, pos lex.Pos) {
	rn, ok := a.expectReg('X')
	if !ok {
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rn: rn.Index})
	a.expectNewline()
}

func (a *assembler) parseXX2(tag insts.Tag, pos lex.Pos, bank byte) {
	rn, ok1 := a.expectReg(bank)
	ok2 := a.expectComma()
	rm, ok3 := a.expectReg(bank)
	if !(ok1 && ok2 && ok3) {
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rn: rn.Index, Rm: rm.Index})
	a.expectNewline()
}

func (a *assembler) parseTime(tag insts.Tag, pos lex.Pos) {
	rd := uint8(0)
	if a.cur.Tok == TokRegister {
		r, ok := a.expectReg('X')
		if !ok {
			a.recover()
			return
		}
		rd = r.Index
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rd: rd})
	a.expectNewline()
}

func (a *assembler) parsePrnt(tag insts.Tag, pos lex.Pos) {
	if a.cur.Tok != TokRegister {
		a.errf(ErrExpectedToken, a.cur.Pos, "expected register, got %s", a.cur.Tok)
		a.recover()
		return
	}
	r := a.cur.Value.(Register)
	a.advance()
	var kind uint8
	switch r.Bank {
	case 'S':
		kind = 1
	case 'D':
		kind = 2
	default:
		kind = 0
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rd: r.Index, Rn: kind})
	a.expectNewline()
}

func (a *assembler) parseI(tag insts.Tag, pos lex.Pos) {
	rd, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	rn, ok3 := a.expectReg('X')
	ok4 := a.expectComma()
	immPos := a.cur.Pos
	imm, ok5 := a.expectInt()
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		a.recover()
		return
	}
	if imm < -2048 || imm > 2047 {
		a.errf(ErrImmediateOverflow, immPos, "immediate out of range for a signed 12-bit field")
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rd: rd.Index, Rn: rn.Index, Imm: imm})
	a.expectNewline()
}

func (a *assembler) parseDLoad(tag insts.Tag, pos lex.Pos, bank byte) {
	rt, ok1 := a.expectReg(bank)
	ok2 := a.expectComma()
	ok3 := a.expectLBracket()
	rn, ok4 := a.expectReg('X')
	ok5 := a.expectComma()
	offPos := a.cur.Pos
	off, ok6 := a.expectInt()
	ok7 := a.expectRBracket()
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		a.recover()
		return
	}
	if off < 0 || off > 511 {
		a.errf(ErrLoadStoreOffsetOverflow, offPos, "load/store offset out of range for an unsigned 9-bit field")
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rt: rt.Index, Rn: rn.Index, Imm: off})
	a.expectNewline()
}

func (a *assembler) parseStxr(tag insts.Tag, pos lex.Pos) {
	rs, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	rt, ok3 := a.expectReg('X')
	ok4 := a.expectComma()
	ok5 := a.expectLBracket()
	rn, ok6 := a.expectReg('X')
	ok7 := a.expectRBracket()
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		a.recover()
		return
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rt: rt.Index, Rn: rn.Index, Imm: int64(rs.Index)})
	a.expectNewline()
}

func (a *assembler) parseBranchLabel(tag insts.Tag, pos lex.Pos) {
	lbl, ok := a.expectLabelName()
	if !ok {
		a.recover()
		return
	}
	idx := a.emitSimple(tag, pos, &insts.Instruction{})
	if idx < 0 {
		a.recover()
		return
	}
	a.resolveOrDeferBranch(lbl.Text, false, idx, lbl.Pos)
	a.expectNewline()
}

func (a *assembler) parseCondLabel(codec *insts.Codec, pos lex.Pos) {
	lbl, ok := a.expectLabelName()
	if !ok {
		a.recover()
		return
	}
	idx := a.emitSimple(codec.Tag, pos, &insts.Instruction{Cond: insts.Cond(codec.Discriminator())})
	if idx < 0 {
		a.recover()
		return
	}
	a.resolveOrDeferBranch(lbl.Text, true, idx, lbl.Pos)
	a.expectNewline()
}

func (a *assembler) parseCBZLabel(tag insts.Tag, pos lex.Pos) {
	rt, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	if !(ok1 && ok2) {
		a.recover()
		return
	}
	lbl, ok3 := a.expectLabelName()
	if !ok3 {
		a.recover()
		return
	}
	idx := a.emitSimple(tag, pos, &insts.Instruction{Rt: rt.Index})
	if idx < 0 {
		a.recover()
		return
	}
	a.resolveOrDeferBranch(lbl.Text, true, idx, lbl.Pos)
	a.expectNewline()
}

func (a *assembler) parseIW(tag insts.Tag, pos lex.Pos) {
	rd, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	immPos := a.cur.Pos
	imm, ok3 := a.expectInt()
	if !(ok1 && ok2 && ok3) {
		a.recover()
		return
	}
	if imm < 0 || imm > 0xFFFF {
		a.errf(ErrMovImmediateOverflow, immPos, "MOVZ/MOVK immediate out of range for an unsigned 16-bit field")
		a.recover()
		return
	}
	shamt := uint8(0)
	if a.cur.Tok == TokComma {
		a.advance()
		if a.cur.Tok != TokIdentifier || a.cur.Text != "LSL" {
			a.errf(ErrMovNoLSL, a.cur.Pos, "expected LSL, got %s", a.cur.Tok)
			a.recover()
			return
		}
		a.advance()
		shPos := a.cur.Pos
		sh, ok := a.expectInt()
		if !ok {
			a.recover()
			return
		}
		switch sh {
		case 0:
			shamt = 0
		case 16:
			shamt = 1
		case 32:
			shamt = 2
		case 48:
			shamt = 3
		default:
			a.errf(ErrMovShiftOverflow, shPos, "shift must be 0, 16, 32, or 48")
			a.recover()
			return
		}
	}
	a.emitSimple(tag, pos, &insts.Instruction{Rd: rd.Index, Imm: imm, MovLSL: shamt})
	a.expectNewline()
}

func (a *assembler) parseMOV(pos lex.Pos) {
	rd, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	rn, ok3 := a.expectReg('X')
	if !(ok1 && ok2 && ok3) {
		a.recover()
		return
	}
	a.emitSimple(insts.TagADD, pos, &insts.Instruction{Rd: rd.Index, Rn: rn.Index, Rm: 31})
	a.expectNewline()
}

func (a *assembler) parseCMP(pos lex.Pos) {
	rn, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	rm, ok3 := a.expectReg('X')
	if !(ok1 && ok2 && ok3) {
		a.recover()
		return
	}
	a.emitSimple(insts.TagSUBS, pos, &insts.Instruction{Rd: 31, Rn: rn.Index, Rm: rm.Index})
	a.expectNewline()
}

func (a *assembler) parseCMPI(pos lex.Pos) {
	rn, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	immPos := a.cur.Pos
	imm, ok3 := a.expectInt()
	if !(ok1 && ok2 && ok3) {
		a.recover()
		return
	}
	if imm < -2048 || imm > 2047 {
		a.errf(ErrImmediateOverflow, immPos, "immediate out of range for a signed 12-bit field")
		a.recover()
		return
	}
	a.emitSimple(insts.TagSUBIS, pos, &insts.Instruction{Rd: 31, Rn: rn.Index, Imm: imm})
	a.expectNewline()
}

func (a *assembler) parseLDA(pos lex.Pos) {
	rd, ok1 := a.expectReg('X')
	ok2 := a.expectComma()
	if !(ok1 && ok2) {
		a.recover()
		return
	}
	lbl, ok3 := a.expectLabelName()
	if !ok3 {
		a.recover()
		return
	}
	a.resolveOrDeferLDA(lbl.Text, rd.Index, lbl.Pos)
	a.expectNewline()
}
