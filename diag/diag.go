// Package diag renders assembler errors and VM exceptions as the
// caret-and-tildes diagnostics spec.md §4.7 describes, shared by every
// consumer of an assembled program so the two error paths format the
// same way.
package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/archsim/legv8/assembler"
	"github.com/archsim/legv8/emu"
	"github.com/archsim/legv8/insts"
	"github.com/db47h/lex"
)

const (
	colorBold  = "\x1b[1m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorReset = "\x1b[0m"
)

// Formatter renders diagnostics against a specific assembled source.
type Formatter struct {
	// NoColor suppresses ANSI SGR codes, honoring the NO_COLOR
	// environment variable per spec.md §6.
	NoColor bool
	// Limit caps how many assembler errors are rendered before a
	// "(N errors omitted)" summary line, per the -l/--limit-errors
	// flag. 0 means unlimited.
	Limit int
}

// NewFormatter builds a Formatter honoring NO_COLOR from the environment.
func NewFormatter(limit int) *Formatter {
	return &Formatter{NoColor: os.Getenv("NO_COLOR") != "", Limit: limit}
}

func (f *Formatter) color(code, s string) string {
	if f.NoColor {
		return s
	}
	return code + s + colorReset
}

// AssembleErrors renders every accumulated assembler error against file,
// in the order they were reported (already source-ordered by
// assembler.Assemble), applying the -l/--limit-errors cap.
func (f *Formatter) AssembleErrors(file *lex.File, errs []*assembler.AssembleError) string {
	shown := errs
	omitted := 0
	if f.Limit > 0 && len(errs) > f.Limit {
		shown = errs[:f.Limit]
		omitted = len(errs) - f.Limit
	}
	var b strings.Builder
	for i, e := range shown {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.renderAssembleError(file, e))
	}
	if omitted > 0 {
		if len(shown) > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "(%d errors omitted)", omitted)
	}
	return b.String()
}

func (f *Formatter) renderAssembleError(file *lex.File, e *assembler.AssembleError) string {
	pos := file.Position(e.Pos)
	header := fmt.Sprintf("%s: %s %s", pos.String(), f.color(colorBold+colorRed, "error:"), e.Message)
	line, err := file.GetLineBytes(e.Pos)
	if err != nil {
		return header
	}
	underline := caretLine(pos.Column, e.Length)
	return header + "\n" + string(line) + "\n" + f.color(colorGreen, underline)
}

// Exception renders a VM exception, including the faulting instruction's
// source position (looked up via prog.SourceSpan) and the nearest label
// whose instruction index is <= the faulting PC, when available.
func (f *Formatter) Exception(prog *assembler.Program, exc *emu.Exception) string {
	msg := f.color(colorBold+colorRed, "exception:") + " " + exc.Message()
	pos, ok := prog.SourceSpan(int(exc.FaultPC))
	if !ok {
		return msg
	}
	header := fmt.Sprintf("%s: %s", pos.String(), msg)
	if label, ok := prog.LabelAt(exc.FaultPC); ok {
		header += fmt.Sprintf(" (near %s)", label)
	}
	rawPos, _ := prog.RawSpan(int(exc.FaultPC))
	line, err := prog.File.GetLineBytes(rawPos)
	if err != nil {
		return header
	}
	underline := caretLine(pos.Column, 1)
	out := header + "\n" + string(line) + "\n" + f.color(colorGreen, underline)
	if disasm, ok := disassembleAt(prog, exc.FaultPC); ok {
		out += "\n" + disasm
	}
	return out
}

// disassembleAt decodes the faulting word back into mnemonic text, giving
// the exception report a second, encoding-level view of the instruction
// alongside the source line renderAssembleError-style output already
// shows.
func disassembleAt(prog *assembler.Program, faultPC int64) (string, bool) {
	if faultPC < 0 || faultPC >= prog.Len() {
		return "", false
	}
	dec := insts.NewDecoder()
	inst, err := dec.Decode(prog.Word(faultPC))
	if err != nil {
		return "", false
	}
	return insts.Disassemble(inst), true
}

// caretLine draws a caret at column (1-based) followed by length-1
// tildes, matching spec.md's "caret and tildes" underline.
func caretLine(column, length int) string {
	if length < 1 {
		length = 1
	}
	var b strings.Builder
	for i := 1; i < column; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte('^')
	for i := 1; i < length; i++ {
		b.WriteByte('~')
	}
	return b.String()
}
