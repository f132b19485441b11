package assembler

import (
	"strconv"
	"strings"

	"github.com/db47h/lex"
)

// Token identifies the kind of a lexical item. Values line up with the
// ten token kinds spec.md's lexer grammar names, plus lex.Error (-1)
// for malformed input the state machine could not resolve to any of
// them.
type Token int

const (
	TokEOF Token = iota
	TokNewline
	TokIdentifier
	TokDotIdentifier
	TokInteger
	TokRegister
	TokColon
	TokComma
	TokLBracket
	TokRBracket
)

func (t Token) String() string {
	switch t {
	case TokEOF:
		return "eof"
	case TokNewline:
		return "newline"
	case TokIdentifier:
		return "identifier"
	case TokDotIdentifier:
		return "dot_identifier"
	case TokInteger:
		return "integer"
	case TokRegister:
		return "register"
	case TokColon:
		return "':'"
	case TokComma:
		return "','"
	case TokLBracket:
		return "'['"
	case TokRBracket:
		return "']'"
	default:
		return "invalid"
	}
}

// Register names one of the three register banks at a given index,
// exactly what the lexer's x(n)/s(n)/d(n) tokens and the IP0/IP1/SP/FP/LR/
// XZR keyword aliases resolve to.
type Register struct {
	Bank  byte // 'X', 'S', or 'D'
	Index uint8
}

// registerKeywords are the fixed-index X-register aliases spec.md §4.1
// names: IP0/IP1/SP/FP/LR/XZR map to X16/X17/X28/X29/X30/X31 regardless
// of the normal x(n) digit grammar.
var registerKeywords = map[string]uint8{
	"IP0": 16,
	"IP1": 17,
	"SP":  28,
	"FP":  29,
	"LR":  30,
	"XZR": 31,
}

// tokenValue carries both the parsed value and the raw source text of a
// token through lex.State.Emit's untyped payload; Text gives diagnostics
// the token's width without a second position to track.
type tokenValue struct {
	text string
	v    interface{}
}

// Item is one lexed token: its kind, the value the state machine parsed
// out of it (Register, int64, or the identifier string; nil for
// punctuation/newline/eof), and the raw text for diagnostic underlining.
type Item struct {
	Tok   Token
	Pos   lex.Pos
	Text  string
	Value interface{}
}

// Scanner drapes assembler.Item over lex.Lexer's (Token, Pos, interface{})
// triples and exposes the source File for line/column rendering.
type Scanner struct {
	lx *lex.Lexer
}

// NewScanner builds a Scanner over src, a complete assembly source file.
// name is used only for diagnostic messages.
func NewScanner(name, src string) *Scanner {
	f := lex.NewFile(name, strings.NewReader(src))
	return &Scanner{lx: lex.NewLexer(f, stateInit)}
}

// File returns the underlying lex.File, for Position/GetLineBytes lookups.
func (s *Scanner) File() *lex.File { return s.lx.File() }

// Next returns the next token. Once TokEOF has been returned, further
// calls keep returning TokEOF.
func (s *Scanner) Next() Item {
	tok, pos, raw := s.lx.Lex()
	if tok == lex.Error {
		return Item{Tok: -1, Pos: pos, Text: raw.(string)}
	}
	tv := raw.(tokenValue)
	return Item{Tok: Token(tok), Pos: pos, Text: tv.text, Value: tv.v}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isBinDigit(r rune) bool { return r == '0' || r == '1' }

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool { return isLetter(r) || isDigit(r) || r == '_' }

// stateInit is the lexer's start state: skip whitespace, then dispatch on
// the first significant rune. Per spec.md §4.1, `\n` and `\r` each emit a
// newline token and `//` introduces a line comment.
func stateInit(s *lex.State) lex.StateFn {
	for {
		r := s.Next()
		s.StartToken(s.Pos())
		switch {
		case r == lex.EOF:
			s.Emit(s.TokenPos(), lex.Token(TokEOF), tokenValue{text: ""})
			return nil
		case r == '\n' || r == '\r':
			s.Emit(s.TokenPos(), lex.Token(TokNewline), tokenValue{text: string(r)})
			return nil
		case r == ' ' || r == '\t':
			continue
		case r == '/':
			if s.Peek() == '/' {
				s.Next()
				return stateLineComment
			}
			s.Errorf(s.TokenPos(), "unexpected character %q", r)
			return nil
		case r == ':':
			s.Emit(s.TokenPos(), lex.Token(TokColon), tokenValue{text: ":"})
			return nil
		case r == ',':
			s.Emit(s.TokenPos(), lex.Token(TokComma), tokenValue{text: ","})
			return nil
		case r == '[':
			s.Emit(s.TokenPos(), lex.Token(TokLBracket), tokenValue{text: "["})
			return nil
		case r == ']':
			s.Emit(s.TokenPos(), lex.Token(TokRBracket), tokenValue{text: "]"})
			return nil
		case r == '#' || r == '-' || isDigit(r):
			return stateInteger(r)
		case r == 'X' || r == 'S' || r == 'D':
			return stateRegisterPrefix(r)
		case isLetter(r) || r == '_':
			return stateIdentifierCont([]rune{r})
		default:
			s.Errorf(s.TokenPos(), "unexpected character %q", r)
			return nil
		}
	}
}

func stateLineComment(s *lex.State) lex.StateFn {
	for {
		r := s.Next()
		if r == '\n' || r == '\r' || r == lex.EOF {
			s.Backup()
			return stateInit
		}
	}
}

// stateRegisterPrefix has just consumed an 'X', 'S', or 'D'. It looks
// ahead for 1-2 decimal digits that parse as 0-31; anything else falls
// through to a plain identifier, letting IP0/IP1/SP/FP/LR/XZR (and any
// other identifier starting with X/S/D) resolve via stateIdentifierCont's
// keyword check.
func stateRegisterPrefix(bank rune) lex.StateFn {
	return func(s *lex.State) lex.StateFn {
		var digits []rune
		for len(digits) < 2 {
			r := s.Next()
			if !isDigit(r) {
				s.Backup()
				break
			}
			digits = append(digits, r)
		}
		if len(digits) == 0 {
			return stateIdentifierCont([]rune{bank})(s)
		}
		if r := s.Next(); isIdentRune(r) {
			buf := append([]rune{bank}, digits...)
			buf = append(buf, r)
			return stateIdentifierCont(buf)(s)
		}
		s.Backup()
		n, err := strconv.Atoi(string(digits))
		if err != nil || n > 31 {
			return stateIdentifierCont(append([]rune{bank}, digits...))(s)
		}
		text := string(bank) + string(digits)
		s.Emit(s.TokenPos(), lex.Token(TokRegister), tokenValue{text: text, v: Register{Bank: byte(bank), Index: uint8(n)}})
		return nil
	}
}

// stateIdentifierCont continues scanning an identifier whose first
// rune(s) are already in prefix (either a single fresh letter/underscore,
// or a register-prefix that turned out not to be a register). A `.`
// extends the identifier into a dot_identifier only when followed by a
// letter, per spec.md's mnemonic grammar for forms like B.EQ; a trailing
// `.` is left unconsumed.
func stateIdentifierCont(prefix []rune) lex.StateFn {
	return func(s *lex.State) lex.StateFn {
		buf := append([]rune(nil), prefix...)
		dotted := false
	loop:
		for {
			r := s.Next()
			switch {
			case isIdentRune(r):
				buf = append(buf, r)
			case r == '.' && isLetter(s.Peek()):
				dotted = true
				buf = append(buf, r)
			default:
				s.Backup()
				break loop
			}
		}
		text := string(buf)
		if !dotted {
			if idx, ok := registerKeywords[text]; ok {
				s.Emit(s.TokenPos(), lex.Token(TokRegister), tokenValue{text: text, v: Register{Bank: 'X', Index: idx}})
				return nil
			}
		}
		tok := TokIdentifier
		if dotted {
			tok = TokDotIdentifier
		}
		s.Emit(s.TokenPos(), lex.Token(tok), tokenValue{text: text, v: text})
		return nil
	}
}

// stateInteger has just consumed the first rune of an integer literal:
// '#', '-', or a digit. Grammar per spec.md §4.1: optional leading `#`
// (stripped), optional `-`, then 0b/0x (case-insensitive) or decimal.
func stateInteger(first rune) lex.StateFn {
	return func(s *lex.State) lex.StateFn {
		text := []rune{first}
		r := first
		if r == '#' {
			r = s.Next()
			text = append(text, r)
		}
		neg := false
		if r == '-' {
			neg = true
			r = s.Next()
			text = append(text, r)
		}
		if !isDigit(r) {
			s.Errorf(s.TokenPos(), "malformed integer literal")
			return nil
		}
		base := 10
		var digits []rune
		if r == '0' && (s.Peek() == 'x' || s.Peek() == 'X') {
			text = append(text, s.Next())
			base = 16
			for isHexDigit(s.Peek()) {
				d := s.Next()
				digits = append(digits, d)
				text = append(text, d)
			}
		} else if r == '0' && (s.Peek() == 'b' || s.Peek() == 'B') {
			text = append(text, s.Next())
			base = 2
			for isBinDigit(s.Peek()) {
				d := s.Next()
				digits = append(digits, d)
				text = append(text, d)
			}
		} else {
			digits = append(digits, r)
			for isDigit(s.Peek()) {
				d := s.Next()
				digits = append(digits, d)
				text = append(text, d)
			}
		}
		if len(digits) == 0 {
			s.Errorf(s.TokenPos(), "malformed integer literal")
			return nil
		}
		v, err := strconv.ParseInt(string(digits), base, 64)
		if err != nil {
			s.Errorf(s.TokenPos(), "malformed integer literal")
			return nil
		}
		if neg {
			v = -v
		}
		s.Emit(s.TokenPos(), lex.Token(TokInteger), tokenValue{text: string(text), v: v})
		return nil
	}
}
