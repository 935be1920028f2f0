// Package sigexpr parses the textual signal-expression syntax used to
// name nets when wiring up fixtures, test cases, and the command
// surface in cmd/inject: plain wire names, bit indices, bit ranges, and
// binary constant literals, comma-separated for concatenation.
//
// Grammar (informally):
//
//	expr       = item (',' item)*
//	item       = ident | ident '[' int ']' | ident '[' int ':' int ']' | literal
//	literal    = int "'" 'b' bitchars
//
// A plain ident names a whole wire. A ranged ident name[hi:lo] follows
// Yosys convention (msb:lsb, inclusive, hi >= lo). Concatenation order
// follows the textual order given: the bits of the first item come
// first in the resulting Vector.
package sigexpr

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/internal/lex"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// Resolver looks up a named wire, as a Module does.
type Resolver interface {
	WireByName(name string) (*ir.Wire, bool)
}

// token types
const (
	tIdent lex.Type = iota
	tInt
	tBracketOpen
	tBracketClose
	tColon
	tComma
	tRadix
	tBits
)

func lexer(input string) lex.Interface {
	return lex.New(strings.NewReader(input), lexInit)
}

func lexInit(l *lex.Lexer) lex.StateFn {
	r := l.Next()
	switch {
	case r == lex.EOFRune:
		return lexEOF
	case unicode.IsSpace(r):
		l.AcceptWhile(unicode.IsSpace)
		return nil
	case unicode.IsLetter(r) || r == '_' || r == '$':
		return lexIdent
	case '0' <= r && r <= '9':
		return lexNumber
	case r == '[':
		l.Emit(tBracketOpen, "[")
	case r == ']':
		l.Emit(tBracketClose, "]")
	case r == ':':
		l.Emit(tColon, ":")
	case r == ',':
		l.Emit(tComma, ",")
	case r == '\'':
		return lexRadix
	default:
		l.Emit(lex.EOF, "unexpected character")
		return lexEOF
	}
	return nil
}

func lexEOF(l *lex.Lexer) lex.StateFn {
	l.Emit(lex.EOF, "end of input")
	return lexEOF
}

func lexIdent(l *lex.Lexer) lex.StateFn {
	var b strings.Builder
	b.WriteRune(l.Current())
	r := l.Next()
	for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '.' {
		b.WriteRune(r)
		r = l.Next()
	}
	l.Backup()
	l.Emit(tIdent, b.String())
	return nil
}

func lexNumber(l *lex.Lexer) lex.StateFn {
	var b strings.Builder
	b.WriteRune(l.Current())
	r := l.Next()
	for '0' <= r && r <= '9' {
		b.WriteRune(r)
		r = l.Next()
	}
	l.Backup()
	n, _ := strconv.Atoi(b.String())
	l.Emit(tInt, n)
	return nil
}

// lexRadix handles the ' b <bits> tail of a width'radix<bits> literal.
// It is entered right after the ' has been consumed by lexInit.
func lexRadix(l *lex.Lexer) lex.StateFn {
	radix := l.Next()
	if radix != 'b' {
		l.Emit(lex.EOF, "only binary ('b) literals are supported")
		return lexEOF
	}
	l.Emit(tRadix, "b")
	var b strings.Builder
	r := l.Next()
	for r == '0' || r == '1' || r == 'x' || r == 'z' {
		b.WriteRune(r)
		r = l.Next()
	}
	l.Backup()
	l.Emit(tBits, b.String())
	return nil
}

// Parse parses expr against res, which resolves bare identifiers to
// wires, and returns the resulting concatenated Vector.
func Parse(expr string, res Resolver) (ir.Vector, error) {
	l := lexer(expr)
	var out ir.Vector
	for {
		item, err := parseItem(l, res)
		if err != nil {
			return nil, err
		}
		out = append(out, item...)
		tok := l.Lex()
		switch tok.Type {
		case lex.EOF:
			return out, nil
		case tComma:
			continue
		default:
			return nil, errors.Errorf("sigexpr: %q: unexpected token after item", expr)
		}
	}
}

func parseItem(l lex.Interface, res Resolver) (ir.Vector, error) {
	tok := l.Lex()
	switch tok.Type {
	case tIdent:
		return parseIdentItem(tok, l, res)
	case tInt:
		return parseLiteralItem(tok, l)
	default:
		return nil, errors.Errorf("sigexpr: unexpected token %v", tok)
	}
}

func parseIdentItem(tok lex.Item, l lex.Interface, res Resolver) (ir.Vector, error) {
	name := tok.Value.(string)
	w, ok := res.WireByName(name)
	if !ok {
		return nil, errors.Errorf("sigexpr: unknown wire %q", name)
	}
	pl, ok := l.(*lex.Lexer)
	if !ok {
		return w.Bits(), nil
	}
	save := *pl
	next := pl.Lex()
	if next.Type != tBracketOpen {
		*pl = save
		return w.Bits(), nil
	}
	hiTok := pl.Lex()
	if hiTok.Type != tInt {
		return nil, errors.Errorf("sigexpr: %q: expected integer after '['", name)
	}
	hi := hiTok.Value.(int)
	lo := hi
	next = pl.Lex()
	if next.Type == tColon {
		loTok := pl.Lex()
		if loTok.Type != tInt {
			return nil, errors.Errorf("sigexpr: %q: expected integer after ':'", name)
		}
		lo = loTok.Value.(int)
		next = pl.Lex()
	}
	if next.Type != tBracketClose {
		return nil, errors.Errorf("sigexpr: %q: expected ']'", name)
	}
	if lo > hi || hi >= w.Width || lo < 0 {
		return nil, errors.Errorf("sigexpr: %q[%d:%d]: out of range for width %d", name, hi, lo, w.Width)
	}
	bits := w.Bits()
	out := make(ir.Vector, hi-lo+1)
	copy(out, bits[lo:hi+1])
	return out, nil
}

func parseLiteralItem(tok lex.Item, l lex.Interface) (ir.Vector, error) {
	width := tok.Value.(int)
	pl, ok := l.(*lex.Lexer)
	if !ok {
		return nil, errors.New("sigexpr: numeric literal requires a lexer")
	}
	save := *pl
	next := pl.Lex()
	if next.Type != tRadix {
		// bare small integer with no radix tag: treat as a single
		// constant bit (0 or 1), matching a lone selector bit literal.
		*pl = save
		if width == 0 {
			return ir.Vector{ir.Zero()}, nil
		}
		if width == 1 {
			return ir.Vector{ir.One()}, nil
		}
		return nil, errors.Errorf("sigexpr: bare integer literal %d must be 0 or 1; use N'bBITS for wider constants", width)
	}
	bitsTok := pl.Lex()
	if bitsTok.Type != tBits {
		return nil, errors.New("sigexpr: expected bit digits after radix")
	}
	digits := bitsTok.Value.(string)
	if len(digits) != width {
		return nil, errors.Errorf("sigexpr: literal %d'b%s has %d digits, want %d", width, digits, len(digits), width)
	}
	out := make(ir.Vector, width)
	for i := 0; i < width; i++ {
		d := digits[width-1-i] // MSB first textually, bit 0 is LSB
		switch d {
		case '0':
			out[i] = ir.Zero()
		case '1':
			out[i] = ir.One()
		default:
			out[i] = ir.Undef()
		}
	}
	return out, nil
}
