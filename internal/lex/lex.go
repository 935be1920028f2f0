// Package lex provides a small state-function based lexer, in the
// style popularized by text/template's internal lexer: a StateFn
// consumes input and returns the next StateFn to run, with tokens
// surfaced to the caller through Emit/Lex rather than returned
// directly.
package lex

import (
	"io"
	"unicode/utf8"
)

// Type identifies the kind of a lexed Item. Consumers define their own
// Type constants starting after EOF.
type Type int

// EOF is the Type of the final Item a Lexer ever emits.
const EOF Type = -1

// Pos is a byte offset into the lexer's input.
type Pos int

// Item is one lexed token.
type Item struct {
	Type  Type
	Value interface{}
	Pos   Pos
}

func (i Item) String() string {
	if i.Type == EOF {
		return "end of input"
	}
	if s, ok := i.Value.(string); ok {
		return s
	}
	return "token"
}

// EOFRune is returned by Next once the input is exhausted. It is never
// a valid rune value, so state functions can compare against it
// directly.
const EOFRune rune = -1

// StateFn is one state of the lexer. It returns the next state to run,
// or nil to mean "run the init state again" (used by single-rune
// states that fall through without consuming more input).
type StateFn func(*Lexer) StateFn

// Interface is what callers of a lexer see: a stream of Items.
type Interface interface {
	Lex() Item
}

// Lexer scans one input string, driven by a chain of StateFns.
type Lexer struct {
	input string
	init  StateFn // the dispatch state Lex() returns to once a state emits nothing and returns nil
	state StateFn // the state to run on the next step; nil means "run init"
	pos   int      // current scan position
	start int      // start of the rune last returned by Next
	cur   rune
	items []Item
}

// New returns a lexer over the contents of r, starting in state init.
func New(r io.Reader, init StateFn) *Lexer {
	buf, _ := io.ReadAll(r)
	return &Lexer{input: string(buf), init: init}
}

// Next returns the next rune in the input, advancing the scan position,
// or the synthetic EOF rune (never a valid rune) at end of input.
func (l *Lexer) Next() rune {
	if l.pos >= len(l.input) {
		l.start = l.pos
		l.cur = EOFRune
		return EOFRune
	}
	l.start = l.pos
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += w
	l.cur = r
	return r
}

// Backup undoes the last Next call, allowing the caller to re-scan the
// same rune from a different state.
func (l *Lexer) Backup() {
	l.pos = l.start
}

// Current returns the rune most recently returned by Next.
func (l *Lexer) Current() rune { return l.cur }

// AcceptWhile consumes runes while pred holds.
func (l *Lexer) AcceptWhile(pred func(rune) bool) {
	for pred(l.Next()) {
	}
	l.Backup()
}

// Emit appends an Item of the given type and value, positioned at the
// start of the rune most recently returned by Next, relative to the
// whole input. For a multi-rune token whose state ends with Backup,
// that is the offset just past the token, not its first rune. Callers
// that emit multi-rune tokens (identifiers, numbers) pass the
// accumulated value explicitly; Emit does not re-derive it from the
// input.
func (l *Lexer) Emit(t Type, value interface{}) {
	l.items = append(l.items, Item{Type: t, Value: value, Pos: Pos(l.start)})
}

// Lex runs the lexer's state chain until a state emits at least one
// pending item, then returns the oldest pending item. A state
// returning nil means "go back to the dispatch state" (init); this
// lets a one-rune state like whitespace-skipping fall through to the
// next token without itself emitting anything.
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		if l.state == nil {
			l.state = l.init
		}
		l.state = l.state(l)
	}
	it := l.items[0]
	l.items = l.items[1:]
	return it
}
