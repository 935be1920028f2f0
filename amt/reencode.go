package amt

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// Encoding names a state-register bit-encoding scheme ReencodeFSM can
// re-derive a table into.
type Encoding int

const (
	// EncodingOneHot assigns state i a selector pattern with bit i set
	// and every other bit clear (width == row count).
	EncodingOneHot Encoding = iota
	// EncodingGray assigns state i the binary-reflected Gray code of i
	// (width unchanged from the table's original selector width).
	EncodingGray
)

// ReencodeFSM is the supplemented feature grounded on the original
// implementation's inject_fsm pass: given an AMT whose selector is a
// fully concrete, fully enumerable state code (no don't-care bits, no
// two rows sharing a pattern), it derives an equivalent table under a
// different state encoding, for cross-encoding differential testing.
// It is additive and never runs as part of default injection.
func ReencodeFSM(t *Table, enc Encoding) (*Table, error) {
	for i, r := range t.Selections {
		for _, b := range r.Pattern {
			if b.Kind == ir.BitUndef {
				return nil, errors.Errorf("amt: reencode_fsm: row %d has a don't-care selector bit; table is not a fully enumerable state code", i)
			}
		}
	}
	seen := make(map[string]bool)
	for i, r := range t.Selections {
		key := r.Pattern.String()
		if seen[key] {
			return nil, errors.Errorf("amt: reencode_fsm: row %d duplicates an earlier selector pattern", i)
		}
		seen[key] = true
	}

	n := len(t.Selections)
	var newWidth int
	switch enc {
	case EncodingOneHot:
		newWidth = n
	case EncodingGray:
		newWidth = t.K()
	default:
		return nil, errors.Errorf("amt: reencode_fsm: unknown encoding %d", enc)
	}

	newRows := make([]Selection, n)
	for i, r := range t.Selections {
		var pat ir.Vector
		switch enc {
		case EncodingOneHot:
			pat = onehotPattern(i, newWidth)
		case EncodingGray:
			pat = grayPattern(i, newWidth)
		}
		newRows[i] = Selection{Pattern: pat, Output: r.Output, Buggy: r.Buggy}
	}

	s := make(ir.Vector, newWidth)
	for i := range s {
		s[i] = ir.WireBit(-1, i) // placeholder: caller rewires S onto real selector-driving wires
	}
	return &Table{S: s, Y: t.Y, Selections: newRows}, nil
}

func onehotPattern(state, width int) ir.Vector {
	out := make(ir.Vector, width)
	for i := range out {
		out[i] = ir.Zero()
	}
	out[state] = ir.One()
	return out
}

func grayPattern(state, width int) ir.Vector {
	g := state ^ (state >> 1)
	out := make(ir.Vector, width)
	for i := range out {
		if g&(1<<uint(i)) != 0 {
			out[i] = ir.One()
		} else {
			out[i] = ir.Zero()
		}
	}
	return out
}
