package miter

import (
	"strconv"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// RowMatch names the per-row match signal ExpandAMTToPmux builds for
// one $amt cell's row, so the verifier can assert "some buggy row
// matched" as a disjunction over these bits without re-deriving them.
type RowMatch struct {
	Cell  string
	Row   int
	Match ir.Bit
	Buggy bool
}

// ExpandAMTToPmux maps every $amt cell in m to primitive logic: for
// each row, one XNOR ($xor then $not) per defined selector bit compares
// it against S and a $reduce_and combines them into the row's match
// signal, and the per-row match signals drive a priority mux over the
// per-row outputs, defaulting to zero if no row matches. The rewritten
// module no longer contains any $amt cell. The returned slice names
// every row's match bit and buggy flag, in cell then row order.
func ExpandAMTToPmux(m *ir.Module) ([]RowMatch, error) {
	var amtCells []*ir.Cell
	for _, c := range m.Cells() {
		if c.Type == ir.CellAMT {
			amtCells = append(amtCells, c)
		}
	}
	var rows []RowMatch
	for _, c := range amtCells {
		rm, err := expandOne(m, c)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rm...)
	}
	return rows, nil
}

func expandOne(m *ir.Module, c *ir.Cell) ([]RowMatch, error) {
	t, err := amt.FromCell(c)
	if err != nil {
		return nil, err
	}
	k := t.K()
	mw := t.M()
	n := t.N()

	matches := make(ir.Vector, n)
	rows := make([]RowMatch, n)
	for i, row := range t.Selections {
		matches[i] = rowMatchBit(m, c.Name, i, t.S, row.Pattern, k)
		rows[i] = RowMatch{Cell: c.Name, Row: i, Match: matches[i], Buggy: row.Buggy}
	}

	b := make(ir.Vector, 0, n*mw)
	for _, row := range t.Selections {
		b = append(b, row.Output...)
	}
	a := make(ir.Vector, mw)
	for i := range a {
		a[i] = ir.Zero()
	}

	pmux := m.AddCell(ir.CellPmux, c.Name+"$pmux")
	pmux.SetInput("A", a)
	pmux.SetInput("B", b)
	pmux.SetInput("S", matches)
	pmux.SetOutput("Y", t.Y)

	m.DeleteCell(c.ID)
	return rows, nil
}

// rowMatchBit builds the cell chain computing whether pattern matches
// s, ANDing an XNOR per concrete (non-don't-care) bit. A pattern with
// no concrete bits always matches (constant 1).
func rowMatchBit(m *ir.Module, prefix string, row int, s, pattern ir.Vector, k int) ir.Bit {
	var terms ir.Vector
	for j := 0; j < k; j++ {
		if pattern[j].Kind == ir.BitUndef {
			continue
		}
		name := prefix + "$row" + strconv.Itoa(row) + "$bit" + strconv.Itoa(j)
		xorW := m.MustAddWire(name+"$xor", 1, ir.PortNone)
		xorC := m.AddCell(ir.CellXor, name+"$xor$cell")
		xorC.SetInput("A", ir.Vector{s[j]})
		xorC.SetInput("B", ir.Vector{pattern[j]})
		xorC.SetOutput("Y", xorW.Bits())

		xnorW := m.MustAddWire(name+"$xnor", 1, ir.PortNone)
		notC := m.AddCell(ir.CellNot, name+"$xnor$cell")
		notC.SetInput("A", xorW.Bits())
		notC.SetOutput("Y", xnorW.Bits())

		terms = append(terms, xnorW.Bits()[0])
	}
	if len(terms) == 0 {
		return ir.One()
	}
	if len(terms) == 1 {
		return terms[0]
	}
	name := prefix + "$row" + strconv.Itoa(row) + "$match"
	mw := m.MustAddWire(name, 1, ir.PortNone)
	andC := m.AddCell(ir.CellReduceAnd, name+"$cell")
	andC.SetInput("A", terms)
	andC.SetOutput("Y", mw.Bits())
	return mw.Bits()[0]
}
