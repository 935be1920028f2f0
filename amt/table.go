// Package amt implements the Abstract Mapping Table primitive: a
// tabular priority-mux replacement with a selector, a table of
// selector-pattern-to-output rows, and a codec to and from the
// generic $amt cell's STATE_TABLE parameter. It also implements the
// AMT detector, extractor, and expander passes that turn a
// mux-tree-shaped FSM state register into this primitive and widen
// its selector.
package amt

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// Selection is one decoded AMT row: a selector pattern (a trit per
// selector bit), the output vector it drives when matched, and
// whether the row is flagged as an injected bug.
type Selection struct {
	Pattern ir.Vector // length k, each bit one of {Zero, One, Undef}
	Output  ir.Vector // length m
	Buggy   bool
}

// Table is the decoded view of an $amt cell: its selector and output
// vectors plus the ordered, priority-significant row list.
type Table struct {
	S          ir.Vector // selector, width k
	Y          ir.Vector // output, width m
	Selections []Selection
}

// K returns the table's selector width.
func (t *Table) K() int { return len(t.S) }

// M returns the table's per-row output width.
func (t *Table) M() int { return len(t.Y) }

// N returns the table's row count.
func (t *Table) N() int { return len(t.Selections) }

// EncodeStateTable flattens rows into the row-major, (k+1)-trit-per-row
// vector the $amt cell's STATE_TABLE parameter carries: each row is k
// pattern trits followed by one buggy-flag bit (BitOne if buggy, else
// BitZero; the flag is never itself a don't-care).
func EncodeStateTable(rows []Selection, k int) ir.Vector {
	out := make(ir.Vector, 0, len(rows)*(k+1))
	for _, r := range rows {
		if len(r.Pattern) != k {
			panic("amt: EncodeStateTable: row pattern width mismatch")
		}
		out = append(out, r.Pattern...)
		if r.Buggy {
			out = append(out, ir.One())
		} else {
			out = append(out, ir.Zero())
		}
	}
	return out
}

// DecodeStateTable is EncodeStateTable's inverse: it splits table into
// n rows of k pattern trits plus a buggy flag, leaving each row's
// Output unset (the caller fills it in from the cell's A port, since
// STATE_TABLE carries no output values; those live as live signal
// references in A).
func DecodeStateTable(table ir.Vector, k int) ([]Selection, error) {
	rowWidth := k + 1
	if rowWidth == 0 || len(table)%rowWidth != 0 {
		return nil, errors.Errorf("amt: DecodeStateTable: table length %d is not a multiple of k+1=%d", len(table), rowWidth)
	}
	n := len(table) / rowWidth
	rows := make([]Selection, n)
	for i := 0; i < n; i++ {
		base := i * rowWidth
		rows[i].Pattern = table.Slice(base, base+k).Clone()
		rows[i].Buggy = table[base+k].IsConst() && table[base+k].Value()
	}
	return rows, nil
}

// FromCell decodes c (which must be of type ir.CellAMT) into a Table,
// pairing each STATE_TABLE row with its corresponding slice of the
// cell's A port.
func FromCell(c *ir.Cell) (*Table, error) {
	if c.Type != ir.CellAMT {
		return nil, errors.Errorf("amt: FromCell: cell %q is type %q, not %q", c.Name, c.Type, ir.CellAMT)
	}
	s := c.Input("S")
	y := c.Output("Y")
	a := c.Input("A")
	k := len(s)
	m := len(y)
	if m == 0 {
		return nil, errors.Errorf("amt: FromCell: cell %q has zero-width Y", c.Name)
	}
	if len(a)%m != 0 {
		return nil, errors.Errorf("amt: FromCell: cell %q A width %d is not a multiple of Y width %d", c.Name, len(a), m)
	}
	n := len(a) / m
	rows, err := DecodeStateTable(c.Params["STATE_TABLE"], k)
	if err != nil {
		return nil, errors.Wrapf(err, "cell %q", c.Name)
	}
	if len(rows) != n {
		return nil, errors.Errorf("amt: FromCell: cell %q STATE_TABLE has %d rows, A implies %d", c.Name, len(rows), n)
	}
	for i := range rows {
		rows[i].Output = a.Slice(i*m, (i+1)*m)
	}
	return &Table{S: s, Y: y, Selections: rows}, nil
}

// ToCell writes t back onto c, overwriting its S, Y, A ports and
// STATE_TABLE parameter. c's Type is set to ir.CellAMT if not already.
func (t *Table) ToCell(c *ir.Cell) {
	c.Type = ir.CellAMT
	c.SetInput("S", t.S)
	c.SetOutput("Y", t.Y)
	a := make(ir.Vector, 0, t.N()*t.M())
	for _, r := range t.Selections {
		a = append(a, r.Output...)
	}
	c.SetInput("A", a)
	if c.Params == nil {
		c.Params = make(map[string]ir.Vector)
	}
	c.Params["STATE_TABLE"] = EncodeStateTable(t.Selections, t.K())
}

// Match reports whether pattern matches value, under the rule that a
// don't-care trit matches anything and a concrete trit requires an
// identical concrete bit.
func Match(pattern ir.Vector, value ir.Vector) bool {
	if len(pattern) != len(value) {
		return false
	}
	for i, p := range pattern {
		if p.Kind == ir.BitUndef {
			continue
		}
		if p != value[i] {
			return false
		}
	}
	return true
}

// Lookup returns the first row (lowest index) whose pattern matches
// value, and its index, or ok=false if no row matches.
func (t *Table) Lookup(value ir.Vector) (row Selection, index int, ok bool) {
	for i, r := range t.Selections {
		if Match(r.Pattern, value) {
			return r, i, true
		}
	}
	return Selection{}, -1, false
}
