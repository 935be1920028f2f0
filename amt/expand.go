package amt

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// MaxDriverWidth bounds the combined input width of a selector-bit
// driver cell the expander is willing to enumerate a truth table for.
const MaxDriverWidth = 8

// MaxExpandedRows bounds the total row count after expansion; the
// expander aborts (leaving the table as the previous round left it)
// rather than exceed it.
const MaxExpandedRows = 100

// ErrExpansionOverflow is wrapped into the *ir.Error Expand returns
// when a candidate driver's product rows would exceed MaxExpandedRows.
var ErrExpansionOverflow = errors.New("amt: expansion would exceed maximum row count")

// supportedDriver reports whether cell type t is one of the small set
// the expander knows how to truth-table-enumerate: equality, bitwise
// AND/OR, and NOT.
func supportedDriver(t string) bool {
	switch t {
	case ir.CellEq, ir.CellNe, ir.CellAnd, ir.CellOr, ir.CellNot:
		return true
	default:
		return false
	}
}

func driverInputWidth(c *ir.Cell) int {
	switch c.Type {
	case ir.CellNot:
		return len(c.Input("A"))
	default:
		return len(c.Input("A")) + len(c.Input("B"))
	}
}

// evalDriver evaluates c's boolean function given a bit assignment
// over its concatenated inputs (A then B), returning the output
// vector it would produce.
func evalDriver(c *ir.Cell, assign []bool) ir.Vector {
	aw := len(c.Input("A"))
	a := assign[:aw]
	switch c.Type {
	case ir.CellNot:
		out := make(ir.Vector, aw)
		for i, v := range a {
			out[i] = boolBit(!v)
		}
		return out
	case ir.CellAnd, ir.CellOr:
		b := assign[aw:]
		out := make(ir.Vector, aw)
		for i := range out {
			if c.Type == ir.CellAnd {
				out[i] = boolBit(a[i] && b[i])
			} else {
				out[i] = boolBit(a[i] || b[i])
			}
		}
		return out
	case ir.CellEq, ir.CellNe:
		b := assign[aw:]
		eq := true
		for i := range a {
			if a[i] != b[i] {
				eq = false
				break
			}
		}
		if c.Type == ir.CellNe {
			eq = !eq
		}
		return ir.Vector{boolBit(eq)}
	default:
		panic("amt: evalDriver: unsupported cell type " + c.Type)
	}
}

func boolBit(v bool) ir.Bit {
	if v {
		return ir.One()
	}
	return ir.Zero()
}

// truthRow is one row of a driver's minimized truth table: an input
// pattern of trits over the driver's own input width, and the output
// pattern it produces on the selector-bit positions of interest.
type truthRow struct {
	input  ir.Vector
	output ir.Vector
}

// enumerateDriver builds the full truth table of c restricted to the
// outBits indices of its output vector, then minimizes it by
// repeated pairwise adjacent merging.
func enumerateDriver(c *ir.Cell, outBits []int) []truthRow {
	w := driverInputWidth(c)
	rows := make([]truthRow, 0, 1<<uint(w))
	assign := make([]bool, w)
	var rec func(i int)
	rec = func(i int) {
		if i == w {
			full := evalDriver(c, assign)
			out := make(ir.Vector, len(outBits))
			for j, idx := range outBits {
				out[j] = full[idx]
			}
			in := make(ir.Vector, w)
			for j, v := range assign {
				in[j] = boolBit(v)
			}
			rows = append(rows, truthRow{input: in, output: out})
			return
		}
		assign[i] = false
		rec(i + 1)
		assign[i] = true
		rec(i + 1)
	}
	rec(0)
	return minimizeRows(rows)
}

// minimizeRows repeatedly merges pairs of rows that share an output
// pattern and differ in exactly one input position (one concrete 0,
// the other concrete 1, every other position identical including
// existing don't-cares) into a single row with that position set to
// don't-care, until a full pass finds no further merge.
func minimizeRows(rows []truthRow) []truthRow {
	for {
		merged := false
		out := make([]truthRow, 0, len(rows))
		used := make([]bool, len(rows))
		for i := range rows {
			if used[i] {
				continue
			}
			foundPair := -1
			diffPos := -1
			for j := i + 1; j < len(rows); j++ {
				if used[j] || !rows[i].output.Equal(rows[j].output) {
					continue
				}
				pos, ok := onlyDiffPosition(rows[i].input, rows[j].input)
				if ok {
					foundPair, diffPos = j, pos
					break
				}
			}
			if foundPair >= 0 {
				used[i], used[foundPair] = true, true
				merged = true
				nr := rows[i].input.Clone()
				nr[diffPos] = ir.Undef()
				out = append(out, truthRow{input: nr, output: rows[i].output})
			} else {
				used[i] = true
				out = append(out, rows[i])
			}
		}
		rows = out
		if !merged {
			return dedupeRows(rows)
		}
	}
}

func onlyDiffPosition(a, b ir.Vector) (int, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	pos := -1
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if pos >= 0 {
			return 0, false
		}
		if (a[i].Kind == ir.BitZero && b[i].Kind == ir.BitOne) || (a[i].Kind == ir.BitOne && b[i].Kind == ir.BitZero) {
			pos = i
			continue
		}
		return 0, false
	}
	if pos < 0 {
		return 0, false
	}
	return pos, true
}

func dedupeRows(rows []truthRow) []truthRow {
	var out []truthRow
	for _, r := range rows {
		dup := false
		for _, o := range out {
			if o.input.Equal(r.input) && o.output.Equal(r.output) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// intersectTrit unifies two trits, returning ok=false when they
// concretely conflict (one 0, the other 1).
func intersectTrit(a, b ir.Bit) (ir.Bit, bool) {
	if a.Kind == ir.BitUndef {
		return b, true
	}
	if b.Kind == ir.BitUndef {
		return a, true
	}
	if a == b {
		return a, true
	}
	return ir.Bit{}, false
}

// candidate groups the selector positions fed by one driver cell.
type candidate struct {
	cell    *ir.Cell
	selIdx  []int // positions in the table's current S this driver feeds
	outBits []int // corresponding bit index into cell's Y for each selIdx
}

// alreadyExpanded reports whether every bit c's inputs would contribute
// as new selector bits is already present in s, meaning a prior Expand
// round already pulled this driver's inputs in and re-selecting it
// would only append duplicate bits forever.
func alreadyExpanded(c *ir.Cell, s ir.Vector) bool {
	have := make(map[ir.Bit]bool, len(s))
	for _, b := range s {
		have[b] = true
	}
	for _, b := range driverNewBits(c) {
		if !have[b] {
			return false
		}
	}
	return true
}

// findCandidates locates every selector-bit driver in t eligible for
// expansion: supported cell type, combined input width <= MaxDriverWidth,
// and not already fully pulled into t.S by an earlier round.
func findCandidates(m *ir.Module, t *Table) []candidate {
	sm := m.SigMap()
	dm := buildDriverMap(m, sm)
	byCell := make(map[*ir.Cell]*candidate)
	var order []*ir.Cell
	for j, b := range t.S {
		if b.Kind != ir.BitWire {
			continue
		}
		c, ok := dm[sm.Rep(b)]
		if !ok || c == nil || !supportedDriver(c.Type) {
			continue
		}
		if driverInputWidth(c) > MaxDriverWidth {
			continue
		}
		if alreadyExpanded(c, t.S) {
			continue
		}
		y := c.Output("Y")
		outIdx := -1
		for i, yb := range y {
			if yb == b {
				outIdx = i
				break
			}
		}
		if outIdx < 0 {
			continue
		}
		cd, exists := byCell[c]
		if !exists {
			cd = &candidate{cell: c}
			byCell[c] = cd
			order = append(order, c)
		}
		cd.selIdx = append(cd.selIdx, j)
		cd.outBits = append(cd.outBits, outIdx)
	}
	out := make([]candidate, 0, len(order))
	for _, c := range order {
		out = append(out, *byCell[c])
	}
	return out
}

// Expand widens t's selector by pulling in the candidate drivers of
// its current selector bits, one driver at a time. It mutates t in
// place and returns the number of selector bits
// added, or an error if a candidate's product would overflow
// MaxExpandedRows. The overflowing round leaves t untouched; drivers
// pulled in by earlier rounds of the same call stay in t.
func Expand(m *ir.Module, t *Table) (int, error) {
	added := 0
	for {
		cands := findCandidates(m, t)
		if len(cands) == 0 {
			return added, nil
		}
		cd := cands[0]
		truth := enumerateDriver(cd.cell, cd.outBits)

		origS := t.S.Clone()
		origK := len(origS)
		newBits := driverNewBits(cd.cell)

		var products []Selection
		for _, row := range t.Selections {
			for _, tr := range truth {
				np, ok := unifyRow(row.Pattern, cd.selIdx, tr.output)
				if !ok {
					continue
				}
				np = append(np, tr.input...)
				products = append(products, Selection{Pattern: np, Output: row.Output, Buggy: row.Buggy})
			}
		}
		if len(products) > MaxExpandedRows {
			return added, ir.NewError(ir.KindCapacity, "expand", errors.Wrapf(ErrExpansionOverflow, "driver %q: %d rows", cd.cell.Name, len(products)))
		}

		t.S = append(origS, newBits...)
		t.Selections = filterProjectsOntoOriginal(products, origK, t.Selections, origS)
		added += len(newBits)
		if len(t.Selections) == 0 {
			return added, nil
		}
	}
}

// unifyRow intersects row's trits at selIdx positions against output
// (the driver's truth-table output pattern for this row), returning
// ok=false if any position concretely conflicts.
func unifyRow(row ir.Vector, selIdx []int, output ir.Vector) (ir.Vector, bool) {
	out := row.Clone()
	for i, j := range selIdx {
		merged, ok := intersectTrit(out[j], output[i])
		if !ok {
			return nil, false
		}
		out[j] = merged
	}
	return out, true
}

func driverNewBits(c *ir.Cell) ir.Vector {
	switch c.Type {
	case ir.CellNot:
		return c.Input("A")
	default:
		return ir.Concat(c.Input("A"), c.Input("B"))
	}
}

// filterProjectsOntoOriginal keeps only expanded rows whose projection
// onto the original K selector positions matches one of the table's
// pre-expansion rows exactly. Every matching expanded row is kept, not
// just the first, preserving completeness of the expanded table's
// coverage of the original semantics.
func filterProjectsOntoOriginal(products []Selection, origK int, originalRows []Selection, _ ir.Vector) []Selection {
	var out []Selection
	for _, p := range products {
		proj := p.Pattern[:origK]
		for _, orig := range originalRows {
			if proj.Equal(orig.Pattern) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
