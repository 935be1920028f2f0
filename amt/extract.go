package amt

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// MinRows and MaxRows bound the mux-tree row count the extractor will
// accept: fewer rows isn't worth abstracting, more is too large.
const (
	MinRows = 4
	MaxRows = 48
)

// ErrTooFewRows and ErrTooManyRows are the sentinel causes wrapped
// into the *ir.Error ExtractAll returns when skipping a candidate wire
// that sits outside [MinRows, MaxRows].
var (
	ErrTooFewRows  = errors.New("amt: mux tree has fewer than minimum rows")
	ErrTooManyRows = errors.New("amt: mux tree exceeds maximum rows")
)

// leaf is one (selector-pattern, output) pair discovered by the
// mux-cone traversal, before the per-row patterns are unified onto a
// single canonical selector vector.
type leaf struct {
	bits   []ir.Bit // the selector bit consumed to reach this leaf, in path order
	vals   []bool   // the branch taken at each selector bit (true = B side)
	output ir.Vector
}

// Extract abstracts the mux tree rooted at w (which must already be
// Wire.Marked by Detect) into a new $amt cell installed in m, and
// disconnects w's old mux-tree drivers. It returns the new cell, or an
// error if the tree's row count falls outside [MinRows, MaxRows].
func Extract(m *ir.Module, w *ir.Wire) (*ir.Cell, error) {
	if !w.Marked {
		return nil, errors.Errorf("amt: extract: wire %q is not marked", w.Name)
	}
	sm := m.SigMap()
	dm := buildDriverMap(m, sm)
	root, ok := dm[sm.Rep(w.Bits()[0])]
	if !ok || root == nil || !isMuxType(root.Type) {
		return nil, errors.Errorf("amt: extract: wire %q has no mux driver", w.Name)
	}

	leaves, cone := walkCone(root, dm, sm)
	selBits := unifySelector(leaves)
	k := len(selBits)
	if len(leaves) < MinRows {
		return nil, ir.NewError(ir.KindCapacity, "extract", errors.Wrapf(ErrTooFewRows, "wire %q: %d rows", w.Name, len(leaves)))
	}
	if len(leaves) > MaxRows {
		return nil, ir.NewError(ir.KindCapacity, "extract", errors.Wrapf(ErrTooManyRows, "wire %q: %d rows", w.Name, len(leaves)))
	}

	rows := make([]Selection, len(leaves))
	for i, lf := range leaves {
		rows[i] = Selection{Pattern: patternFor(lf, selBits), Output: lf.output}
	}

	s := make(ir.Vector, k)
	for i, b := range selBits {
		s[i] = b
	}
	tbl := &Table{S: s, Y: w.Bits(), Selections: rows}

	m.Disconnect(w.Bits())
	for _, c := range cone {
		m.DeleteCell(c.ID)
	}
	cell := m.AddCell(ir.CellAMT, w.Name+"$amt")
	tbl.ToCell(cell)
	return cell, nil
}

// walkCone performs an explicit-stack DFS over the mux tree rooted at
// root, collecting one leaf per terminal (non-mux-driven) branch, plus
// every mux/pmux cell visited along the way (root included), which the
// caller deletes once the replacement $amt cell is installed. The
// explicit stack avoids recursion over the mux cone.
func walkCone(root *ir.Cell, dm driverMap, sm *ir.SigMap) ([]leaf, []*ir.Cell) {
	type frame struct {
		cell *ir.Cell
		bits []ir.Bit
		vals []bool
	}
	var leaves []leaf
	var cone []*ir.Cell
	stack := []frame{{cell: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cone = append(cone, f.cell)
		branches := muxBranches(f.cell)
		for _, br := range branches {
			bits := append(append([]ir.Bit{}, f.bits...), br.selBits...)
			vals := append(append([]bool{}, f.vals...), br.selVals...)
			if nested := soleDriverIfMux(br.sig, dm, sm); nested != nil {
				stack = append(stack, frame{cell: nested, bits: bits, vals: vals})
				continue
			}
			leaves = append(leaves, leaf{bits: bits, vals: vals, output: br.sig})
		}
	}
	return leaves, cone
}

type branch struct {
	sig     ir.Vector
	selBits []ir.Bit
	selVals []bool
}

// muxBranches decomposes one mux/pmux cell into its per-branch output
// signal plus the selector bit(s)/value(s) that reach it.
func muxBranches(c *ir.Cell) []branch {
	switch c.Type {
	case ir.CellMux:
		s := c.Input("S")
		if len(s) != 1 {
			return nil
		}
		return []branch{
			{sig: c.Input("A"), selBits: []ir.Bit{s[0]}, selVals: []bool{false}},
			{sig: c.Input("B"), selBits: []ir.Bit{s[0]}, selVals: []bool{true}},
		}
	case ir.CellPmux:
		s := c.Input("S")
		a := c.Input("A")
		b := c.Input("B")
		w := len(a)
		n := len(s)
		if w == 0 || len(b) != n*w {
			return nil
		}
		out := make([]branch, 0, n+1)
		for row := 0; row < n; row++ {
			out = append(out, branch{
				sig:     b.Slice(row*w, (row+1)*w),
				selBits: []ir.Bit{s[row]},
				selVals: []bool{true},
			})
		}
		out = append(out, branch{sig: a}) // default: none of S asserted
		return out
	default:
		return nil
	}
}

// soleDriverIfMux returns sig's driving cell if sig is exactly one
// wire's full bit range and that wire is driven by a single mux/pmux
// cell, else nil (a terminal leaf). Bits are canonicalized through sm
// before the dm lookup, so an identity alias inside the cone still
// resolves to its real driver.
func soleDriverIfMux(sig ir.Vector, dm driverMap, sm *ir.SigMap) *ir.Cell {
	if len(sig) == 0 {
		return nil
	}
	var driver *ir.Cell
	for _, b := range sig {
		if b.Kind != ir.BitWire {
			return nil
		}
		c, ok := dm[sm.Rep(b)]
		if !ok || c == nil {
			return nil
		}
		if driver == nil {
			driver = c
		} else if driver != c {
			return nil
		}
	}
	if !isMuxType(driver.Type) {
		return nil
	}
	return driver
}

// unifySelector collects the distinct selector bits referenced across
// every leaf's path, in first-seen order, forming the AMT's canonical
// S vector.
func unifySelector(leaves []leaf) []ir.Bit {
	var order []ir.Bit
	seen := make(map[ir.Bit]bool)
	for _, lf := range leaves {
		for _, b := range lf.bits {
			if !seen[b] {
				seen[b] = true
				order = append(order, b)
			}
		}
	}
	return order
}

// patternFor builds lf's pattern over the canonical selector vector
// selBits: a don't-care trit for every position lf's path did not
// constrain, else the concrete bit lf's path took.
func patternFor(lf leaf, selBits []ir.Bit) ir.Vector {
	out := make(ir.Vector, len(selBits))
	for i := range out {
		out[i] = ir.Undef()
	}
	for i, b := range lf.bits {
		for j, sb := range selBits {
			if sb == b {
				if lf.vals[i] {
					out[j] = ir.One()
				} else {
					out[j] = ir.Zero()
				}
				break
			}
		}
	}
	return out
}

// ExtractAll runs Detect followed by Extract over every resulting
// candidate wire, skipping (not aborting on) row-count failures, since
// a capacity error is a log-and-skip class rather than a fatal one. It
// returns the cells it successfully created.
func ExtractAll(m *ir.Module) ([]*ir.Cell, []error) {
	var cells []*ir.Cell
	var errs []error
	for _, w := range Detect(m) {
		c, err := Extract(m, w)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cells = append(cells, c)
	}
	return cells, errs
}
