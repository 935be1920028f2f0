package satenc

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func init() {
	registerCellEncoder(ir.CellNot, encodeNot)
	registerCellEncoder(ir.CellAnd, encodeAnd)
	registerCellEncoder(ir.CellOr, encodeOr)
	registerCellEncoder(ir.CellXor, encodeXor)
	registerCellEncoder(ir.CellReduceAnd, encodeReduceAnd)
	registerCellEncoder(ir.CellReduceOr, encodeReduceOr)
	registerCellEncoder(ir.CellMux, encodeMux)
	registerCellEncoder(ir.CellPmux, encodePmux)
	registerCellEncoder(ir.CellEq, encodeCompareEq(true))
	registerCellEncoder(ir.CellNe, encodeCompareEq(false))
	registerCellEncoder(ir.CellLt, encodeCompareOrd(ordLt))
	registerCellEncoder(ir.CellLe, encodeCompareOrd(ordLe))
	registerCellEncoder(ir.CellGt, encodeCompareOrd(ordGt))
	registerCellEncoder(ir.CellGe, encodeCompareOrd(ordGe))
	registerCellEncoder(ir.CellAdd, encodeAdd)
	registerCellEncoder(ir.CellSub, encodeSub)
	registerCellEncoder(ir.CellShl, encodeShift(true))
	registerCellEncoder(ir.CellShr, encodeShift(false))
	registerCellEncoder(ir.CellDff, encodeDff)
	registerCellEncoder(ir.CellDffe, encodeDffe)
	registerCellEncoder(ir.CellDffsr, encodeDffsr)
	registerCellEncoder(ir.CellAdff, encodeAdff)
	registerCellEncoder(ir.CellDlatch, encodeDlatch)
	registerCellEncoder(ir.CellMem, encodeMem)
	registerCellEncoder(ir.CellAMT, encodeAMT)
}

// bindOutputEq asserts out[i] <-> rhs[i] for every bit, the standard
// way these encoders tie a freshly computed combinational expression
// to the cell's already-allocated output literals.
func (e *Encoder) bindOutputEq(out []Lit, rhs []Lit) {
	for i := range out {
		e.Solver.AddClause(e.Solver.Not(out[i]), rhs[i])
		e.Solver.AddClause(out[i], e.Solver.Not(rhs[i]))
	}
}

// gateUndef implements the conservative gating rule: if any
// contributing input bit is undef, the output bit's undef literal is
// forced true (one (¬src ∨ d) clause per source bit), and if no
// contributing input bit is undef it is forced false (one
// (¬d ∨ src...) clause), so d is undef exactly when some source is.
func (e *Encoder) gateUndef(dstUndef []Lit, srcUndef ...[]Lit) {
	if !e.FourValued {
		return
	}
	for _, d := range dstUndef {
		if d == LitNull {
			continue
		}
		anySrc := []Lit{e.Solver.Not(d)}
		for _, src := range srcUndef {
			for _, s := range src {
				e.Solver.AddClause(e.Solver.Not(s), d)
				anySrc = append(anySrc, s)
			}
		}
		e.Solver.AddClause(anySrc...)
	}
}

func bitwise(e *Encoder, cell *ir.Cell, t int, op Op) error {
	a := e.ImportSig(cell.Input("A"), t)
	b := e.ImportSig(cell.Input("B"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	if len(a) != len(b) || len(a) != len(y) {
		return errors.Errorf("width mismatch A=%d B=%d Y=%d", len(a), len(b), len(y))
	}
	rhs := make([]Lit, len(y))
	for i := range y {
		rhs[i] = e.Solver.Expr(op, a[i], b[i])
	}
	e.bindOutputEq(y, rhs)
	au := e.ImportUndefSig(cell.Input("A"), t)
	bu := e.ImportUndefSig(cell.Input("B"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	for i := range yu {
		e.gateUndef(yu[i:i+1], au[i:i+1], bu[i:i+1])
	}
	return nil
}

func encodeAnd(e *Encoder, cell *ir.Cell, t int) error { return bitwise(e, cell, t, OpAnd) }
func encodeOr(e *Encoder, cell *ir.Cell, t int) error  { return bitwise(e, cell, t, OpOr) }
func encodeXor(e *Encoder, cell *ir.Cell, t int) error { return bitwise(e, cell, t, OpXor) }

func encodeNot(e *Encoder, cell *ir.Cell, t int) error {
	a := e.ImportSig(cell.Input("A"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	if len(a) != len(y) {
		return errors.Errorf("width mismatch A=%d Y=%d", len(a), len(y))
	}
	rhs := make([]Lit, len(y))
	for i := range y {
		rhs[i] = e.Solver.Not(a[i])
	}
	e.bindOutputEq(y, rhs)
	au := e.ImportUndefSig(cell.Input("A"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	for i := range yu {
		e.gateUndef(yu[i:i+1], au[i:i+1])
	}
	return nil
}

func reduce(e *Encoder, cell *ir.Cell, t int, op Op) error {
	a := e.ImportSig(cell.Input("A"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	if len(y) != 1 {
		return errors.Errorf("reduce cell Y must be width 1, got %d", len(y))
	}
	e.bindOutputEq(y, []Lit{e.Solver.Expr(op, a...)})
	au := e.ImportUndefSig(cell.Input("A"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	e.gateUndef(yu, au)
	return nil
}

func encodeReduceAnd(e *Encoder, cell *ir.Cell, t int) error { return reduce(e, cell, t, OpAnd) }
func encodeReduceOr(e *Encoder, cell *ir.Cell, t int) error  { return reduce(e, cell, t, OpOr) }

func encodeMux(e *Encoder, cell *ir.Cell, t int) error {
	a := e.ImportSig(cell.Input("A"), t)
	b := e.ImportSig(cell.Input("B"), t)
	s := e.ImportSig(cell.Input("S"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	if len(s) != 1 {
		return errors.Errorf("$mux S must be width 1, got %d", len(s))
	}
	if len(a) != len(b) || len(a) != len(y) {
		return errors.Errorf("width mismatch A=%d B=%d Y=%d", len(a), len(b), len(y))
	}
	rhs := make([]Lit, len(y))
	for i := range y {
		// Y = S ? B : A
		rhs[i] = e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, s[0], b[i]),
			e.Solver.Expr(OpAnd, e.Solver.Not(s[0]), a[i]))
	}
	e.bindOutputEq(y, rhs)
	au, bu, su := e.ImportUndefSig(cell.Input("A"), t), e.ImportUndefSig(cell.Input("B"), t), e.ImportUndefSig(cell.Input("S"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	for i := range yu {
		e.gateUndef(yu[i:i+1], au[i:i+1], bu[i:i+1], su)
	}
	return nil
}

// encodePmux implements a one-hot priority mux: B is n*width(A) wide,
// S is n wide one-hot-ish select; the lowest-index asserted S bit
// wins, defaulting to A if none are set. This mirrors the AMT's own
// first-match-wins row semantics (package amt), which is exactly why
// the miter builder's AMT-to-pmux expansion step targets this cell.
func encodePmux(e *Encoder, cell *ir.Cell, t int) error {
	a := e.ImportSig(cell.Input("A"), t)
	b := e.ImportSig(cell.Input("B"), t)
	s := e.ImportSig(cell.Input("S"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	n := len(s)
	w := len(a)
	if len(y) != w {
		return errors.Errorf("$pmux Y width %d must equal A width %d", len(y), w)
	}
	if len(b) != n*w {
		return errors.Errorf("$pmux B width %d must equal S width %d times A width %d", len(b), n, w)
	}
	for bit := 0; bit < w; bit++ {
		// earlier[i] = no row 0..i-1 selected, so row i's contribution
		// requires all earlier S bits false.
		var rhs Lit
		noneYet := boolToLit(e.Solver, true)
		rhs = e.Solver.Expr(OpAnd, noneYet, a[bit])
		for row := 0; row < n; row++ {
			rowSel := e.Solver.Expr(OpAnd, noneYet, s[row])
			rhs = e.Solver.Expr(OpOr, e.Solver.Expr(OpAnd, rowSel, b[row*w+bit]),
				e.Solver.Expr(OpAnd, e.Solver.Not(rowSel), rhs))
			noneYet = e.Solver.Expr(OpAnd, noneYet, e.Solver.Not(s[row]))
		}
		e.bindOutputEq(y[bit:bit+1], []Lit{rhs})
	}
	au, bu, su := e.ImportUndefSig(cell.Input("A"), t), e.ImportUndefSig(cell.Input("B"), t), e.ImportUndefSig(cell.Input("S"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	e.gateUndef(yu, au, bu, su)
	return nil
}

func encodeCompareEq(wantEq bool) cellEncoderFn {
	return func(e *Encoder, cell *ir.Cell, t int) error {
		a := e.ImportSig(cell.Input("A"), t)
		b := e.ImportSig(cell.Input("B"), t)
		y := e.ImportSig(cell.Output("Y"), t)
		if len(y) != 1 {
			return errors.Errorf("$eq/$ne Y must be width 1, got %d", len(y))
		}
		n := minInt(len(a), len(b))
		eqBits := make([]Lit, 0, n)
		for i := 0; i < n; i++ {
			eqBits = append(eqBits, e.Solver.Expr(OpIff, a[i], b[i]))
		}
		extra := widthExcess(e, a, b)
		eqBits = append(eqBits, extra...)
		eq := e.Solver.Expr(OpAnd, eqBits...)
		if !wantEq {
			eq = e.Solver.Not(eq)
		}
		e.bindOutputEq(y, []Lit{eq})
		au, bu := e.ImportUndefSig(cell.Input("A"), t), e.ImportUndefSig(cell.Input("B"), t)
		yu := e.ImportUndefSig(cell.Output("Y"), t)
		e.gateUndef(yu, au, bu)
		return nil
	}
}

// widthExcess returns, for the wider of a/b, a literal per bit beyond
// the shorter vector's width asserting that the excess bit is 0 (zero
// extension), used by $eq/$ne to compare mismatched-width operands.
func widthExcess(e *Encoder, a, b []Lit) []Lit {
	var wide []Lit
	if len(a) > len(b) {
		wide = a[len(b):]
	} else if len(b) > len(a) {
		wide = b[len(a):]
	}
	out := make([]Lit, len(wide))
	for i, l := range wide {
		out[i] = e.Solver.Not(l)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type ordKind int

const (
	ordLt ordKind = iota
	ordLe
	ordGt
	ordGe
)

// encodeCompareOrd implements unsigned magnitude comparison MSB-first,
// the direct bit-serial encoding of "which number is bigger".
func encodeCompareOrd(kind ordKind) cellEncoderFn {
	return func(e *Encoder, cell *ir.Cell, t int) error {
		a := e.ImportSig(cell.Input("A"), t)
		b := e.ImportSig(cell.Input("B"), t)
		y := e.ImportSig(cell.Output("Y"), t)
		if len(y) != 1 {
			return errors.Errorf("comparison Y must be width 1, got %d", len(y))
		}
		n := maxInt(len(a), len(b))
		lt := boolToLit(e.Solver, false)
		gt := boolToLit(e.Solver, false)
		for i := n - 1; i >= 0; i-- {
			ai := bitAt(e.Solver, a, i)
			bi := bitAt(e.Solver, b, i)
			aLtB := e.Solver.Expr(OpAnd, e.Solver.Not(ai), bi)
			aGtB := e.Solver.Expr(OpAnd, ai, e.Solver.Not(bi))
			eqSoFar := e.Solver.Expr(OpAnd, e.Solver.Not(lt), e.Solver.Not(gt))
			lt = e.Solver.Expr(OpOr, lt, e.Solver.Expr(OpAnd, eqSoFar, aLtB))
			gt = e.Solver.Expr(OpOr, gt, e.Solver.Expr(OpAnd, eqSoFar, aGtB))
		}
		var result Lit
		switch kind {
		case ordLt:
			result = lt
		case ordLe:
			result = e.Solver.Not(gt)
		case ordGt:
			result = gt
		case ordGe:
			result = e.Solver.Not(lt)
		}
		e.bindOutputEq(y, []Lit{result})
		au, bu := e.ImportUndefSig(cell.Input("A"), t), e.ImportUndefSig(cell.Input("B"), t)
		yu := e.ImportUndefSig(cell.Output("Y"), t)
		e.gateUndef(yu, au, bu)
		return nil
	}
}

func bitAt(s Solver, v []Lit, i int) Lit {
	if i < len(v) {
		return v[i]
	}
	return boolToLit(s, false)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// rippleAdd builds a ripple-carry sum of a and b (zero-extended to the
// output width) with carry-in cin, returning the sum bits and the
// final carry-out literal.
func rippleAdd(e *Encoder, a, b []Lit, cin Lit, width int) ([]Lit, Lit) {
	sum := make([]Lit, width)
	carry := cin
	for i := 0; i < width; i++ {
		ai := bitAt(e.Solver, a, i)
		bi := bitAt(e.Solver, b, i)
		sum[i] = e.Solver.Expr(OpXor, e.Solver.Expr(OpXor, ai, bi), carry)
		carry = e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, ai, bi),
			e.Solver.Expr(OpAnd, carry, e.Solver.Expr(OpXor, ai, bi)))
	}
	return sum, carry
}

func encodeAdd(e *Encoder, cell *ir.Cell, t int) error {
	a := e.ImportSig(cell.Input("A"), t)
	b := e.ImportSig(cell.Input("B"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	sum, _ := rippleAdd(e, a, b, boolToLit(e.Solver, false), len(y))
	e.bindOutputEq(y, sum)
	au, bu := e.ImportUndefSig(cell.Input("A"), t), e.ImportUndefSig(cell.Input("B"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	e.gateUndef(yu, au, bu)
	return nil
}

func encodeSub(e *Encoder, cell *ir.Cell, t int) error {
	a := e.ImportSig(cell.Input("A"), t)
	b := e.ImportSig(cell.Input("B"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	notB := make([]Lit, len(b))
	for i, l := range b {
		notB[i] = e.Solver.Not(l)
	}
	sum, _ := rippleAdd(e, a, notB, boolToLit(e.Solver, true), len(y))
	e.bindOutputEq(y, sum)
	au, bu := e.ImportUndefSig(cell.Input("A"), t), e.ImportUndefSig(cell.Input("B"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	e.gateUndef(yu, au, bu)
	return nil
}

// encodeShift implements a fixed-amount barrel shift: B must carry a
// constant shift amount (the expander and AMT tables never shift by a
// variable runtime amount), left for $shl, right (logical) for $shr.
func encodeShift(left bool) cellEncoderFn {
	return func(e *Encoder, cell *ir.Cell, t int) error {
		a := cell.Input("A")
		bParam := cell.Params["B"]
		if bParam == nil {
			bParam = cell.Input("B")
		}
		amount := 0
		for i := len(bParam) - 1; i >= 0; i-- {
			if bParam[i].IsConst() && bParam[i].Value() {
				amount |= 1 << i
			}
		}
		y := e.ImportSig(cell.Output("Y"), t)
		av := e.ImportSig(a, t)
		rhs := make([]Lit, len(y))
		for i := range rhs {
			var src int
			if left {
				src = i - amount
			} else {
				src = i + amount
			}
			if src < 0 || src >= len(av) {
				rhs[i] = boolToLit(e.Solver, false)
				continue
			}
			rhs[i] = av[src]
		}
		e.bindOutputEq(y, rhs)
		au := e.ImportUndefSig(a, t)
		yu := e.ImportUndefSig(cell.Output("Y"), t)
		e.gateUndef(yu, au)
		return nil
	}
}
