package satenc

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// Register-family cells link time steps: the Q literal at t is tied
// to the D-side expression evaluated at t-1, except at t==1, where
// there is no t==0 on the logical time axis ({-1} ∪ ℤ+) and Q is left
// free, to be constrained later by Encoder.SetInitState. That is the
// moment it is fed into the initial-state pool.

func encodeDff(e *Encoder, cell *ir.Cell, t int) error {
	q := e.ImportSig(cell.Output("Q"), t)
	qu := e.ImportUndefSig(cell.Output("Q"), t)
	e.notePoolBits(cell.Output("Q"), t, q)
	if t <= 1 {
		return nil
	}
	d := e.ImportSig(cell.Input("D"), t-1)
	du := e.ImportUndefSig(cell.Input("D"), t-1)
	if len(d) != len(q) {
		return errors.Errorf("$dff D width %d != Q width %d", len(d), len(q))
	}
	e.bindOutputEq(q, d)
	e.gateUndef(qu, du)
	return nil
}

func encodeDffe(e *Encoder, cell *ir.Cell, t int) error {
	q := e.ImportSig(cell.Output("Q"), t)
	qu := e.ImportUndefSig(cell.Output("Q"), t)
	e.notePoolBits(cell.Output("Q"), t, q)
	if t <= 1 {
		return nil
	}
	d := e.ImportSig(cell.Input("D"), t-1)
	en := e.ImportSig(cell.Input("EN"), t-1)
	qPrev := e.ImportSig(cell.Output("Q"), t-1)
	if len(en) != 1 {
		return errors.Errorf("$dffe EN must be width 1, got %d", len(en))
	}
	rhs := make([]Lit, len(q))
	for i := range rhs {
		rhs[i] = e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, en[0], d[i]),
			e.Solver.Expr(OpAnd, e.Solver.Not(en[0]), qPrev[i]))
	}
	e.bindOutputEq(q, rhs)
	du := e.ImportUndefSig(cell.Input("D"), t-1)
	enu := e.ImportUndefSig(cell.Input("EN"), t-1)
	quPrev := e.ImportUndefSig(cell.Output("Q"), t-1)
	e.gateUndef(qu, du, enu, quPrev)
	return nil
}

func encodeDffsr(e *Encoder, cell *ir.Cell, t int) error {
	q := e.ImportSig(cell.Output("Q"), t)
	qu := e.ImportUndefSig(cell.Output("Q"), t)
	e.notePoolBits(cell.Output("Q"), t, q)
	if t <= 1 {
		return nil
	}
	d := e.ImportSig(cell.Input("D"), t-1)
	set := e.ImportSig(cell.Input("SET"), t-1)
	clr := e.ImportSig(cell.Input("CLR"), t-1)
	if len(set) != len(q) || len(clr) != len(q) {
		return errors.Errorf("$dffsr SET/CLR width must equal Q width %d", len(q))
	}
	rhs := make([]Lit, len(q))
	for i := range rhs {
		// CLR takes priority over SET, matching row-0-wins AMT priority
		// convention used elsewhere in this encoder.
		rhs[i] = e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, clr[i], boolToLit(e.Solver, false)),
			e.Solver.Expr(OpAnd, e.Solver.Not(clr[i]), e.Solver.Expr(OpOr,
				set[i],
				e.Solver.Expr(OpAnd, e.Solver.Not(set[i]), d[i]))))
	}
	e.bindOutputEq(q, rhs)
	du := e.ImportUndefSig(cell.Input("D"), t-1)
	e.gateUndef(qu, du)
	return nil
}

func encodeAdff(e *Encoder, cell *ir.Cell, t int) error {
	q := e.ImportSig(cell.Output("Q"), t)
	qu := e.ImportUndefSig(cell.Output("Q"), t)
	e.notePoolBits(cell.Output("Q"), t, q)
	arst := e.ImportSig(cell.Input("ARST"), t)
	if len(arst) != 1 {
		return errors.Errorf("$adff ARST must be width 1, got %d", len(arst))
	}
	arstVal := cell.Params["ARST_VALUE"]
	arstLits := make([]Lit, len(q))
	for i := range arstLits {
		if i < len(arstVal) && arstVal[i].IsConst() {
			arstLits[i] = boolToLit(e.Solver, arstVal[i].Value())
		} else {
			arstLits[i] = boolToLit(e.Solver, false)
		}
	}
	var normal []Lit
	if t > 1 {
		normal = e.ImportSig(cell.Input("D"), t-1)
	} else {
		normal = q // self: unconstrained when not reset and t==1
	}
	rhs := make([]Lit, len(q))
	for i := range rhs {
		rhs[i] = e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, arst[0], arstLits[i]),
			e.Solver.Expr(OpAnd, e.Solver.Not(arst[0]), normal[i]))
	}
	e.bindOutputEq(q, rhs)
	if t > 1 {
		du := e.ImportUndefSig(cell.Input("D"), t-1)
		e.gateUndef(qu, du)
	}
	return nil
}

func encodeDlatch(e *Encoder, cell *ir.Cell, t int) error {
	q := e.ImportSig(cell.Output("Q"), t)
	qu := e.ImportUndefSig(cell.Output("Q"), t)
	e.notePoolBits(cell.Output("Q"), t, q)
	en := e.ImportSig(cell.Input("EN"), t)
	d := e.ImportSig(cell.Input("D"), t)
	if len(en) != 1 {
		return errors.Errorf("$dlatch EN must be width 1, got %d", len(en))
	}
	var hold []Lit
	if t > 1 {
		hold = e.ImportSig(cell.Output("Q"), t-1)
	} else {
		hold = q
	}
	rhs := make([]Lit, len(q))
	for i := range rhs {
		rhs[i] = e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, en[0], d[i]),
			e.Solver.Expr(OpAnd, e.Solver.Not(en[0]), hold[i]))
	}
	e.bindOutputEq(q, rhs)
	du := e.ImportUndefSig(cell.Input("D"), t)
	enu := e.ImportUndefSig(cell.Input("EN"), t)
	e.gateUndef(qu, du, enu)
	return nil
}

// notePoolBits feeds every bit of sig (already imported at time t)
// into the initial-state pool via Encoder.noteRegisterQ.
func (e *Encoder) notePoolBits(sig ir.Vector, t int, lits []Lit) {
	if t != 1 {
		return
	}
	rep := e.SigMap.RepVector(sig)
	for i, b := range rep {
		if b.Kind == ir.BitWire {
			e.noteRegisterQ(b, t, lits[i])
		}
	}
}

// encodeMem implements a word-addressed memory with one read and one
// write port, both combinational-address/registered-state: write at
// t-1 updates the addressed word observed by a read at t. Depth comes
// from the SIZE parameter and is expected to be small (bug-corpus
// fixtures, not production-scale memories), since each word gets its
// own literal per bit, one-hot-decoded over the address.
func encodeMem(e *Encoder, cell *ir.Cell, t int) error {
	sizeParam := cell.Params["SIZE"]
	size := vectorToInt(sizeParam)
	if size <= 0 {
		return errors.New("$mem requires a positive SIZE parameter")
	}
	rdAddr := e.ImportSig(cell.Input("RD_ADDR"), t)
	rdData := e.ImportSig(cell.Output("RD_DATA"), t)
	width := len(rdData)

	words := make([][]Lit, size)
	for i := range words {
		words[i] = e.memWord(cell, i, width, t)
	}

	rhs := make([]Lit, width)
	for bit := 0; bit < width; bit++ {
		var acc Lit = boolToLit(e.Solver, false)
		for i := 0; i < size; i++ {
			sel := addrEquals(e.Solver, rdAddr, i)
			acc = e.Solver.Expr(OpOr, acc, e.Solver.Expr(OpAnd, sel, words[i][bit]))
		}
		rhs[bit] = acc
	}
	e.bindOutputEq(rdData, rhs)
	return nil
}

// memWord returns the literals for memory word i of cell at time t,
// threading the write port across time the same way encodeDff threads
// Q, and memoizing per (cell, word, bit, t) so repeated calls within
// one import pass share literals.
func (e *Encoder) memWord(cell *ir.Cell, word, width, t int) []Lit {
	out := make([]Lit, width)
	for bit := 0; bit < width; bit++ {
		key := memoKey{wire: ir.WireID(-1000000 - int(cell.ID)*10000 - word*100 - bit), offset: 0, t: t}
		if l, ok := e.memo[key]; ok {
			out[bit] = l
			continue
		}
		l := e.Solver.NewLit()
		e.memo[key] = l
		out[bit] = l
	}
	if t <= 1 {
		return out
	}
	wrAddr := e.ImportSig(cell.Input("WR_ADDR"), t-1)
	wrData := e.ImportSig(cell.Input("WR_DATA"), t-1)
	wrEn := e.ImportSig(cell.Input("WR_EN"), t-1)
	prev := e.memWord(cell, word, width, t-1)
	hit := e.Solver.Expr(OpAnd, addrEquals(e.Solver, wrAddr, word), wrEnAny(e.Solver, wrEn))
	for bit := 0; bit < width; bit++ {
		wd := bitAt(e.Solver, wrData, bit)
		rhs := e.Solver.Expr(OpOr,
			e.Solver.Expr(OpAnd, hit, wd),
			e.Solver.Expr(OpAnd, e.Solver.Not(hit), prev[bit]))
		e.bindOutputEq(out[bit:bit+1], []Lit{rhs})
	}
	return out
}

func wrEnAny(s Solver, en []Lit) Lit {
	if len(en) == 0 {
		return boolToLit(s, false)
	}
	return s.Expr(OpOr, en...)
}

func addrEquals(s Solver, addr []Lit, value int) Lit {
	var terms []Lit
	for i, l := range addr {
		bit := (value>>i)&1 == 1
		if bit {
			terms = append(terms, l)
		} else {
			terms = append(terms, s.Not(l))
		}
	}
	return s.Expr(OpAnd, terms...)
}

func vectorToInt(v ir.Vector) int {
	n := 0
	for i := len(v) - 1; i >= 0; i-- {
		n <<= 1
		if v[i].IsConst() && v[i].Value() {
			n |= 1
		}
	}
	return n
}

// encodeAMT implements first-match-wins priority selection over
// STATE_TABLE (package amt owns the codec; this encoder reads the
// row-major trit vector directly to avoid a dependency on amt, which
// in turn depends on this package for its SAT-backed tests). A row
// whose trits are all don't-care always matches; rows are checked in
// index order and the first match wins, exactly like $pmux's priority
// fold, and an unmatched bit is left free (Y[bit] defaults to itself,
// a tautological binding).
func encodeAMT(e *Encoder, cell *ir.Cell, t int) error {
	s := e.ImportSig(cell.Input("S"), t)
	a := e.ImportSig(cell.Input("A"), t)
	y := e.ImportSig(cell.Output("Y"), t)
	table := cell.Params["STATE_TABLE"]
	k := len(s)
	m := len(y)
	if m == 0 || k == 0 {
		return errors.New("$amt requires non-zero S and Y width")
	}
	rowWidth := k + 1
	if len(table)%rowWidth != 0 {
		return errors.Errorf("$amt STATE_TABLE length %d is not a multiple of k+1=%d", len(table), rowWidth)
	}
	n := len(table) / rowWidth
	if len(a) != n*m {
		return errors.Errorf("$amt A width %d must equal n*m = %d*%d", len(a), n, m)
	}
	for bit := 0; bit < m; bit++ {
		noneYet := boolToLit(e.Solver, true)
		rhs := y[bit]
		for row := 0; row < n; row++ {
			match := amtRowMatches(e, s, table, row, k)
			rowSel := e.Solver.Expr(OpAnd, noneYet, match)
			rhs = e.Solver.Expr(OpOr,
				e.Solver.Expr(OpAnd, rowSel, a[row*m+bit]),
				e.Solver.Expr(OpAnd, e.Solver.Not(rowSel), rhs))
			noneYet = e.Solver.Expr(OpAnd, noneYet, e.Solver.Not(match))
		}
		e.bindOutputEq(y[bit:bit+1], []Lit{rhs})
	}
	su := e.ImportUndefSig(cell.Input("S"), t)
	au := e.ImportUndefSig(cell.Input("A"), t)
	yu := e.ImportUndefSig(cell.Output("Y"), t)
	e.gateUndef(yu, su, au)
	return nil
}

func amtRowMatches(e *Encoder, s []Lit, table ir.Vector, row, k int) Lit {
	var terms []Lit
	for j := 0; j < k; j++ {
		trit := table[row*(k+1)+j]
		switch trit.Kind {
		case ir.BitZero:
			terms = append(terms, e.Solver.Not(s[j]))
		case ir.BitOne:
			terms = append(terms, s[j])
		}
	}
	return e.Solver.Expr(OpAnd, terms...)
}
