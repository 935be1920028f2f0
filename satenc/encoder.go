package satenc

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// UnknownCellPolicy controls what ImportCell does when asked to
// import a cell type outside the documented, fully-specified subset.
type UnknownCellPolicy int

const (
	// AbortOnUnknownCell is the default: ImportCell returns an
	// *ir.Error with KindSolver, which callers should treat as fatal.
	AbortOnUnknownCell UnknownCellPolicy = iota
	// SkipUnknownCell logs and leaves the cell's outputs unconstrained
	// (free literals), continuing the import.
	SkipUnknownCell
)

// DivByZeroPolicy names the convention for a division result whose
// divisor is zero. No cell encoder in this package reads it: the
// encoded cell subset has no division cell.
type DivByZeroPolicy int

const (
	// DivByZeroUndef forces the entire result vector undef.
	DivByZeroUndef DivByZeroPolicy = iota
	// DivByZeroZero forces the result to the all-zero vector.
	DivByZeroZero
)

type memoKey struct {
	wire   ir.WireID
	offset int
	t      int
	undef  bool
}

// Encoder imports a module's signals and cells into an incremental
// SAT instance at a chosen logical time step, per bit and per cell.
// It owns the Solver it is given rather than reaching for an ambient
// singleton, and it owns its own memoization tables so that repeated
// imports of the same (signal, time) pair return the same literal.
type Encoder struct {
	Solver Solver
	Module *ir.Module
	SigMap *ir.SigMap

	// FourValued turns on the parallel undef-literal plane. When
	// false, ImportUndefSig returns LitNull for every bit and cells
	// skip undef-gating clauses entirely.
	FourValued bool
	// UnknownCell chooses the failure mode for cell types outside the
	// documented subset.
	UnknownCell UnknownCellPolicy
	// DivByZero chooses the division-by-zero result convention.
	DivByZero DivByZeroPolicy

	Log zerolog.Logger

	memo map[memoKey]Lit
	// initPool holds, per register Q wire-bit, the literal first
	// assigned to it at t=1, the set the verifier's initial-state
	// constraints are applied against.
	initPool   map[memoKey]Lit
	initStepAt map[int]bool
}

// NewEncoder returns an Encoder over m, backed by s, logging through
// log. FourValued defaults to true; callers that want the faster
// pure-Boolean mode set it to false explicitly.
func NewEncoder(s Solver, m *ir.Module, log zerolog.Logger) *Encoder {
	return &Encoder{
		Solver:     s,
		Module:     m,
		SigMap:     m.SigMap(),
		FourValued: true,
		Log:        log,
		memo:       make(map[memoKey]Lit),
		initPool:   make(map[memoKey]Lit),
		initStepAt: make(map[int]bool),
	}
}

// ImportSig returns one value literal per bit of sig at time t,
// memoized by the bit's canonical representative so that two
// differently-spelled references to the same net collapse to the
// same literal.
func (e *Encoder) ImportSig(sig ir.Vector, t int) []Lit {
	rep := e.SigMap.RepVector(sig)
	out := make([]Lit, len(rep))
	for i, b := range rep {
		out[i] = e.importBit(b, t, false)
	}
	return out
}

// ImportUndefSig is ImportSig's undef-plane counterpart. When
// FourValued is false it returns LitNull for every bit.
func (e *Encoder) ImportUndefSig(sig ir.Vector, t int) []Lit {
	rep := e.SigMap.RepVector(sig)
	out := make([]Lit, len(rep))
	for i, b := range rep {
		if !e.FourValued {
			out[i] = LitNull
			continue
		}
		out[i] = e.importBit(b, t, true)
	}
	return out
}

func (e *Encoder) importBit(b ir.Bit, t int, undef bool) Lit {
	if b.IsConst() {
		if undef {
			return boolToLit(e.Solver, b.Kind == ir.BitUndef || b.Kind == ir.BitHighZ)
		}
		return boolToLit(e.Solver, b.Kind == ir.BitOne)
	}
	key := memoKey{wire: b.Wire, offset: b.Offset, t: t, undef: undef}
	if l, ok := e.memo[key]; ok {
		return l
	}
	l := e.Solver.NewLit()
	e.memo[key] = l
	return l
}

// noteRegisterQ records b's literal at t in the initial-state pool
// the first time it is seen at t == 1, per spec: the encoder records
// the register's Q into the initial-state pool the first time it is
// seen at t=1.
func (e *Encoder) noteRegisterQ(b ir.Bit, t int, l Lit) {
	if t != 1 {
		return
	}
	key := memoKey{wire: b.Wire, offset: b.Offset, t: t}
	if _, ok := e.initPool[key]; !ok {
		e.initPool[key] = l
	}
}

// InitPoolLits returns every literal recorded in the initial-state
// pool, in stable iteration order (sorted by wire id then offset) so
// that callers building deterministic constraint sets don't depend on
// Go's randomized map order.
func (e *Encoder) InitPoolLits() []Lit {
	keys := make([]memoKey, 0, len(e.initPool))
	for k := range e.initPool {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	out := make([]Lit, len(keys))
	for i, k := range keys {
		out[i] = e.initPool[k]
	}
	return out
}

func less(a, b memoKey) bool {
	if a.wire != b.wire {
		return a.wire < b.wire
	}
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	if a.t != b.t {
		return a.t < b.t
	}
	return !a.undef && b.undef
}

// LockLiterals returns every literal this encoder has allocated at a
// time step <= upToT, in stable order. The verifier uses this to pin a
// satisfying sensitization witness down to unit clauses before
// resuming the search for a propagation step, so later solves explore
// only continuations of that exact trace rather than a fresh one.
func (e *Encoder) LockLiterals(upToT int) []Lit {
	keys := make([]memoKey, 0, len(e.memo))
	for k := range e.memo {
		if k.t <= upToT {
			keys = append(keys, k)
		}
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	out := make([]Lit, len(keys))
	for i, k := range keys {
		out[i] = e.memo[k]
	}
	return out
}

// SetInitState marks t as the design's initial-state step: applies
// any caller-supplied overrides and, when allZero or allDefined is set,
// forces every register's Q at t to zero or to defined. It does not
// read "init" attributes.
func (e *Encoder) SetInitState(t int, allDefined, allZero bool, overrides map[ir.WireID]ir.Vector) error {
	e.initStepAt[t] = true
	for wid, val := range overrides {
		w := e.Module.Wire(wid)
		if w == nil {
			return errors.Errorf("satenc: set_init_state: unknown wire %d", wid)
		}
		lits := e.ImportSig(w.Bits(), t)
		vlits := e.ImportSig(val, t)
		for i := range lits {
			e.Solver.AddClause(e.Solver.Expr(OpIff, lits[i], vlits[i]))
		}
	}
	if allDefined || allZero {
		for _, c := range e.Module.Cells() {
			if !isRegisterCell(c.Type) {
				continue
			}
			q, ok := c.Outputs["Q"]
			if !ok {
				continue
			}
			lits := e.ImportSig(q, t)
			if allZero {
				for _, l := range lits {
					e.Solver.AddClause(e.Solver.Not(l))
				}
			}
			if allDefined {
				ulits := e.ImportUndefSig(q, t)
				for _, l := range ulits {
					if l != LitNull {
						e.Solver.AddClause(e.Solver.Not(l))
					}
				}
			}
		}
	}
	return nil
}

// SignalsEq returns a literal true iff a (at ta) and b (at tb) agree
// under four-valued semantics: either both undef, or both defined and
// equal. When FourValued is off, this degrades to plain bitwise
// equality.
func (e *Encoder) SignalsEq(a, b ir.Vector, ta, tb int) (Lit, error) {
	if len(a) != len(b) {
		return LitNull, errors.Errorf("satenc: signals_eq: width mismatch %d vs %d", len(a), len(b))
	}
	av, bv := e.ImportSig(a, ta), e.ImportSig(b, tb)
	if !e.FourValued {
		perBit := make([]Lit, len(av))
		for i := range av {
			perBit[i] = e.Solver.Expr(OpIff, av[i], bv[i])
		}
		return e.Solver.Expr(OpAnd, perBit...), nil
	}
	au, bu := e.ImportUndefSig(a, ta), e.ImportUndefSig(b, tb)
	perBit := make([]Lit, len(av))
	for i := range av {
		bothUndef := e.Solver.Expr(OpAnd, au[i], bu[i])
		bothDefEq := e.Solver.Expr(OpAnd, e.Solver.Not(au[i]), e.Solver.Not(bu[i]), e.Solver.Expr(OpIff, av[i], bv[i]))
		perBit[i] = e.Solver.Expr(OpOr, bothUndef, bothDefEq)
	}
	return e.Solver.Expr(OpAnd, perBit...), nil
}

// ImportAsserts returns the conjunction over every enabled $assert
// cell's A input at time t; ImportAssumes is the $assume analogue.
// Both are no-ops (return the constant-true literal) when the module
// has no such cells, matching the "collected... tagged by prefixed
// name per time step" contract loosely, since this module's own
// fixtures name assertion cells directly rather than through a
// separate tag registry.
func (e *Encoder) ImportAsserts(t int) Lit { return e.importGateCells(ir.CellAssert, t) }
func (e *Encoder) ImportAssumes(t int) Lit { return e.importGateCells(ir.CellAssume, t) }

func (e *Encoder) importGateCells(cellType string, t int) Lit {
	var gates []Lit
	for _, c := range e.Module.Cells() {
		if c.Type != cellType {
			continue
		}
		en := e.ImportSig(c.Input("EN"), t)
		a := e.ImportSig(c.Input("A"), t)
		if len(en) == 0 {
			gates = append(gates, a[0])
			continue
		}
		gates = append(gates, e.Solver.Expr(OpOr, e.Solver.Not(en[0]), a[0]))
	}
	return e.Solver.Expr(OpAnd, gates...)
}

func isRegisterCell(t string) bool {
	switch t {
	case ir.CellDff, ir.CellDffe, ir.CellDffsr, ir.CellAdff, ir.CellDlatch:
		return true
	default:
		return false
	}
}

// ImportCell adds the clauses implementing cell's behavior at time t,
// dispatching on its documented type. Flip-flop families additionally
// link t's Q to the D/clock-enable inputs at t-1 and feed the
// initial-state pool. Unknown cell types are handled per e.UnknownCell.
func (e *Encoder) ImportCell(cell *ir.Cell, t int) error {
	fn, ok := cellEncoders[cell.Type]
	if !ok {
		if e.UnknownCell == SkipUnknownCell {
			e.Log.Warn().Str("cell", cell.Name).Str("type", cell.Type).Msg("skipping unknown cell type")
			return nil
		}
		return ir.NewError(ir.KindSolver, "import_cell", errors.Errorf("unknown cell type %q on %q", cell.Type, cell.Name))
	}
	if err := fn(e, cell, t); err != nil {
		return ir.NewError(ir.KindSolver, "import_cell", errors.Wrapf(err, "cell %q", cell.Name))
	}
	return nil
}

type cellEncoderFn func(*Encoder, *ir.Cell, int) error

var cellEncoders map[string]cellEncoderFn

func registerCellEncoder(t string, fn cellEncoderFn) {
	if cellEncoders == nil {
		cellEncoders = make(map[string]cellEncoderFn)
	}
	cellEncoders[t] = fn
}

func boolToLit(s Solver, b bool) Lit {
	if b {
		return s.Not(s.Expr(OpOr))
	}
	return s.Expr(OpOr)
}

