// Package satenc imports a module's signals and cells, at a chosen
// time step, into an incremental CNF SAT instance: the "SAT encoder"
// subsystem. It is deliberately decoupled from any specific solver
// library. Solver is the capability this package needs, and
// internal/satsolver supplies the concrete adapter over
// github.com/irifrance/gini. The encoder owns an explicit solver
// reference rather than reaching for an ambient singleton.
package satenc

import (
	"context"
	"io"
	"time"
)

// Lit is an opaque literal handle allocated by a Solver. Lit's zero
// value is never valid; callers always obtain one from NewLit,
// Not, or Expr.
type Lit int

// LitNull is the invalid literal returned by operations that have no
// meaningful result (e.g. a zero-width vector's single literal).
const LitNull Lit = 0

// Op names a Boolean combinator usable with Solver.Expr.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpXor
	OpIff
)

// Result is the outcome of one Solver.Solve call.
type Result int

const (
	ResultSAT Result = iota
	ResultUNSAT
	ResultTimeout
)

func (r Result) String() string {
	switch r {
	case ResultSAT:
		return "sat"
	case ResultUNSAT:
		return "unsat"
	case ResultTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Solver is the incremental, CNF-level SAT capability this package
// needs: solve with assumptions, incremental assume/freeze, Boolean
// expression construction, and a per-solve wall-clock timeout.
// internal/satsolver.Gini implements it over github.com/irifrance/gini.
type Solver interface {
	// NewLit allocates a fresh literal (a new Boolean variable).
	NewLit() Lit
	// Not returns the negation of l. It never allocates.
	Not(l Lit) Lit
	// AddClause asserts that at least one of lits holds.
	AddClause(lits ...Lit)
	// Expr returns a literal equivalent to op applied to lits, adding
	// whatever Tseitin clauses are needed to define it.
	Expr(op Op, lits ...Lit) Lit
	// Assume adds a unit assumption for the next Solve call only.
	Assume(lits ...Lit)
	// FrozenLit returns a literal that Solve is guaranteed not to
	// eliminate by preprocessing, so its model value can be inspected
	// or it can be asserted permanently as a hard clause later. name
	// identifies the literal: asking again for the same name returns
	// the same literal.
	FrozenLit(name string) Lit
	// Solve runs the solver under the given assumptions (in addition
	// to any pending Assume calls) and ctx's deadline.
	Solve(ctx context.Context, assumptions ...Lit) (Result, error)
	// Value returns the model value of l after a ResultSAT Solve.
	Value(l Lit) bool
	// SetSolverTimeout bounds every subsequent Solve call to at most
	// d wall-clock time, surfacing ResultTimeout instead of blocking
	// forever.
	SetSolverTimeout(d time.Duration)
	// PrintDIMACS writes the current CNF to w. If proof is true, the
	// gini adapter (internal/satsolver) writes only a comment line
	// saying that no proof is produced.
	PrintDIMACS(w io.Writer, proof bool) error
}
