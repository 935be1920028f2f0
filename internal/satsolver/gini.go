// Package satsolver adapts github.com/irifrance/gini to the
// satenc.Solver capability interface, grounded on the inter.S
// contract (Adder/Assumable/Model/Solvable) and the logic.C
// combinational-circuit builder that the gini project itself uses to
// Tseitinize And/Or/Xor into CNF before handing it to the core
// solver.
package satsolver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/irifrance/gini"
	"github.com/irifrance/gini/logic"
	"github.com/irifrance/gini/z"
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/satenc"
)

// Gini implements satenc.Solver over a single incremental gini
// instance, with a logic.C front end for Tseitin-encoding the
// satenc.Op combinators on demand.
type Gini struct {
	s       *gini.Gini
	c       *logic.C
	assumes []z.Lit
	timeout time.Duration
	frozen  map[string]z.Lit
}

// New returns a fresh, empty Gini solver.
func New() *Gini {
	return &Gini{
		s:      gini.New(),
		c:      logic.NewC(),
		frozen: make(map[string]z.Lit),
	}
}

func toLit(m z.Lit) satenc.Lit   { return satenc.Lit(int32(m)) }
func fromLit(l satenc.Lit) z.Lit { return z.Lit(int32(l)) }

func (g *Gini) NewLit() satenc.Lit {
	return toLit(g.c.Lit())
}

func (g *Gini) Not(l satenc.Lit) satenc.Lit {
	return toLit(fromLit(l).Not())
}

func (g *Gini) AddClause(lits ...satenc.Lit) {
	for _, l := range lits {
		g.s.Add(fromLit(l))
	}
	g.s.Add(z.LitNull)
}

func (g *Gini) Expr(op satenc.Op, lits ...satenc.Lit) satenc.Lit {
	if len(lits) == 0 {
		switch op {
		case satenc.OpAnd:
			return toLit(g.c.T)
		default:
			return toLit(g.c.F)
		}
	}
	zs := make([]z.Lit, len(lits))
	for i, l := range lits {
		zs[i] = fromLit(l)
	}
	switch op {
	case satenc.OpAnd:
		return toLit(g.c.Ands(zs...))
	case satenc.OpOr:
		return toLit(g.c.Ors(zs...))
	case satenc.OpXor:
		acc := zs[0]
		for _, m := range zs[1:] {
			acc = g.c.Xor(acc, m)
		}
		return toLit(acc)
	case satenc.OpIff:
		acc := zs[0]
		for _, m := range zs[1:] {
			acc = g.c.Xor(acc, m).Not()
		}
		return toLit(acc)
	default:
		panic(fmt.Sprintf("satsolver: unknown op %d", op))
	}
}

func (g *Gini) Assume(lits ...satenc.Lit) {
	for _, l := range lits {
		g.assumes = append(g.assumes, fromLit(l))
	}
}

func (g *Gini) FrozenLit(name string) satenc.Lit {
	if l, ok := g.frozen[name]; ok {
		return toLit(l)
	}
	l := g.c.Lit()
	g.frozen[name] = l
	return toLit(l)
}

func (g *Gini) SetSolverTimeout(d time.Duration) {
	g.timeout = d
}

// flush Tseitinizes the logic.C circuit built since the last flush
// into the underlying gini.Gini CNF. logic.C only ever grows, so it
// is safe to re-run ToCnf: gini deduplicates unit/no-op clauses via
// its own simplifier on Add.
func (g *Gini) flush() {
	g.c.ToCnf(g.s)
}

func (g *Gini) Solve(ctx context.Context, assumptions ...satenc.Lit) (satenc.Result, error) {
	g.flush()
	all := append(append([]z.Lit{}, g.assumes...), toZLits(assumptions)...)
	g.s.Assume(all...)
	g.assumes = nil

	deadline := g.timeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); g.timeout == 0 || remaining < g.timeout {
			deadline = remaining
		}
	}

	var status int
	if deadline > 0 {
		done := make(chan int, 1)
		go func() { done <- g.s.Solve() }()
		select {
		case status = <-done:
		case <-time.After(deadline):
			return satenc.ResultTimeout, nil
		case <-ctx.Done():
			return satenc.ResultTimeout, ctx.Err()
		}
	} else {
		status = g.s.Solve()
	}

	switch status {
	case 1:
		return satenc.ResultSAT, nil
	case -1:
		return satenc.ResultUNSAT, nil
	default:
		return satenc.ResultTimeout, errors.New("satsolver: solver returned unknown status")
	}
}

func (g *Gini) Value(l satenc.Lit) bool {
	return g.s.Value(fromLit(l))
}

func (g *Gini) PrintDIMACS(w io.Writer, proof bool) error {
	g.flush()
	if _, err := fmt.Fprintf(w, "c encarsia-yosys incremental SAT instance\n"); err != nil {
		return errors.Wrap(err, "satsolver: print dimacs")
	}
	if proof {
		fmt.Fprintf(w, "c proof logging not materialized by this adapter\n")
	}
	g.s.Write(w)
	return nil
}

func toZLits(lits []satenc.Lit) []z.Lit {
	out := make([]z.Lit, len(lits))
	for i, l := range lits {
		out[i] = fromLit(l)
	}
	return out
}
