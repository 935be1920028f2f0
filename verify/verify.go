// Package verify implements the bounded equivalence checker: a
// two-phase state machine over a host/reference miter that first
// searches bounded time for an input trace sensitizing an injected bug
// (the host and reference outputs diverge while some buggy AMT row is
// selected), then, having locked that witness trace, searches further
// bounded time for the divergence to reach an observable signal.
package verify

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
	"github.com/encarsia-artifacts/encarsia-yosys/miter"
	"github.com/encarsia-artifacts/encarsia-yosys/satenc"
)

// Verdict is the terminal outcome of one bounded run.
type Verdict int

const (
	NotSensitized Verdict = iota
	NotPropagated
	Propagated
	Timeout
)

func (v Verdict) String() string {
	switch v {
	case NotSensitized:
		return "not_sensitized"
	case NotPropagated:
		return "not_propagated"
	case Propagated:
		return "propagated"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Config bounds one run.
type Config struct {
	// MaxSensitization is the last time step the sensitization phase
	// tries before giving up.
	MaxSensitization int
	// MaxPropagation is how many further time steps past the
	// sensitization witness the propagation phase tries.
	MaxPropagation int
	// Timeout bounds every individual Solve call.
	Timeout time.Duration
	// AllInitDefined and AllInitZero constrain every register's t=1
	// value, per satenc.Encoder.SetInitState.
	AllInitDefined bool
	AllInitZero    bool
	InitOverrides  map[ir.WireID]ir.Vector
}

// Result is one run's outcome.
type Result struct {
	Verdict      Verdict
	Sensitized   int // the t the sensitization witness locked at, 0 if never
	PropagatedAt int // the t' propagation held at, 0 if never checked
}

// Run drives the verifier over m, a finalized miter module (host and
// reference composed, AMTs expanded to pmux, flattened). rows names
// the AMT rows ExpandAMTToPmux returned; pass nil for an F2
// (driver-mix-up) miter, which has no AMT rows and whose sensitization
// predicate degrades to plain output divergence.
func Run(ctx context.Context, s satenc.Solver, m *ir.Module, rows []miter.RowMatch, cfg Config, log zerolog.Logger) (Result, error) {
	s.SetSolverTimeout(cfg.Timeout)
	enc := satenc.NewEncoder(s, m, log)

	hostOut, ok := m.WireByName("host_output")
	if !ok {
		return Result{}, ir.NewError(ir.KindSetup, "verify", errors.New("miter missing host_output"))
	}
	refOut, ok := m.WireByName("reference_output")
	if !ok {
		return Result{}, ir.NewError(ir.KindSetup, "verify", errors.New("miter missing reference_output"))
	}
	hostObs, hasHostObs := m.WireByName("host_observables")
	refObs, hasRefObs := m.WireByName("reference_observables")
	useObservables := hasHostObs && hasRefObs

	lastImported := 0
	stepTo := func(t int) error {
		for tt := lastImported + 1; tt <= t; tt++ {
			if tt == 1 {
				if err := enc.SetInitState(1, cfg.AllInitDefined, cfg.AllInitZero, cfg.InitOverrides); err != nil {
					return err
				}
			}
			for _, c := range m.Cells() {
				if err := enc.ImportCell(c, tt); err != nil {
					return err
				}
			}
		}
		if t > lastImported {
			lastImported = t
		}
		return nil
	}

	for t := 1; t <= cfg.MaxSensitization; t++ {
		if err := stepTo(t); err != nil {
			return Result{}, err
		}
		pred, err := sensitizationPredicate(enc, s, rows, hostOut.Bits(), refOut.Bits(), t)
		if err != nil {
			return Result{}, err
		}
		res, err := s.Solve(ctx, pred)
		if err != nil {
			return Result{}, ir.NewError(ir.KindSolver, "verify", err)
		}
		switch res {
		case satenc.ResultTimeout:
			return Result{Verdict: Timeout}, nil
		case satenc.ResultUNSAT:
			continue
		case satenc.ResultSAT:
			log.Info().Int("t", t).Msg("sensitization witness found")
			lockWitness(s, enc.LockLiterals(t))
			return runPropagation(ctx, s, enc, t, cfg, hostOut, refOut, hostObs, refObs, useObservables, stepTo, log)
		}
	}
	return Result{Verdict: NotSensitized}, nil
}

// sensitizationPredicate returns a literal true iff some buggy AMT row
// matched at t while the host and reference outputs diverge at t.
// With no rows (the F2 family has no AMT concept), it reduces to plain
// output divergence.
func sensitizationPredicate(enc *satenc.Encoder, s satenc.Solver, rows []miter.RowMatch, hostOut, refOut ir.Vector, t int) (satenc.Lit, error) {
	eq, err := enc.SignalsEq(hostOut, refOut, t, t)
	if err != nil {
		return satenc.LitNull, err
	}
	diverge := s.Not(eq)
	if len(rows) == 0 {
		return diverge, nil
	}
	var matched []satenc.Lit
	for _, r := range rows {
		if !r.Buggy {
			continue
		}
		ml := enc.ImportSig(ir.Vector{r.Match}, t)
		matched = append(matched, ml[0])
	}
	if len(matched) == 0 {
		return diverge, nil
	}
	return s.Expr(satenc.OpAnd, s.Expr(satenc.OpOr, matched...), diverge), nil
}

// lockWitness asserts every literal's model value as a permanent unit
// clause, pinning the solver to the exact trace the last SAT result
// witnessed so later solves only explore continuations of it.
func lockWitness(s satenc.Solver, lits []satenc.Lit) {
	for _, l := range lits {
		if s.Value(l) {
			s.AddClause(l)
		} else {
			s.AddClause(s.Not(l))
		}
	}
}

func runPropagation(ctx context.Context, s satenc.Solver, enc *satenc.Encoder, sensT int, cfg Config, hostOut, refOut, hostObs, refObs *ir.Wire, useObservables bool, stepTo func(int) error, log zerolog.Logger) (Result, error) {
	limit := sensT + cfg.MaxPropagation
	for tp := sensT; tp <= limit; tp++ {
		if err := stepTo(tp); err != nil {
			return Result{}, err
		}
		var a, b ir.Vector
		if useObservables {
			a, b = hostObs.Bits(), refObs.Bits()
		} else {
			a, b = hostOut.Bits(), refOut.Bits()
		}
		eq, err := enc.SignalsEq(a, b, tp, tp)
		if err != nil {
			return Result{}, err
		}
		pred := s.Not(eq)
		res, err := s.Solve(ctx, pred)
		if err != nil {
			return Result{}, ir.NewError(ir.KindSolver, "verify", err)
		}
		switch res {
		case satenc.ResultTimeout:
			return Result{Verdict: Timeout, Sensitized: sensT, PropagatedAt: tp}, nil
		case satenc.ResultSAT:
			log.Info().Int("sensitized_t", sensT).Int("propagated_t", tp).Msg("propagation witness found")
			return Result{Verdict: Propagated, Sensitized: sensT, PropagatedAt: tp}, nil
		case satenc.ResultUNSAT:
			continue
		}
	}
	return Result{Verdict: NotPropagated, Sensitized: sensT}, nil
}
