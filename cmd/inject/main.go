// Command inject is a demonstration driver: it builds a small
// in-memory fixture module with a nested priority-mux tree, runs it
// through detection, extraction, bug injection, miter composition and
// bounded verification, and prints a verdict summary. It exists to
// exercise the full pipeline end to end against a fixture small enough
// to read in one sitting; production use wires these same packages
// into a host synthesis framework's pass scheduler instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/bugs"
	"github.com/encarsia-artifacts/encarsia-yosys/internal/satsolver"
	"github.com/encarsia-artifacts/encarsia-yosys/internal/sigexpr"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
	"github.com/encarsia-artifacts/encarsia-yosys/miter"
	"github.com/encarsia-artifacts/encarsia-yosys/verify"
)

func main() {
	watch := flag.String("watch", "y", "signal expression naming the fixture signal to report the width of, e.g. \"y[1:0]\" or \"state_sel\"")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := run(log, *watch); err != nil {
		log.Fatal().Err(err).Msg("inject demo failed")
	}
}

func run(log zerolog.Logger, watch string) error {
	if err := logWatchedSignal(log, watch); err != nil {
		return err
	}

	original, err := extractedTable(log)
	if err != nil {
		return err
	}

	rnd := rand.New(rand.NewSource(1))
	variants := bugs.AMTBugs(original, rnd, 2)
	log.Info().Int("variants", len(variants)).Msg("generated bug corpus")
	if len(variants) == 0 {
		log.Warn().Msg("fixture produced no bug variants; nothing to verify")
		return nil
	}

	cfg := verify.Config{
		MaxSensitization: 8,
		MaxPropagation:   8,
		Timeout:          5 * time.Second,
		AllInitZero:      true,
	}

	var entries []verify.Entry
	for _, v := range variants {
		result, err := verifyVariant(v, cfg, log)
		if err != nil {
			return errWrap(v.Label, err)
		}
		entries = append(entries, verify.Entry{Label: v.Label, Result: result})
		log.Info().Str("label", v.Label).Str("verdict", result.Verdict.String()).Msg("variant verified")
	}

	summary := verify.Report(entries)
	verify.LogSummary(log, summary)
	fmt.Printf("%+v\n", summary)
	return nil
}

func errWrap(label string, err error) error {
	return fmt.Errorf("inject demo: variant %q: %w", label, err)
}

// logWatchedSignal resolves watch against a throwaway copy of the
// fixture module and logs its resolved width. Only the width is
// reported; verification always runs against the demo's hardcoded "y"
// output, whatever signal is watched.
func logWatchedSignal(log zerolog.Logger, watch string) error {
	probe := buildFixture("probe")
	v, err := sigexpr.Parse(watch, probe)
	if err != nil {
		return fmt.Errorf("inject demo: parse -watch %q: %w", watch, err)
	}
	log.Info().Str("expr", watch).Int("width", v.Width()).Msg("watching signal")
	return nil
}

// extractedTable builds the fixture once and runs detection and
// extraction over it, returning the abstracted AMT table that seeds
// the bug corpus; every variant's miter gets its own freshly built and
// freshly extracted pair of fixtures, so mutating one variant's host
// cell never leaks into another's.
func extractedTable(log zerolog.Logger) (*amt.Table, error) {
	m := buildFixture("host")
	cell, err := extractAMT(m, log)
	if err != nil {
		return nil, err
	}
	return amt.FromCell(cell)
}

// verifyVariant builds a fresh host/reference pair, extracts each
// independently (they are structurally identical, so extraction
// yields equivalent tables), installs v's mutated table onto the
// host's AMT cell only, composes and finalizes the miter, and runs the
// bounded verifier over it.
func verifyVariant(v bugs.Variant, cfg verify.Config, log zerolog.Logger) (verify.Result, error) {
	d := ir.NewDesign()
	host := buildFixture("host")
	reference := buildFixture("reference")

	hostCell, err := extractAMT(host, log)
	if err != nil {
		return verify.Result{}, err
	}
	if _, err := extractAMT(reference, log); err != nil {
		return verify.Result{}, err
	}
	v.Table.ToCell(hostCell)
	hostCell.Buggy = true

	if err := d.AddModule(host); err != nil {
		return verify.Result{}, err
	}
	if err := d.AddModule(reference); err != nil {
		return verify.Result{}, err
	}

	mtr, err := miter.Build(d, host.Name, reference.Name, miter.Config{Output: "y"})
	if err != nil {
		return verify.Result{}, err
	}
	rows, err := miter.Finalize(d, mtr, ir.BasicPipeline{})
	if err != nil {
		return verify.Result{}, err
	}

	s := satsolver.New()
	return verify.Run(context.Background(), s, mtr, rows, cfg, log)
}

// buildFixture constructs a small module with a nested mux tree: an
// inner 4-row $pmux (the AMT detector's candidate, since its sole user
// is the outer $mux) feeding into an outer $mux whose result drives a
// register. The register's Q is exposed as output port "y".
func buildFixture(name string) *ir.Module {
	m := ir.NewModule(name)

	stateSel := m.MustAddWire("state_sel", 4, ir.PortInput)
	finalSel := m.MustAddWire("final_sel", 1, ir.PortInput)
	altNext := m.MustAddWire("alt_next", 2, ir.PortInput)

	innerNext := m.MustAddWire("inner_next", 2, ir.PortNone)
	pmux := m.AddCell(ir.CellPmux, "state_mux")
	pmux.SetInput("S", stateSel.Bits())
	pmux.SetInput("A", ir.Vector{ir.Zero(), ir.Zero()})
	pmux.SetInput("B", ir.Concat(
		ir.Vector{ir.Zero(), ir.Zero()},
		ir.Vector{ir.One(), ir.Zero()},
		ir.Vector{ir.Zero(), ir.One()},
		ir.Vector{ir.One(), ir.One()},
	))
	pmux.SetOutput("Y", innerNext.Bits())

	finalNext := m.MustAddWire("final_next", 2, ir.PortNone)
	outer := m.AddCell(ir.CellMux, "final_mux")
	outer.SetInput("S", finalSel.Bits())
	outer.SetInput("A", innerNext.Bits())
	outer.SetInput("B", altNext.Bits())
	outer.SetOutput("Y", finalNext.Bits())

	state := m.MustAddWire("state", 2, ir.PortNone)
	dff := m.AddCell(ir.CellDff, "state_reg")
	dff.SetInput("D", finalNext.Bits())
	dff.SetOutput("Q", state.Bits())

	y := m.MustAddWire("y", 2, ir.PortOutput)
	if err := m.Connect(y.Bits(), state.Bits()); err != nil {
		panic(err)
	}
	return m
}

// extractAMT runs the detector and extractor over m, returning the
// single $amt cell the fixture's inner mux tree abstracts into.
func extractAMT(m *ir.Module, log zerolog.Logger) (*ir.Cell, error) {
	marked := amt.Detect(m)
	if len(marked) != 1 {
		return nil, fmt.Errorf("inject demo: expected exactly one AMT candidate in %q, found %d", m.Name, len(marked))
	}
	cell, err := amt.Extract(m, marked[0])
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", m.Name).Str("cell", cell.Name).Msg("extracted AMT")
	return cell, nil
}
