package amt_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// buildNotDriverFixture wires a one-bit selector ("sel") to a $not cell
// fed by a one-bit primary input ("in"), so Expand has exactly one
// round's worth of work: after pulling "in" into the selector, the
// driver's own inputs are already covered and findCandidates must not
// re-select it.
func buildNotDriverFixture(t *testing.T) (*ir.Module, *amt.Table) {
	t.Helper()
	m := ir.NewModule("m")
	in := m.MustAddWire("in", 1, ir.PortInput)
	sel := m.MustAddWire("sel", 1, ir.PortNone)
	not := m.AddCell(ir.CellNot, "not1")
	not.SetInput("A", in.Bits())
	not.SetOutput("Y", sel.Bits())

	tbl := &amt.Table{
		S: sel.Bits(),
		Y: ir.Vector{ir.WireBit(99, 0)},
		Selections: []amt.Selection{
			{Pattern: ir.Vector{ir.Zero()}, Output: ir.Vector{ir.Zero()}},
			{Pattern: ir.Vector{ir.One()}, Output: ir.Vector{ir.One()}},
		},
	}
	return m, tbl
}

func TestExpandPullsInDriverInputOnce(t *testing.T) {
	m, tbl := buildNotDriverFixture(t)
	added, err := amt.Expand(m, tbl)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	require.Equal(t, 2, tbl.K())
	require.Len(t, tbl.Selections, 2)

	// sel=0 only matches when in=1 (not(1)=0); sel=1 only matches when
	// in=0 (not(0)=1). Both original rows must have survived with the
	// new bit constrained accordingly.
	for _, row := range tbl.Selections {
		require.Len(t, row.Pattern, 2)
		selBit, inBit := row.Pattern[0], row.Pattern[1]
		if selBit == ir.Zero() {
			require.Equal(t, ir.One(), inBit)
		} else {
			require.Equal(t, ir.Zero(), inBit)
		}
	}
}

func TestExpandIsIdempotentOnceDriverFullyPulledIn(t *testing.T) {
	m, tbl := buildNotDriverFixture(t)
	_, err := amt.Expand(m, tbl)
	require.NoError(t, err)

	// A second call must find no further candidates: "in" is already
	// part of S and the not cell's only input is "in" itself.
	added, err := amt.Expand(m, tbl)
	require.NoError(t, err)
	require.Equal(t, 0, added)
}

func TestExpandLeavesTableUnchangedWithNoCandidates(t *testing.T) {
	m := ir.NewModule("m")
	sel := m.MustAddWire("sel", 1, ir.PortInput) // primary input, no driver
	tbl := &amt.Table{
		S: sel.Bits(),
		Y: ir.Vector{ir.WireBit(99, 0)},
		Selections: []amt.Selection{
			{Pattern: ir.Vector{ir.Zero()}, Output: ir.Vector{ir.Zero()}},
			{Pattern: ir.Vector{ir.One()}, Output: ir.Vector{ir.One()}},
		},
	}
	added, err := amt.Expand(m, tbl)
	require.NoError(t, err)
	require.Equal(t, 0, added)
	require.Equal(t, 1, tbl.K())
}

func TestExpandRejectsOverWideDriver(t *testing.T) {
	m := ir.NewModule("m")
	a := m.MustAddWire("a", 5, ir.PortInput)
	b := m.MustAddWire("b", 5, ir.PortInput)
	sel := m.MustAddWire("sel", 1, ir.PortNone)
	eq := m.AddCell(ir.CellEq, "eq1")
	eq.SetInput("A", a.Bits())
	eq.SetInput("B", b.Bits())
	eq.SetOutput("Y", sel.Bits())

	// combined input width 10 > amt.MaxDriverWidth, so the driver is
	// never selected as a candidate at all.
	tbl := &amt.Table{
		S: sel.Bits(),
		Y: ir.Vector{ir.WireBit(99, 0)},
		Selections: []amt.Selection{
			{Pattern: ir.Vector{ir.Zero()}, Output: ir.Vector{ir.Zero()}},
			{Pattern: ir.Vector{ir.One()}, Output: ir.Vector{ir.One()}},
		},
	}
	added, err := amt.Expand(m, tbl)
	require.NoError(t, err)
	require.Equal(t, 0, added)
}

func TestExpandOverflowLeavesTableUnmodified(t *testing.T) {
	m := ir.NewModule("m")
	in := m.MustAddWire("in", 1, ir.PortInput)
	sel := m.MustAddWire("sel", 1, ir.PortNone)
	not := m.AddCell(ir.CellNot, "not1")
	not.SetInput("A", in.Bits())
	not.SetOutput("Y", sel.Bits())

	// $not's minimized truth table never collapses below 2 rows (in=0
	// and in=1 produce opposite outputs). A selector pattern of don't-
	// care matches both, doubling every such row on expansion; 60
	// don't-care rows cross to 120 products, over amt.MaxExpandedRows.
	origS := ir.Vector{sel.Bits()[0]}
	origSelections := make([]amt.Selection, 60)
	for i := range origSelections {
		origSelections[i] = amt.Selection{Pattern: ir.Vector{ir.Undef()}, Output: ir.Vector{ir.Zero()}}
	}
	tbl := &amt.Table{
		S:          origS.Clone(),
		Y:          ir.Vector{ir.WireBit(99, 0)},
		Selections: append([]amt.Selection{}, origSelections...),
	}
	_, err := amt.Expand(m, tbl)
	require.Error(t, err)
	require.True(t, errors.Is(err, amt.ErrExpansionOverflow))
	var ierr *ir.Error
	require.True(t, errors.As(err, &ierr))
	require.Equal(t, ir.KindCapacity, ierr.Kind)
	require.Equal(t, origS, tbl.S)
	require.Equal(t, origSelections, tbl.Selections)
}
