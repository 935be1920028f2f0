package satenc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func TestEncodeDffCarriesDAcrossOneTimeStep(t *testing.T) {
	m := ir.NewModule("m")
	d := m.MustAddWire("d", 1, ir.PortInput)
	q := m.MustAddWire("q", 1, ir.PortNone)
	cell := m.AddCell(ir.CellDff, "reg")
	cell.SetInput("D", d.Bits())
	cell.SetOutput("Q", q.Bits())

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))
	require.NoError(t, e.ImportCell(cell, 2))

	dl1 := e.ImportSig(d.Bits(), 1)[0]
	ql2 := e.ImportSig(q.Bits(), 2)[0]

	requireSAT(t, e, lit(e, dl1, true))
	require.True(t, e.Solver.Value(ql2))

	requireSAT(t, e, lit(e, dl1, false))
	require.False(t, e.Solver.Value(ql2))
}

func TestEncodeDffeHoldsQWhenDisabled(t *testing.T) {
	m := ir.NewModule("m")
	d := m.MustAddWire("d", 1, ir.PortInput)
	en := m.MustAddWire("en", 1, ir.PortInput)
	q := m.MustAddWire("q", 1, ir.PortNone)
	cell := m.AddCell(ir.CellDffe, "reg")
	cell.SetInput("D", d.Bits())
	cell.SetInput("EN", en.Bits())
	cell.SetOutput("Q", q.Bits())

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))
	require.NoError(t, e.ImportCell(cell, 2))

	dl1 := e.ImportSig(d.Bits(), 1)[0]
	enl1 := e.ImportSig(en.Bits(), 1)[0]
	ql1 := e.ImportSig(q.Bits(), 1)[0]
	ql2 := e.ImportSig(q.Bits(), 2)[0]

	// EN low at t=1: Q holds its t=1 value into t=2 regardless of D.
	requireSAT(t, e, lit(e, enl1, false), lit(e, dl1, true), lit(e, ql1, false))
	require.False(t, e.Solver.Value(ql2))
}

func TestEncodeDffeUpdatesQWhenEnabled(t *testing.T) {
	m := ir.NewModule("m")
	d := m.MustAddWire("d", 1, ir.PortInput)
	en := m.MustAddWire("en", 1, ir.PortInput)
	q := m.MustAddWire("q", 1, ir.PortNone)
	cell := m.AddCell(ir.CellDffe, "reg")
	cell.SetInput("D", d.Bits())
	cell.SetInput("EN", en.Bits())
	cell.SetOutput("Q", q.Bits())

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))
	require.NoError(t, e.ImportCell(cell, 2))

	dl1 := e.ImportSig(d.Bits(), 1)[0]
	enl1 := e.ImportSig(en.Bits(), 1)[0]
	ql1 := e.ImportSig(q.Bits(), 1)[0]
	ql2 := e.ImportSig(q.Bits(), 2)[0]

	requireSAT(t, e, lit(e, enl1, true), lit(e, dl1, true), lit(e, ql1, false))
	require.True(t, e.Solver.Value(ql2))
}

func TestEncodeDffsrClrTakesPriorityOverSet(t *testing.T) {
	m := ir.NewModule("m")
	d := m.MustAddWire("d", 1, ir.PortInput)
	set := m.MustAddWire("set", 1, ir.PortInput)
	clr := m.MustAddWire("clr", 1, ir.PortInput)
	q := m.MustAddWire("q", 1, ir.PortNone)
	cell := m.AddCell(ir.CellDffsr, "reg")
	cell.SetInput("D", d.Bits())
	cell.SetInput("SET", set.Bits())
	cell.SetInput("CLR", clr.Bits())
	cell.SetOutput("Q", q.Bits())

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))
	require.NoError(t, e.ImportCell(cell, 2))

	setl1 := e.ImportSig(set.Bits(), 1)[0]
	clrl1 := e.ImportSig(clr.Bits(), 1)[0]
	ql2 := e.ImportSig(q.Bits(), 2)[0]

	requireSAT(t, e, lit(e, setl1, true), lit(e, clrl1, true))
	require.False(t, e.Solver.Value(ql2))
}

func TestEncodeAdffAsynchronousResetOverridesD(t *testing.T) {
	m := ir.NewModule("m")
	d := m.MustAddWire("d", 1, ir.PortInput)
	arst := m.MustAddWire("arst", 1, ir.PortInput)
	q := m.MustAddWire("q", 1, ir.PortNone)
	cell := m.AddCell(ir.CellAdff, "reg")
	cell.SetInput("D", d.Bits())
	cell.SetInput("ARST", arst.Bits())
	cell.SetOutput("Q", q.Bits())
	cell.Params["ARST_VALUE"] = ir.Vector{ir.Zero()}

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))
	require.NoError(t, e.ImportCell(cell, 2))

	dl1 := e.ImportSig(d.Bits(), 1)[0]
	arstl2 := e.ImportSig(arst.Bits(), 2)[0]
	ql2 := e.ImportSig(q.Bits(), 2)[0]

	requireSAT(t, e, lit(e, arstl2, true), lit(e, dl1, true))
	require.False(t, e.Solver.Value(ql2))
}

func TestEncodeDlatchPassesThroughWhileEnabled(t *testing.T) {
	m := ir.NewModule("m")
	d := m.MustAddWire("d", 1, ir.PortInput)
	en := m.MustAddWire("en", 1, ir.PortInput)
	q := m.MustAddWire("q", 1, ir.PortNone)
	cell := m.AddCell(ir.CellDlatch, "latch")
	cell.SetInput("D", d.Bits())
	cell.SetInput("EN", en.Bits())
	cell.SetOutput("Q", q.Bits())

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))

	dl := e.ImportSig(d.Bits(), 1)[0]
	enl := e.ImportSig(en.Bits(), 1)[0]
	ql := e.ImportSig(q.Bits(), 1)[0]

	requireSAT(t, e, lit(e, enl, true), lit(e, dl, true))
	require.True(t, e.Solver.Value(ql))
}

func TestEncodeAMTFirstMatchingRowWins(t *testing.T) {
	m := ir.NewModule("m")
	s := m.MustAddWire("s", 2, ir.PortInput)
	a := m.MustAddWire("a", 2, ir.PortInput) // two 1-bit rows
	y := m.MustAddWire("y", 1, ir.PortOutput)
	cell := m.AddCell(ir.CellAMT, "fsm")
	cell.SetInput("S", s.Bits())
	cell.SetInput("A", a.Bits())
	cell.SetOutput("Y", y.Bits())
	// Row 0: S[0]=1, don't care S[1]. Row 1: all don't care.
	cell.Params["STATE_TABLE"] = amt.EncodeStateTable([]amt.Selection{
		{Pattern: ir.Vector{ir.One(), ir.Undef()}},
		{Pattern: ir.Vector{ir.Undef(), ir.Undef()}},
	}, 2)

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))

	sl := e.ImportSig(s.Bits(), 1)
	al := e.ImportSig(a.Bits(), 1)
	yl := e.ImportSig(y.Bits(), 1)[0]

	// S[0]=1 matches row 0; row 0's A value (a[0]) must drive Y even
	// though row 1 (always-matching) would also fire.
	requireSAT(t, e, lit(e, sl[0], true), lit(e, sl[1], false), lit(e, al[0], false), lit(e, al[1], true))
	require.False(t, e.Solver.Value(yl))
}

func TestEncodeAMTFirstMatchingRowWinsOverAnAlwaysMatchingDefault(t *testing.T) {
	m := ir.NewModule("m")
	s := m.MustAddWire("s", 2, ir.PortInput)
	a := m.MustAddWire("a", 2, ir.PortInput)
	y := m.MustAddWire("y", 1, ir.PortOutput)
	cell := m.AddCell(ir.CellAMT, "fsm")
	cell.SetInput("S", s.Bits())
	cell.SetInput("A", a.Bits())
	cell.SetOutput("Y", y.Bits())
	cell.Params["STATE_TABLE"] = amt.EncodeStateTable([]amt.Selection{
		{Pattern: ir.Vector{ir.One(), ir.Undef()}},
		{Pattern: ir.Vector{ir.Undef(), ir.Undef()}},
	}, 2)

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))

	sl := e.ImportSig(s.Bits(), 1)
	al := e.ImportSig(a.Bits(), 1)
	yl := e.ImportSig(y.Bits(), 1)[0]

	// Row 0 matches (S[0]=1) with a[0]=1; the always-matching row 1
	// (a[1]=0) must not override it even though it also matches.
	requireSAT(t, e, lit(e, sl[0], true), lit(e, sl[1], false), lit(e, al[0], true), lit(e, al[1], false))
	require.True(t, e.Solver.Value(yl))
}

func TestEncodeAMTFallsBackToLaterRowWhenEarlierDoesNotMatch(t *testing.T) {
	m := ir.NewModule("m")
	s := m.MustAddWire("s", 2, ir.PortInput)
	a := m.MustAddWire("a", 2, ir.PortInput)
	y := m.MustAddWire("y", 1, ir.PortOutput)
	cell := m.AddCell(ir.CellAMT, "fsm")
	cell.SetInput("S", s.Bits())
	cell.SetInput("A", a.Bits())
	cell.SetOutput("Y", y.Bits())
	cell.Params["STATE_TABLE"] = amt.EncodeStateTable([]amt.Selection{
		{Pattern: ir.Vector{ir.One(), ir.Undef()}},
		{Pattern: ir.Vector{ir.Undef(), ir.Undef()}},
	}, 2)

	e := newTestEncoder(m)
	e.FourValued = false
	require.NoError(t, e.ImportCell(cell, 1))

	sl := e.ImportSig(s.Bits(), 1)
	al := e.ImportSig(a.Bits(), 1)
	yl := e.ImportSig(y.Bits(), 1)[0]

	requireSAT(t, e, lit(e, sl[0], false), lit(e, sl[1], true), lit(e, al[0], false), lit(e, al[1], true))
	require.True(t, e.Solver.Value(yl))
}
