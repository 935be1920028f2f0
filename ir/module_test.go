package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func TestAddWireRejectsZeroWidth(t *testing.T) {
	m := ir.NewModule("m")
	_, err := m.AddWire("a", 0, ir.PortNone)
	require.Error(t, err)
}

func TestAddWireRejectsDuplicateName(t *testing.T) {
	m := ir.NewModule("m")
	m.MustAddWire("a", 1, ir.PortNone)
	_, err := m.AddWire("a", 1, ir.PortNone)
	require.Error(t, err)
}

func TestAddWireTracksOrderedPortsButNotInternalWires(t *testing.T) {
	m := ir.NewModule("m")
	m.MustAddWire("internal", 1, ir.PortNone)
	m.MustAddWire("in", 1, ir.PortInput)
	m.MustAddWire("out", 1, ir.PortOutput)
	require.Equal(t, []string{"in", "out"}, m.Ports())
}

func TestWireByNameAndIsPort(t *testing.T) {
	m := ir.NewModule("m")
	m.MustAddWire("a", 2, ir.PortInput)

	w, ok := m.WireByName("a")
	require.True(t, ok)
	require.True(t, w.IsPort())
	require.Equal(t, 2, w.Width)

	_, ok = m.WireByName("nope")
	require.False(t, ok)
}

func TestWireBitsAreLSBFirst(t *testing.T) {
	m := ir.NewModule("m")
	w := m.MustAddWire("a", 3, ir.PortNone)
	bits := w.Bits()
	require.Len(t, bits, 3)
	for i, b := range bits {
		require.Equal(t, ir.BitWire, b.Kind)
		require.Equal(t, w.ID, b.Wire)
		require.Equal(t, i, b.Offset)
	}
}

func TestWiresAndCellsAreOrderedByID(t *testing.T) {
	m := ir.NewModule("m")
	m.MustAddWire("a", 1, ir.PortNone)
	m.MustAddWire("b", 1, ir.PortNone)
	m.MustAddWire("c", 1, ir.PortNone)

	m.AddCell(ir.CellAnd, "g1")
	m.AddCell(ir.CellOr, "g2")

	wires := m.Wires()
	require.Len(t, wires, 3)
	for i, w := range wires {
		require.Equal(t, ir.WireID(i), w.ID)
	}

	cells := m.Cells()
	require.Len(t, cells, 2)
	require.Equal(t, "g1", cells[0].Name)
	require.Equal(t, "g2", cells[1].Name)
}

func TestDeleteCellRemovesItFromCells(t *testing.T) {
	m := ir.NewModule("m")
	c := m.AddCell(ir.CellNot, "g")
	require.Len(t, m.Cells(), 1)

	m.DeleteCell(c.ID)
	require.Len(t, m.Cells(), 0)
	require.Nil(t, m.Cell(c.ID))
}

func TestConnectRejectsWidthMismatch(t *testing.T) {
	m := ir.NewModule("m")
	a := m.MustAddWire("a", 2, ir.PortNone)
	b := m.MustAddWire("b", 1, ir.PortNone)
	err := m.Connect(a.Bits(), b.Bits())
	require.Error(t, err)
}

func TestDisconnectOnlyRemovesMatchingTargets(t *testing.T) {
	m := ir.NewModule("m")
	a := m.MustAddWire("a", 1, ir.PortNone)
	b := m.MustAddWire("b", 1, ir.PortNone)
	c := m.MustAddWire("c", 1, ir.PortNone)

	require.NoError(t, m.Connect(a.Bits(), ir.Vector{ir.One()}))
	require.NoError(t, m.Connect(b.Bits(), ir.Vector{ir.Zero()}))
	require.Len(t, m.Connections(), 2)

	m.Disconnect(a.Bits())
	conns := m.Connections()
	require.Len(t, conns, 1)
	require.True(t, conns[0].Target.Equal(b.Bits()))
	_ = c
}

func TestCellInputOutputAccessors(t *testing.T) {
	m := ir.NewModule("m")
	a := m.MustAddWire("a", 1, ir.PortInput)
	y := m.MustAddWire("y", 1, ir.PortOutput)
	c := m.AddCell(ir.CellNot, "g")
	c.SetInput("A", a.Bits())
	c.SetOutput("Y", y.Bits())

	require.True(t, c.Input("A").Equal(a.Bits()))
	require.True(t, c.Output("Y").Equal(y.Bits()))
	require.Nil(t, c.Input("B"))
}
