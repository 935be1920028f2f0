package ir_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func TestWriteRTLILIncludesPortsWiresAndCells(t *testing.T) {
	m := ir.NewModule("top")
	a := m.MustAddWire("a", 1, ir.PortInput)
	y := m.MustAddWire("y", 1, ir.PortOutput)
	m.MustAddWire("mid", 1, ir.PortNone)
	c := m.AddCell(ir.CellNot, "g1")
	c.SetInput("A", a.Bits())
	c.SetOutput("Y", y.Bits())

	var buf bytes.Buffer
	require.NoError(t, ir.WriteRTLIL(&buf, m))

	out := buf.String()
	require.Contains(t, out, "module top")
	require.Contains(t, out, "wire width 1 input a")
	require.Contains(t, out, "wire width 1 output y")
	require.Contains(t, out, "wire width 1 mid")
	require.Contains(t, out, "cell $not g1")
	require.Contains(t, out, "connect A")
	require.Contains(t, out, "connect Y")
	require.Contains(t, out, "end")
}

func TestWriteRTLILIncludesStandaloneConnections(t *testing.T) {
	m := ir.NewModule("top")
	a := m.MustAddWire("a", 1, ir.PortInput)
	b := m.MustAddWire("b", 1, ir.PortNone)
	require.NoError(t, m.Connect(b.Bits(), a.Bits()))

	var buf bytes.Buffer
	require.NoError(t, ir.WriteRTLIL(&buf, m))
	require.Contains(t, buf.String(), "connect")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteRTLILPropagatesWriteErrors(t *testing.T) {
	m := ir.NewModule("top")
	err := ir.WriteRTLIL(failingWriter{}, m)
	require.Error(t, err)
}
