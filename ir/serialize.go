package ir

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// WriteRTLIL serializes m to w in a minimal, RTLIL-flavored textual
// form: enough for this module's own tests and bug-corpus dumps, but
// not a claim of byte compatibility with the real Yosys RTLIL grammar.
// This module has no reader for the format.
func WriteRTLIL(w io.Writer, m *Module) error {
	bw := &errWriter{w: w}
	fmt.Fprintf(bw, "module %s\n", m.Name)
	for _, port := range m.ports {
		wr, _ := m.WireByName(port)
		fmt.Fprintf(bw, "  wire width %d %s %s\n", wr.Width, portDirString(wr.Port), wr.Name)
	}
	for _, wr := range m.Wires() {
		if wr.IsPort() {
			continue
		}
		fmt.Fprintf(bw, "  wire width %d %s\n", wr.Width, wr.Name)
	}
	for _, c := range m.Cells() {
		fmt.Fprintf(bw, "  cell %s %s\n", c.Type, c.Name)
		for _, port := range sortedKeys(c.Inputs) {
			fmt.Fprintf(bw, "    connect %s %s\n", port, c.Inputs[port])
		}
		for _, port := range sortedKeys(c.Outputs) {
			fmt.Fprintf(bw, "    connect %s %s\n", port, c.Outputs[port])
		}
		for _, k := range sortedParamKeys(c.Params) {
			fmt.Fprintf(bw, "    parameter %s %s\n", k, c.Params[k])
		}
		for k, v := range c.Attrs {
			fmt.Fprintf(bw, "    attribute %s %q\n", k, v)
		}
	}
	for _, conn := range m.conns {
		fmt.Fprintf(bw, "  connect %s %s\n", conn.Target, conn.Driver)
	}
	fmt.Fprintln(bw, "end")
	return bw.err
}

func portDirString(p PortDir) string {
	switch p {
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	case PortInOut:
		return "inout"
	default:
		return "internal"
	}
}

func sortedKeys(m map[string]Vector) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedParamKeys(m map[string]Vector) []string {
	return sortedKeys(m)
}

// errWriter accumulates the first write error, letting WriteRTLIL avoid
// checking every Fprintf call individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = errors.Wrap(err, "write rtlil")
	}
	return n, err
}
