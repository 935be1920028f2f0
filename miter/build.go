// Package miter composes a host module and a structurally
// corresponding reference module into a single miter module sharing
// inputs and exposing paired outputs for the verifier to compare.
package miter

import (
	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// Config names the signals a Build call must wire up.
type Config struct {
	// Output is the buggy signal's value for F2, or the AMT Y for F1.
	Output string
	// Select is the AMT S vector; empty for F2 bugs, which have none.
	Select string
	// Observables is a list of wire names that must exist, with equal
	// width, in both host and reference.
	Observables []string
}

// Build synthesizes a "miter" module in d containing host and
// reference instances of the given module names, sharing every host
// input and exposing
// {host,reference}_{output,select,observables} ports. It does not
// itself flatten, expand AMTs, or clock-to-comb; callers run those as
// separate post-composition steps, typically via Finalize.
func Build(d *ir.Design, hostName, refName string, cfg Config) (*ir.Module, error) {
	host, ok := d.Module(hostName)
	if !ok {
		return nil, ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("missing host module %q", hostName))
	}
	ref, ok := d.Module(refName)
	if !ok {
		return nil, ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("missing reference module %q", refName))
	}

	m := ir.NewModule("miter")
	hostCell := m.AddCell(hostName, "host")
	refCell := m.AddCell(refName, "reference")

	for _, portName := range host.Ports() {
		hw, _ := host.WireByName(portName)
		if hw.Port != ir.PortInput {
			continue
		}
		rw, ok := ref.WireByName(portName)
		if !ok || rw.Width != hw.Width {
			return nil, ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("reference module %q missing matching input %q", refName, portName))
		}
		pw, err := m.AddWire(portName, hw.Width, ir.PortInput)
		if err != nil {
			return nil, ir.NewError(ir.KindSetup, "create_miter", err)
		}
		hostCell.SetInput(portName, pw.Bits())
		refCell.SetInput(portName, pw.Bits())
	}

	if err := exposePaired(m, host, ref, hostCell, refCell, "output", cfg.Output); err != nil {
		return nil, err
	}
	if cfg.Select != "" {
		if err := exposePaired(m, host, ref, hostCell, refCell, "select", cfg.Select); err != nil {
			return nil, err
		}
	}
	if len(cfg.Observables) > 0 {
		if err := exposeObservables(m, host, ref, hostCell, refCell, cfg.Observables); err != nil {
			return nil, err
		}
	}

	if err := d.AddModule(m); err != nil {
		return nil, ir.NewError(ir.KindSetup, "create_miter", err)
	}
	return m, nil
}

// exposePaired wires host's and reference's named signal onto
// host_<label>/reference_<label> output ports of m. wireName must name
// a port of both host and reference: Flatten's resolvePortBits only
// rewrites a sub-module port reference when it finds a matching key in
// the instantiating cell's own Inputs/Outputs map, keyed by that exact
// port name, so the cell's port is set under wireName itself, not
// under the miter's own label, and an input-typed port is mirrored
// from the already-shared top-level wire rather than aliased as a cell
// output (a cell never "outputs" a value it only reads).
func exposePaired(m *ir.Module, host, ref *ir.Module, hostCell, refCell *ir.Cell, label, wireName string) error {
	hw, ok := host.WireByName(wireName)
	if !ok {
		return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("host missing %s wire %q", label, wireName))
	}
	rw, ok := ref.WireByName(wireName)
	if !ok || rw.Width != hw.Width {
		return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("reference missing matching %s wire %q", label, wireName))
	}
	if !hw.IsPort() || !rw.IsPort() {
		return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("%s wire %q must be a port of both host and reference", label, wireName))
	}
	hp, err := m.AddWire("host_"+label, hw.Width, ir.PortOutput)
	if err != nil {
		return ir.NewError(ir.KindSetup, "create_miter", err)
	}
	rp, err := m.AddWire("reference_"+label, hw.Width, ir.PortOutput)
	if err != nil {
		return ir.NewError(ir.KindSetup, "create_miter", err)
	}
	if hw.Port == ir.PortInput {
		shared, ok := m.WireByName(wireName)
		if !ok {
			return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("shared input wire %q not found in miter", wireName))
		}
		if err := m.Connect(hp.Bits(), shared.Bits()); err != nil {
			return err
		}
		return m.Connect(rp.Bits(), shared.Bits())
	}
	hostCell.SetOutput(wireName, hp.Bits())
	refCell.SetOutput(wireName, rp.Bits())
	return nil
}

// exposeObservables concatenates every named observable wire (which
// must exist, as a port, at equal width in both host and reference)
// into single host_observables/reference_observables ports, keying
// each chunk of the cell's Outputs map the same way exposePaired does.
func exposeObservables(m *ir.Module, host, ref *ir.Module, hostCell, refCell *ir.Cell, names []string) error {
	widths := make([]int, len(names))
	total := 0
	for i, name := range names {
		hw, ok := host.WireByName(name)
		if !ok {
			return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("host missing observable wire %q", name))
		}
		rw, ok := ref.WireByName(name)
		if !ok || rw.Width != hw.Width {
			return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("reference missing matching observable wire %q", name))
		}
		if !hw.IsPort() || !rw.IsPort() {
			return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("observable wire %q must be a port of both host and reference", name))
		}
		widths[i] = hw.Width
		total += hw.Width
	}
	hp, err := m.AddWire("host_observables", total, ir.PortOutput)
	if err != nil {
		return ir.NewError(ir.KindSetup, "create_miter", err)
	}
	rp, err := m.AddWire("reference_observables", total, ir.PortOutput)
	if err != nil {
		return ir.NewError(ir.KindSetup, "create_miter", err)
	}
	off := 0
	for i, name := range names {
		w := widths[i]
		hchunk := hp.Bits().Slice(off, off+w)
		rchunk := rp.Bits().Slice(off, off+w)
		hw, _ := host.WireByName(name)
		if hw.Port == ir.PortInput {
			shared, ok := m.WireByName(name)
			if !ok {
				return ir.NewError(ir.KindSetup, "create_miter", errors.Errorf("shared input wire %q not found in miter", name))
			}
			if err := m.Connect(hchunk, shared.Bits()); err != nil {
				return err
			}
			if err := m.Connect(rchunk, shared.Bits()); err != nil {
				return err
			}
		} else {
			hostCell.SetOutput(name, hchunk)
			refCell.SetOutput(name, rchunk)
		}
		off += w
	}
	return nil
}

// Finalize runs the post-composition pipeline: flatten (via pipeline,
// inlining the host/reference cell instances so any $amt cell they
// carry becomes directly visible in m), AMT-to-pmux expansion (done
// directly, it is core logic, and must run after flattening since
// $amt cells live inside the instanced sub-modules until then), and
// clock-to-comb lowering (via pipeline, used as a black box;
// ir.ErrExternal from a minimal ir.BasicPipeline is not treated as
// fatal here, since a purely combinational fixture never needs it).
// It returns every expanded AMT row's match signal, for the
// verifier's sensitization predicate.
func Finalize(d *ir.Design, m *ir.Module, pipeline ir.Pipeline) ([]RowMatch, error) {
	if err := pipeline.Flatten(d); err != nil {
		return nil, ir.NewError(ir.KindSetup, "create_miter", err)
	}
	rows, err := ExpandAMTToPmux(m)
	if err != nil {
		return nil, ir.NewError(ir.KindSetup, "create_miter", err)
	}
	if err := pipeline.ClockToComb(d); err != nil && errors.Cause(err) != ir.ErrExternal {
		return nil, ir.NewError(ir.KindSetup, "create_miter", err)
	}
	return rows, nil
}
