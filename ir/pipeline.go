package ir

import "github.com/pkg/errors"

// ErrExternal is returned by BasicPipeline for operations that are
// genuinely the host synthesis framework's job (generic optimization
// across arbitrary cell libraries, memory technology mapping, and so
// on). It is not a failure of this module; callers running inside the
// real host framework should use an adapter that forwards to the
// framework's pass scheduler instead of BasicPipeline.
var ErrExternal = errors.New("ir: operation requires the host synthesis framework")

// Pipeline is the capability interface this module needs from the
// surrounding synthesis framework: the named, opaque pass commands it
// invokes against the IR. Every method corresponds to one of those
// named commands.
type Pipeline interface {
	// GenericOptimize runs the framework's general-purpose logic
	// optimization over the design's selected modules.
	GenericOptimize(d *Design) error
	// CheckHierarchy verifies that top names a module that is not
	// instantiated anywhere and that every instantiated module exists.
	CheckHierarchy(d *Design, top string) error
	// Flatten inlines every cell instance of a design module into its
	// parent, leaving a hierarchy-free netlist.
	Flatten(d *Design) error
	// WidthReduce narrows buses to their observed used width.
	WidthReduce(d *Design) error
	// Peephole applies local pattern-based simplifications.
	Peephole(d *Design) error
	// MaterializeMemories lowers $mem cells to discrete registers and
	// muxes, or leaves them as $mem if the target supports them
	// natively.
	MaterializeMemories(d *Design) error
	// ClockToComb lowers every clocked cell ($dff and friends) to a
	// synchronous-reset, latch-free combinational equivalent suitable
	// for bounded unrolling.
	ClockToComb(d *Design) error
}

// BasicPipeline is a minimal, locally implemented Pipeline sufficient
// to make this module self-testable without a real host framework
// attached. Flatten and CheckHierarchy are implemented because the
// miter builder and its tests need them; the rest report ErrExternal,
// documenting that a production deployment supplies a real adapter.
type BasicPipeline struct{}

func (BasicPipeline) GenericOptimize(d *Design) error { return ErrExternal }

// CheckHierarchy checks only that top names a module of d. It does not
// check whether top is instantiated anywhere or whether every
// instantiated module exists.
func (BasicPipeline) CheckHierarchy(d *Design, top string) error {
	if _, ok := d.Module(top); !ok {
		return NewError(KindSetup, "check_hierarchy", errors.Errorf("missing top module %q", top))
	}
	return nil
}

// Flatten inlines direct sub-module instances (cells whose Type names
// another module in d) into their parent module, renaming internal
// wires to avoid collisions. It only handles one level of instancing
// per call; callers needing full recursive flattening call it
// repeatedly until no sub-instances remain, matching the host
// framework's own fixed-point pass style.
func (BasicPipeline) Flatten(d *Design) error {
	for _, m := range d.Modules() {
		if err := flattenModule(d, m); err != nil {
			return NewError(KindSetup, "flatten", err)
		}
	}
	return nil
}

func flattenModule(d *Design, m *Module) error {
	var toInline []*Cell
	for _, c := range m.Cells() {
		if _, ok := d.Module(c.Type); ok {
			toInline = append(toInline, c)
		}
	}
	for _, c := range toInline {
		sub, _ := d.Module(c.Type)
		prefix := c.Name + "$"
		rename := make(map[WireID]WireID)
		for _, w := range sub.Wires() {
			if w.IsPort() {
				continue
			}
			nw, err := m.AddWire(prefix+w.Name, w.Width, PortNone)
			if err != nil {
				return err
			}
			rename[w.ID] = nw.ID
		}
		// remap resolves bits of sub's port wires through
		// resolvePortBits and rewrites bits that refer to one of sub's
		// internal wires to the freshly allocated parent wire that
		// replaces it. Each bit is classified by the sub-module wire it
		// names before any rewriting, so a bit already resolved to a
		// parent bit is never renamed again.
		remap := func(v Vector) Vector {
			out := resolvePortBits(sub, v, c)
			for i, b := range v {
				if b.Kind == BitWire {
					if nid, ok := rename[b.Wire]; ok {
						out[i] = WireBit(nid, b.Offset)
					}
				}
			}
			return out
		}
		for _, sc := range sub.Cells() {
			nc := m.AddCell(sc.Type, prefix+sc.Name)
			for port, v := range sc.Inputs {
				nc.SetInput(port, remap(v))
			}
			for port, v := range sc.Outputs {
				nc.SetOutput(port, remap(v))
			}
			for k, v := range sc.Params {
				nc.Params[k] = v
			}
		}
		for _, conn := range sub.Connections() {
			if err := m.Connect(remap(conn.Target), remap(conn.Driver)); err != nil {
				return err
			}
		}
		m.DeleteCell(c.ID)
	}
	return nil
}

// portNameFor returns the port name of sub that owns wire id, if any.
func portNameFor(sub *Module, id WireID) string {
	w := sub.Wire(id)
	if w == nil || !w.IsPort() {
		return ""
	}
	return w.Name
}

// resolvePortBits rewrites any bit in v that belongs to one of sub's
// port wires into the corresponding bit of the instantiating cell's
// own port vector, so that the inlined cell reads/writes the parent's
// wires directly instead of the sub-module's now-discarded port wires.
func resolvePortBits(sub *Module, v Vector, inst *Cell) Vector {
	out := make(Vector, len(v))
	for i, b := range v {
		if b.Kind == BitWire {
			if name := portNameFor(sub, b.Wire); name != "" {
				if outer := inst.Inputs[name]; len(outer) > b.Offset {
					out[i] = outer[b.Offset]
					continue
				}
				if outer := inst.Outputs[name]; len(outer) > b.Offset {
					out[i] = outer[b.Offset]
					continue
				}
			}
		}
		out[i] = b
	}
	return out
}

func (BasicPipeline) WidthReduce(d *Design) error        { return ErrExternal }
func (BasicPipeline) Peephole(d *Design) error            { return ErrExternal }
func (BasicPipeline) MaterializeMemories(d *Design) error { return ErrExternal }
func (BasicPipeline) ClockToComb(d *Design) error         { return ErrExternal }
