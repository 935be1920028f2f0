package ir

import "github.com/pkg/errors"

// Connection is a target-signal <- driver-signal pair. Target and Driver
// must have equal width.
type Connection struct {
	Target Vector
	Driver Vector
}

// Module is a named container of wires, cells and connections.
//
// Wires and cells are allocated from a dense per-module arena
// (nextWireID/nextCellID), favoring integer handles over pointer
// identity. The SigMap is cached and must be invalidated
// (sigMapDirty) on any call that changes connections, and is rebuilt
// lazily on the next lookup that needs it.
type Module struct {
	Name  string
	Attrs Attrs

	ports []string // ordered port names, input and output alike

	wires map[WireID]*Wire
	cells map[CellID]*Cell
	conns []Connection

	nextWireID WireID
	nextCellID CellID

	byName map[string]WireID

	sigMap      *SigMap
	sigMapDirty bool
}

// NewModule returns an empty module named name.
func NewModule(name string) *Module {
	return &Module{
		Name:        name,
		Attrs:       make(Attrs),
		wires:       make(map[WireID]*Wire),
		cells:       make(map[CellID]*Cell),
		byName:      make(map[string]WireID),
		sigMapDirty: true,
	}
}

// AddWire creates and returns a new wire of the given width. port
// PortNone means an internal wire; otherwise name is added to the
// module's ordered port list.
func (m *Module) AddWire(name string, width int, port PortDir) (*Wire, error) {
	if width <= 0 {
		return nil, errors.Errorf("wire %q: invalid width %d", name, width)
	}
	if _, exists := m.byName[name]; exists {
		return nil, errors.Errorf("wire %q already exists in module %q", name, m.Name)
	}
	w := &Wire{ID: m.nextWireID, Name: name, Width: width, Port: port, Attrs: make(Attrs)}
	m.wires[w.ID] = w
	m.byName[name] = w.ID
	m.nextWireID++
	if port != PortNone {
		m.ports = append(m.ports, name)
	}
	return w, nil
}

// MustAddWire is AddWire that panics on error, for use in test fixtures
// and package-internal construction where the wire name is known to be
// fresh.
func (m *Module) MustAddWire(name string, width int, port PortDir) *Wire {
	w, err := m.AddWire(name, width, port)
	if err != nil {
		panic(err)
	}
	return w
}

// AddCell creates and returns a new cell of the given type.
func (m *Module) AddCell(typ, name string) *Cell {
	c := NewCell(m.nextCellID, typ, name)
	m.cells[c.ID] = c
	m.nextCellID++
	return c
}

// DeleteCell removes a cell from the module. It does not touch any
// connections driven from the cell's former output ports; callers that
// disconnect a cell (e.g. the AMT extractor rewriting a mux tree's
// drivers) must do so explicitly via Disconnect first.
func (m *Module) DeleteCell(id CellID) {
	delete(m.cells, id)
}

// Wire looks up a wire by ID.
func (m *Module) Wire(id WireID) *Wire { return m.wires[id] }

// Cell looks up a cell by ID.
func (m *Module) Cell(id CellID) *Cell { return m.cells[id] }

// WireByName looks up a wire by name.
func (m *Module) WireByName(name string) (*Wire, bool) {
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.wires[id], true
}

// Wires returns every wire in the module, ordered by WireID.
func (m *Module) Wires() []*Wire {
	out := make([]*Wire, 0, len(m.wires))
	for id := WireID(0); id < m.nextWireID; id++ {
		if w, ok := m.wires[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// Cells returns every cell in the module, ordered by CellID.
func (m *Module) Cells() []*Cell {
	out := make([]*Cell, 0, len(m.cells))
	for id := CellID(0); id < m.nextCellID; id++ {
		if c, ok := m.cells[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Ports returns the module's ordered port name list.
func (m *Module) Ports() []string { return m.ports }

// Connections returns every target<-driver connection in the module.
func (m *Module) Connections() []Connection { return m.conns }

// Connect records target <- driver. It invalidates the cached SigMap.
func (m *Module) Connect(target, driver Vector) error {
	if len(target) != len(driver) {
		return errors.Errorf("connect: width mismatch, target has %d bits, driver has %d", len(target), len(driver))
	}
	m.conns = append(m.conns, Connection{Target: target.Clone(), Driver: driver.Clone()})
	m.sigMapDirty = true
	return nil
}

// Disconnect removes every connection whose target is bit-for-bit equal
// to target. The extractor and F2 injector use this to detach a mux
// tree's old drivers (or an existing driver, in the F2 splice case)
// before installing a replacement.
func (m *Module) Disconnect(target Vector) {
	out := m.conns[:0]
	for _, c := range m.conns {
		if !c.Target.Equal(target) {
			out = append(out, c)
		}
	}
	m.conns = out
	m.sigMapDirty = true
}

// SigMap returns the module's canonicalizing view, rebuilding it if any
// connection has changed since the last call.
func (m *Module) SigMap() *SigMap {
	if m.sigMapDirty || m.sigMap == nil {
		m.sigMap = buildSigMap(m)
		m.sigMapDirty = false
	}
	return m.sigMap
}
