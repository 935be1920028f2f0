package ir

import "github.com/pkg/errors"

// Design is a named collection of modules, plus a selection of the
// working subset that the current pass should operate on (mirroring
// the host framework's "selection" concept: detect/extract/expand/
// inject only ever touch selected modules).
type Design struct {
	modules  map[string]*Module
	order    []string
	selected map[string]bool
}

// NewDesign returns an empty design.
func NewDesign() *Design {
	return &Design{modules: make(map[string]*Module), selected: make(map[string]bool)}
}

// AddModule adds m to the design. It returns an error if a module of
// the same name already exists.
func (d *Design) AddModule(m *Module) error {
	if _, exists := d.modules[m.Name]; exists {
		return errors.Errorf("module %q already exists in design", m.Name)
	}
	d.modules[m.Name] = m
	d.order = append(d.order, m.Name)
	d.selected[m.Name] = true
	return nil
}

// Module looks up a module by name.
func (d *Design) Module(name string) (*Module, bool) {
	m, ok := d.modules[name]
	return m, ok
}

// MustModule is Module that panics if name is not found; for use where
// the caller has already validated the name (e.g. miter construction
// after a prior lookup).
func (d *Design) MustModule(name string) *Module {
	m, ok := d.modules[name]
	if !ok {
		panic("ir: no such module " + name)
	}
	return m
}

// Modules returns every module in the design, in the order they were
// added.
func (d *Design) Modules() []*Module {
	out := make([]*Module, 0, len(d.order))
	for _, n := range d.order {
		out = append(out, d.modules[n])
	}
	return out
}

// Select narrows the working subset to modules for which pred returns
// true. A nil pred selects every module.
func (d *Design) Select(pred func(*Module) bool) {
	for _, n := range d.order {
		if pred == nil {
			d.selected[n] = true
			continue
		}
		d.selected[n] = pred(d.modules[n])
	}
}

// Selected returns the currently selected modules, in design order.
func (d *Design) Selected() []*Module {
	out := make([]*Module, 0, len(d.order))
	for _, n := range d.order {
		if d.selected[n] {
			out = append(out, d.modules[n])
		}
	}
	return out
}

// IsSelected reports whether the named module is in the current
// selection.
func (d *Design) IsSelected(name string) bool { return d.selected[name] }
