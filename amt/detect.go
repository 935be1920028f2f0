package amt

import (
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func isMuxType(t string) bool {
	return t == ir.CellMux || t == ir.CellPmux
}

// driverMap maps a wire bit's SigMap representative to the single cell
// whose output drives it, built from every cell's output ports in m.
// Keys are canonicalized through sm so that a bit reached via an
// identity-connection alias anywhere in the mux tree still resolves to
// the same entry as its canonical wire. A bit with more than one
// driving cell is recorded as multiply-driven (driver set to nil) so
// callers can treat it as "not exactly one driver" without a second
// pass.
type driverMap map[ir.Bit]*ir.Cell

func buildDriverMap(m *ir.Module, sm *ir.SigMap) driverMap {
	dm := make(driverMap)
	seen := make(map[ir.Bit]bool)
	for _, c := range m.Cells() {
		for _, ov := range c.Outputs {
			for _, b := range ov {
				if b.Kind != ir.BitWire {
					continue
				}
				rb := sm.Rep(b)
				if seen[rb] {
					dm[rb] = nil
					continue
				}
				seen[rb] = true
				dm[rb] = c
			}
		}
	}
	return dm
}

// userMap maps a wire bit's SigMap representative to every cell that
// reads it as an input.
type userMap map[ir.Bit][]*ir.Cell

func buildUserMap(m *ir.Module, sm *ir.SigMap) userMap {
	um := make(userMap)
	for _, c := range m.Cells() {
		for _, iv := range c.Inputs {
			for _, b := range iv {
				if b.Kind != ir.BitWire {
					continue
				}
				um[sm.Rep(b)] = append(um[sm.Rep(b)], c)
			}
		}
	}
	return um
}

// Detect marks every wire in m that roots a priority-mux tree
// terminating in constants or external inputs, setting Wire.Marked
// and the fsm_encoding attribute. The attribute is written for
// host-framework interop; Marked is the internal flag decision logic
// actually reads. It returns the marked wires, in WireID order.
func Detect(m *ir.Module) []*ir.Wire {
	sm := m.SigMap()
	dm := buildDriverMap(m, sm)
	um := buildUserMap(m, sm)

	var marked []*ir.Wire
	for _, w := range m.Wires() {
		if w.IsPort() {
			continue
		}
		if w.Attrs["fsm_encoding"] == "none" {
			continue
		}
		rep := sm.RepVector(w.Bits())
		if !rep.Equal(w.Bits()) {
			// w is aliased to another wire's bits by an identity
			// connection; the canonical wire gets considered instead.
			continue
		}
		if !rootedByMux(w, dm, sm) {
			continue
		}
		if !allUsersAreMux(w, um, sm) {
			continue
		}
		if !muxTreeTerminates(w, dm, sm) {
			continue
		}
		w.Marked = true
		w.Attrs["fsm_encoding"] = "inject"
		marked = append(marked, w)
	}
	return marked
}

// rootedByMux reports whether every bit of w is driven by exactly one
// cell, all bits by the same cell, and that cell is a mux/pmux whose Y
// equals w's bits. Lookups go through sm's representative bits so that
// an identity-aliased driver still resolves to its entry in dm.
func rootedByMux(w *ir.Wire, dm driverMap, sm *ir.SigMap) bool {
	bits := w.Bits()
	var driver *ir.Cell
	for _, b := range bits {
		c, ok := dm[sm.Rep(b)]
		if !ok || c == nil {
			return false
		}
		if driver == nil {
			driver = c
		} else if driver != c {
			return false
		}
	}
	if driver == nil || !isMuxType(driver.Type) {
		return false
	}
	return sm.RepVector(driver.Output("Y")).Equal(sm.RepVector(bits))
}

func allUsersAreMux(w *ir.Wire, um userMap, sm *ir.SigMap) bool {
	for _, b := range w.Bits() {
		for _, c := range um[sm.Rep(b)] {
			if !isMuxType(c.Type) {
				return false
			}
		}
	}
	return true
}

// muxTreeTerminates walks the mux tree rooted at w's driving cell,
// following the A and B data ports (not S) back through any further
// mux-driven wires, using an explicit work stack and seen set rather
// than recursive DFS so arbitrarily deep mux trees never blow the call
// stack. It returns false if any mux cell is reached a second time,
// which covers a cycle but also a mux shared by two branches of the
// tree; constants and wires with no driver (external inputs) are valid
// leaves. Every cell-port bit consulted along the way is canonicalized
// through sm before it is used as a dm lookup key, so an identity alias
// introduced anywhere inside the tree does not hide a real cycle or a
// real driver from the walk.
func muxTreeTerminates(w *ir.Wire, dm driverMap, sm *ir.SigMap) bool {
	seen := make(map[ir.CellID]bool)
	root, ok := dm[sm.Rep(w.Bits()[0])]
	if !ok || root == nil {
		return true
	}
	stack := []*ir.Cell{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c.ID] {
			return false
		}
		seen[c.ID] = true
		for _, port := range []string{"A", "B"} {
			for _, b := range c.Input(port) {
				if b.Kind != ir.BitWire {
					continue
				}
				drv, ok := dm[sm.Rep(b)]
				if !ok || drv == nil {
					continue // external input: valid leaf
				}
				if isMuxType(drv.Type) {
					stack = append(stack, drv)
				}
			}
		}
	}
	return true
}
