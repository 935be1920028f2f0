package ir

// SigMap is a canonicalizing view over a module: it assigns every wire
// bit a representative bit so that bits chained together by identity
// connections (plain wire-to-wire assigns, as opposed to cell-computed
// signals) collapse to one representative. It is a union-find over the
// module's Connections, rebuilt by Module.SigMap whenever the module's
// connections have changed since the last build.
type SigMap struct {
	module *Module
	parent map[Bit]Bit
}

func buildSigMap(m *Module) *SigMap {
	sm := &SigMap{module: m, parent: make(map[Bit]Bit)}
	for _, c := range m.conns {
		n := len(c.Target)
		for i := 0; i < n; i++ {
			t := c.Target[i]
			if t.Kind != BitWire {
				continue
			}
			sm.union(t, c.Driver[i])
		}
	}
	return sm
}

// find returns the current root of b's union-find tree, compressing
// the path as it goes.
func (sm *SigMap) find(b Bit) Bit {
	root := b
	for {
		next, ok := sm.parent[root]
		if !ok {
			break
		}
		root = next
	}
	for b != root {
		next := sm.parent[b]
		sm.parent[b] = root
		b = next
	}
	return root
}

// union makes driver's root the representative of target's tree. The
// driver side is always treated as canonical, since it is closer to the
// ultimate source of the signal.
func (sm *SigMap) union(target, driver Bit) {
	rt := sm.find(target)
	var rd Bit
	if driver.Kind == BitWire {
		rd = sm.find(driver)
	} else {
		rd = driver
	}
	if rt == rd {
		return
	}
	sm.parent[rt] = rd
}

// Rep returns b's representative bit. Constant and undef/high-z bits
// are their own representative.
func (sm *SigMap) Rep(b Bit) Bit {
	if b.Kind != BitWire {
		return b
	}
	return sm.find(b)
}

// RepVector maps Rep over every bit of v.
func (sm *SigMap) RepVector(v Vector) Vector {
	out := make(Vector, len(v))
	for i, b := range v {
		out[i] = sm.Rep(b)
	}
	return out
}

// Aliased reports whether a and b resolve to the same representative.
func (sm *SigMap) Aliased(a, b Bit) bool {
	return sm.Rep(a) == sm.Rep(b)
}
