package bugs

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// nonBufferableCell reports whether a cell type must be left alone by
// the F2 port-buffering step: memories, registers, latches, and any
// already-extracted AMT.
func nonBufferableCell(t string) bool {
	switch t {
	case ir.CellMem, ir.CellDff, ir.CellDffe, ir.CellDffsr, ir.CellAdff, ir.CellDlatch, ir.CellAMT:
		return true
	default:
		return false
	}
}

// DriverTarget is a candidate target for a driver mix-up: a slice of
// a public wire's bits that some connection drives.
type DriverTarget struct {
	Wire ir.Vector // the target bits
	Conn int       // index into m.Connections() whose Target this came from
}

// BufferCells exposes every bufferable cell's ports in m through a
// fresh wire, rewiring the cell's port onto it and connecting it back
// to the port's original signal, so their signals become valid F2
// drivers and so a mix-up spliced onto a buffer wire actually changes
// what the cell reads or writes. It returns the newly created public
// wire-bit vectors (drivers) and the target slices eligible for
// mix-up: every connection already present in m before buffering
// began. Connections BufferCells itself adds are buffer plumbing, not
// candidate targets.
func BufferCells(m *ir.Module) (drivers []ir.Vector, targets []DriverTarget, err error) {
	preexisting := m.Connections()
	targets = make([]DriverTarget, 0, len(preexisting))
	for i, conn := range preexisting {
		targets = append(targets, DriverTarget{Wire: conn.Target, Conn: i})
	}
	for _, c := range m.Cells() {
		if nonBufferableCell(c.Type) {
			continue
		}
		for _, port := range sortedPortNames(c.Inputs) {
			nv, berr := bufferPort(m, c, port, false)
			if berr != nil {
				return nil, nil, berr
			}
			drivers = append(drivers, nv)
		}
		for _, port := range sortedPortNames(c.Outputs) {
			nv, berr := bufferPort(m, c, port, true)
			if berr != nil {
				return nil, nil, berr
			}
			drivers = append(drivers, nv)
		}
	}
	for _, wireConst := range constantDrivers(m) {
		drivers = append(drivers, wireConst)
	}
	return drivers, targets, nil
}

func constantDrivers(m *ir.Module) []ir.Vector {
	return []ir.Vector{{ir.Zero()}, {ir.One()}}
}

func sortedPortNames(m map[string]ir.Vector) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// bufferPort creates a fresh wire and splices it between c's named
// port and the signal that port currently carries, direction-dependent
// so the cell genuinely reads or writes the new wire rather than just
// being tapped for observation:
//
//   - input port: the wire is connected from the port's original
//     driver (wire <- v), and the cell's port is rewired onto the wire
//     (c now reads the wire, not v directly).
//   - output port: the cell's port is rewired onto the wire (c now
//     writes the wire), and the wire is connected onto the port's
//     original signal (v <- wire), so existing readers of v still see
//     the cell's output.
func bufferPort(m *ir.Module, c *ir.Cell, port string, isOutput bool) (ir.Vector, error) {
	var v ir.Vector
	if isOutput {
		v = c.Outputs[port]
	} else {
		v = c.Inputs[port]
	}
	w, err := m.AddWire(uniqueName(m, c.Name+"$"+port), len(v), ir.PortNone)
	if err != nil {
		return nil, err
	}
	if isOutput {
		c.SetOutput(port, w.Bits())
		if err := m.Connect(v, w.Bits()); err != nil {
			return nil, err
		}
	} else {
		if err := m.Connect(w.Bits(), v); err != nil {
			return nil, err
		}
		c.SetInput(port, w.Bits())
	}
	return w.Bits(), nil
}

func uniqueName(m *ir.Module, base string) string {
	name := base
	for i := 0; ; i++ {
		if _, ok := m.WireByName(name); !ok {
			return name
		}
		name = base + "$" + itoa(i)
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// MixUp is one F2 driver-target splice: the driver that now feeds
// target, width-adjusted to fit it.
type MixUp struct {
	Target    DriverTarget
	Driver    ir.Vector
	Reference ir.Vector // the target's original driver, for the reference copy
}

// DriverBugs generates up to bugsPerModule F2 mix-ups, rejecting a
// driver/target pair when the driver already drives that exact target
// or when widthAdjust rejects the target. rnd must be explicitly seeded.
func DriverBugs(m *ir.Module, drivers []ir.Vector, targets []DriverTarget, rnd *rand.Rand, bugsPerModule int) ([]MixUp, error) {
	if len(drivers) == 0 || len(targets) == 0 {
		return nil, errors.New("bugs: driver_bugs: no eligible drivers or targets")
	}
	var out []MixUp
	attempts := 0
	for len(out) < bugsPerModule && attempts < bugsPerModule*50+100 {
		attempts++
		d := drivers[rnd.Intn(len(drivers))]
		tgt := targets[rnd.Intn(len(targets))]
		conn := m.Connections()[tgt.Conn]
		if conn.Driver.Equal(d) {
			continue
		}
		adjusted, ok := widthAdjust(d, tgt.Wire)
		if !ok {
			continue
		}
		out = append(out, MixUp{Target: tgt, Driver: adjusted, Reference: conn.Driver})
	}
	return out, nil
}

// widthAdjust applies the F2 width rules: a narrower constant driver
// is sign-extended by its top bit; a narrower non-constant driver
// causes the target to be truncated to the driver's width; a wider
// driver is truncated to the target's width. It returns ok=false only
// if the target carries no wire bits to splice onto (a pure-constant
// target, which is not acceptable).
func widthAdjust(driver, target ir.Vector) (ir.Vector, bool) {
	hasWire := false
	for _, b := range target {
		if b.Kind == ir.BitWire {
			hasWire = true
			break
		}
	}
	if !hasWire {
		return nil, false
	}
	dw, tw := len(driver), len(target)
	switch {
	case dw == tw:
		return driver, true
	case dw < tw && isConstVector(driver):
		top := driver[dw-1]
		out := driver.Clone()
		for i := dw; i < tw; i++ {
			out = append(out, top)
		}
		return out, true
	case dw > tw:
		return driver.Slice(0, tw), true
	default:
		// narrower, non-constant: caller truncates the target instead
		// of the driver, so the driver itself is returned unchanged
		// and the splice uses only target[:dw].
		return driver, true
	}
}

func isConstVector(v ir.Vector) bool {
	for _, b := range v {
		if !b.IsConst() {
			return false
		}
	}
	return true
}

// Apply splices mu's driver onto its target in m, replacing the
// connection it came from. It returns only an error; the target's
// original driver is carried in mu.Reference.
func Apply(m *ir.Module, mu MixUp) error {
	conns := m.Connections()
	if mu.Target.Conn >= len(conns) {
		return errors.Errorf("bugs: apply: stale connection index %d", mu.Target.Conn)
	}
	target := mu.Target.Wire
	m.Disconnect(target)
	if len(mu.Driver) < len(target) {
		target = target[:len(mu.Driver)]
	}
	return m.Connect(target, mu.Driver[:len(target)])
}
