package bugs

import (
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// RunID stamps one injection run's output directory tree so repeated
// invocations against the same OutputDir never collide.
type RunID = uuid.UUID

// NewRunID returns a fresh random run identity.
func NewRunID() RunID { return uuid.New() }

// InjectAMT runs the F1 family against cell (which must already be an
// ir.CellAMT), writing one host_amt.rtlil per variant under
// outputDir/<run>/<index>/. Each variant mutates cell and its module
// in place, serializes, and reverts before the next, so no two
// variants are ever live in the IR at once.
func InjectAMT(m *ir.Module, cell *ir.Cell, rnd *rand.Rand, bugsPerCell float64, outputDir string, run RunID, log zerolog.Logger) (int, error) {
	original, err := amt.FromCell(cell)
	if err != nil {
		return 0, ir.NewError(ir.KindSetup, "inject_amt", err)
	}
	variants := AMTBugs(original, rnd, bugsPerCell)
	if len(variants) == 0 {
		log.Info().Str("cell", cell.Name).Msg("amt has too few rows to inject")
		return 0, nil
	}

	wireWasBuggy := m.Wire(yRootWire(original)).Buggy

	count := 0
	for i, v := range variants {
		v.Table.ToCell(cell)
		cell.Buggy = true
		if w := m.Wire(yRootWire(v.Table)); w != nil {
			w.Buggy = true
		}

		dir := filepath.Join(outputDir, run.String(), itoa(i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return count, ir.NewError(ir.KindIO, "inject_amt", errors.Wrapf(err, "mkdir %s", dir))
		}
		path := filepath.Join(dir, "host_amt.rtlil")
		if err := writeRTLIL(path, m); err != nil {
			return count, ir.NewError(ir.KindIO, "inject_amt", err)
		}
		log.Info().Str("cell", cell.Name).Str("label", v.Label).Str("dir", dir).Msg("wrote amt bug variant")
		count++

		cell.Buggy = false
		if w := m.Wire(yRootWire(v.Table)); w != nil {
			w.Buggy = wireWasBuggy
		}
	}
	original.ToCell(cell)
	return count, nil
}

// yRootWire returns the wire id t.Y's first bit refers to, used only
// to toggle the transient Buggy marker on the AMT's output wire; Y is
// always a single wire's full bit range by construction (extract.go).
func yRootWire(t *amt.Table) ir.WireID {
	if len(t.Y) == 0 || t.Y[0].Kind != ir.BitWire {
		return -1
	}
	return t.Y[0].Wire
}

func writeRTLIL(path string, m *ir.Module) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	return ir.WriteRTLIL(f, m)
}

// InjectDriver runs the F2 family against m, writing matched
// host_driver.rtlil/reference_driver.rtlil pairs under
// outputDir/<run>/<index>/.
func InjectDriver(m *ir.Module, rnd *rand.Rand, bugsPerModule int, outputDir string, run RunID, log zerolog.Logger) (int, error) {
	drivers, targets, err := BufferCells(m)
	if err != nil {
		return 0, ir.NewError(ir.KindSetup, "inject_driver", err)
	}
	mixups, err := DriverBugs(m, drivers, targets, rnd, bugsPerModule)
	if err != nil {
		return 0, ir.NewError(ir.KindSetup, "inject_driver", err)
	}

	count := 0
	for i, mu := range mixups {
		dir := filepath.Join(outputDir, run.String(), itoa(i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return count, ir.NewError(ir.KindIO, "inject_driver", errors.Wrapf(err, "mkdir %s", dir))
		}
		if err := Apply(m, mu); err != nil {
			log.Warn().Err(err).Msg("skipping mix-up: apply failed")
			continue
		}
		if err := writeRTLIL(filepath.Join(dir, "host_driver.rtlil"), m); err != nil {
			return count, ir.NewError(ir.KindIO, "inject_driver", err)
		}
		m.Disconnect(mu.Target.Wire)
		if err := m.Connect(mu.Target.Wire, mu.Reference); err != nil {
			return count, ir.NewError(ir.KindSetup, "inject_driver", err)
		}
		if err := writeRTLIL(filepath.Join(dir, "reference_driver.rtlil"), m); err != nil {
			return count, ir.NewError(ir.KindIO, "inject_driver", err)
		}
		log.Info().Str("dir", dir).Msg("wrote driver mix-up variant")
		count++
	}
	return count, nil
}
