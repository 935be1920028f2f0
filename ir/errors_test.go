package ir_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func TestErrorUnwrapsToTheWrappedCause(t *testing.T) {
	cause := errors.New("boom")
	err := ir.NewError(ir.KindCapacity, "extract", cause)
	require.ErrorIs(t, err, cause)

	var ierr *ir.Error
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, ir.KindCapacity, ierr.Kind)
	require.Equal(t, "extract", ierr.Op)
}

func TestErrorMessageIncludesKindOpAndCause(t *testing.T) {
	err := ir.NewError(ir.KindSolver, "import_cell", errors.New("unknown cell type"))
	require.Contains(t, err.Error(), "solver")
	require.Contains(t, err.Error(), "import_cell")
	require.Contains(t, err.Error(), "unknown cell type")
}

func TestErrorMessageWithoutCauseOmitsIt(t *testing.T) {
	err := ir.NewError(ir.KindIO, "write_report", nil)
	require.Equal(t, "io: write_report", err.Error())
}

func TestKindFatalClassification(t *testing.T) {
	require.True(t, ir.KindSetup.Fatal())
	require.True(t, ir.KindIO.Fatal())
	require.False(t, ir.KindInconsistent.Fatal())
	require.False(t, ir.KindCapacity.Fatal())
	require.False(t, ir.KindSolver.Fatal())
}
