package satenc_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/internal/satsolver"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
	"github.com/encarsia-artifacts/encarsia-yosys/satenc"
)

func newTestEncoder(m *ir.Module) *satenc.Encoder {
	return satenc.NewEncoder(satsolver.New(), m, zerolog.Nop())
}

func requireSAT(t *testing.T, e *satenc.Encoder, assumptions ...satenc.Lit) {
	t.Helper()
	res, err := e.Solver.Solve(context.Background(), assumptions...)
	require.NoError(t, err)
	require.Equal(t, satenc.ResultSAT, res)
}

func lit(e *satenc.Encoder, l satenc.Lit, want bool) satenc.Lit {
	if want {
		return l
	}
	return e.Solver.Not(l)
}
