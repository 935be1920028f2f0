package verify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportCountsEachVerdict(t *testing.T) {
	entries := []Entry{
		{Label: "bug-0", Result: Result{Verdict: NotSensitized}},
		{Label: "bug-1", Result: Result{Verdict: Propagated, Sensitized: 3, PropagatedAt: 5}},
		{Label: "bug-2", Result: Result{Verdict: NotPropagated, Sensitized: 2}},
		{Label: "bug-3", Result: Result{Verdict: Timeout, Sensitized: 4}},
		{Label: "bug-4", Result: Result{Verdict: Timeout}},
	}

	s := Report(entries)
	require.Equal(t, 5, s.Total)
	require.Equal(t, 1, s.NotSensitized)
	require.Equal(t, 1, s.Propagated)
	require.Equal(t, 1, s.NotPropagated)
	require.Equal(t, 2, s.Timeout)
	// Propagated, NotPropagated, and the timeout that already locked a
	// sensitization witness (bug-3) all count as sensitized; the
	// timeout that never got past the sensitization phase (bug-4)
	// does not.
	require.Equal(t, 3, s.Sensitized)
}

func TestReportOnEmptyEntriesIsAllZero(t *testing.T) {
	s := Report(nil)
	require.Equal(t, Summary{}, s)
}

func TestReportTimeoutBeforeSensitizationDoesNotCountAsSensitized(t *testing.T) {
	s := Report([]Entry{{Label: "bug-0", Result: Result{Verdict: Timeout, Sensitized: 0}}})
	require.Equal(t, 1, s.Total)
	require.Equal(t, 1, s.Timeout)
	require.Equal(t, 0, s.Sensitized)
}

func TestVerdictStringNames(t *testing.T) {
	cases := map[Verdict]string{
		NotSensitized: "not_sensitized",
		NotPropagated: "not_propagated",
		Propagated:    "propagated",
		Timeout:       "timeout",
	}
	for v, want := range cases {
		require.Equal(t, want, v.String())
	}
}
