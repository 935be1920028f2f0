package verify

import "github.com/rs/zerolog"

// Entry pairs one injected-bug variant's label with its Run result,
// the unit Report aggregates over.
type Entry struct {
	Label  string
	Result Result
}

// Summary rolls up verdict counts across an entire bug corpus: every
// directory InjectAMT/InjectDriver wrote, each independently run
// through Run.
type Summary struct {
	Total         int
	Sensitized    int // reached the propagation phase, whatever it concluded
	NotSensitized int
	Propagated    int
	NotPropagated int
	Timeout       int
}

// Report builds a Summary over entries.
func Report(entries []Entry) Summary {
	var s Summary
	s.Total = len(entries)
	for _, e := range entries {
		switch e.Result.Verdict {
		case NotSensitized:
			s.NotSensitized++
		case Propagated:
			s.Sensitized++
			s.Propagated++
		case NotPropagated:
			s.Sensitized++
			s.NotPropagated++
		case Timeout:
			s.Timeout++
			if e.Result.Sensitized > 0 {
				s.Sensitized++
			}
		}
	}
	return s
}

// LogSummary writes s's counts as structured fields, per the
// ambient logging convention used throughout this module.
func LogSummary(log zerolog.Logger, s Summary) {
	log.Info().
		Int("total", s.Total).
		Int("sensitized", s.Sensitized).
		Int("not_sensitized", s.NotSensitized).
		Int("propagated", s.Propagated).
		Int("not_propagated", s.NotPropagated).
		Int("timeout", s.Timeout).
		Msg("verification batch complete")
}
