// Package bugs implements the two injected-bug families over an
// extracted AMT (F1, table-entry mutation) and over a module's
// exposed internal cells (F2, driver mix-up). Each family materializes its variants by
// mutating the live IR, serializing it, and reverting the mutation
// rather than building a persistent variant tree in memory.
package bugs

import (
	"math/rand"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

// Variant is one mutated AMT table, labeled for logging/directory
// naming.
type Variant struct {
	Label string
	Table *amt.Table
}

// AMTBugs generates the F1 bug corpus for t by mutating individual
// selector bits of its rows, plus one variant with a randomly chosen
// row removed; row outputs are never mutated. It returns nil if t has fewer
// than amt.MinRows rows, since a table that small isn't worth
// mutating. rnd must be an explicitly seeded generator, never the
// global math/rand functions, so a corpus can be reproduced from its
// seed.
func AMTBugs(t *amt.Table, rnd *rand.Rand, bugsPerCell float64) []Variant {
	n := t.N()
	if n < amt.MinRows {
		return nil
	}
	k := t.K()
	rate := 1.0 / maxFloat(1, float64(n*k)/maxFloat(1, bugsPerCell))

	var variants []Variant
	for i, row := range t.Selections {
		for j, trit := range row.Pattern {
			switch trit.Kind {
			case ir.BitZero, ir.BitOne:
				if rnd.Float64() < rate {
					variants = append(variants, Variant{
						Label: "amt_bit_wildcard",
						Table: promoteBitToWildcard(t, i, j),
					})
				}
			case ir.BitUndef:
				if rnd.Float64() < rate {
					val := ir.Zero()
					if rnd.Intn(2) == 1 {
						val = ir.One()
					}
					variants = append(variants, Variant{
						Label: "amt_bit_specialize",
						Table: specializeBit(t, i, j, val),
					})
				}
			}
		}
	}

	removeIdx := rnd.Intn(n)
	variants = append(variants, Variant{
		Label: "amt_row_remove",
		Table: removeRow(t, removeIdx),
	})

	return variants
}

// promoteBitToWildcard returns a copy of t with row i's selector bit j
// promoted to don't-care, the mutated row moved to index 0 (a priority
// escalation: a wildcarded row has to sit ahead of anything it could
// now shadow), and the original row dropped.
func promoteBitToWildcard(t *amt.Table, i, j int) *amt.Table {
	rows := cloneSelections(t.Selections)
	mutated := rows[i]
	mutated.Pattern = mutated.Pattern.Clone()
	mutated.Pattern[j] = ir.Undef()
	mutated.Buggy = true
	rest := append(rows[:i:i], rows[i+1:]...)
	out := make([]amt.Selection, 0, len(rows))
	out = append(out, mutated)
	out = append(out, rest...)
	return &amt.Table{S: t.S, Y: t.Y, Selections: out}
}

// specializeBit returns a copy of t with row i's don't-care selector
// bit j set to val.
func specializeBit(t *amt.Table, i, j int, val ir.Bit) *amt.Table {
	rows := cloneSelections(t.Selections)
	rows[i].Pattern = rows[i].Pattern.Clone()
	rows[i].Pattern[j] = val
	rows[i].Buggy = true
	return &amt.Table{S: t.S, Y: t.Y, Selections: rows}
}

// removeRow returns a copy of t with row idx deleted.
func removeRow(t *amt.Table, idx int) *amt.Table {
	rows := cloneSelections(t.Selections)
	out := append(rows[:idx:idx], rows[idx+1:]...)
	return &amt.Table{S: t.S, Y: t.Y, Selections: out}
}

func cloneSelections(rows []amt.Selection) []amt.Selection {
	out := make([]amt.Selection, len(rows))
	copy(out, rows)
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
