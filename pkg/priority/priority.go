// Package priority implements the finding prioritization engine: a pure,
// deterministic ranking over raw detection output. The same input always
// produces the same ordered output, which keeps scan reports reproducible
// and the engine trivially testable.
//
// The score model is impact × ease-of-fix × confidence. Impact comes from
// severity (see finding.Severity.Impact); ease-of-fix and confidence are
// heuristics the detect adapter attaches at the tool boundary. Overlapping
// templates flag the same endpoint more than once, so findings sharing a
// (name, url) pair collapse to the single best-scoring entry before
// ranking.
package priority

import (
	"sort"

	"github.com/snlscan/snlscan/pkg/finding"
)

// DefaultCap is the maximum number of findings forwarded to interpretation.
const DefaultCap = 10

// Score computes the priority score for a single finding.
func Score(f finding.RawFinding) float64 {
	return f.Severity.Impact() * f.EaseOfFix * f.Confidence
}

type scored struct {
	f     finding.RawFinding
	score float64
	seen  int // first-seen position, stable tie-break during dedup
}

// Prioritize deduplicates, ranks, and caps raw findings. It never mutates
// its input and performs no I/O. A nil or empty input yields an empty,
// non-nil slice: zero findings is a valid scan outcome, not an error.
//
// Ranking is descending by score; ties break by severity rank, then by
// URL lexicographic order so repeated runs agree byte-for-byte.
func Prioritize(findings []finding.RawFinding, cap int) []finding.RawFinding {
	if cap <= 0 {
		cap = DefaultCap
	}

	// Dedup on (name, url), keeping the highest-scoring duplicate.
	// Ties between duplicates break by severity rank, then first-seen.
	type key struct{ name, url string }
	best := make(map[key]scored, len(findings))
	order := make([]key, 0, len(findings))
	for i, f := range findings {
		k := key{f.Name, f.URL}
		cand := scored{f: f, score: Score(f), seen: i}
		prev, ok := best[k]
		if !ok {
			best[k] = cand
			order = append(order, k)
			continue
		}
		if cand.score > prev.score ||
			(cand.score == prev.score && cand.f.Severity.Rank() > prev.f.Severity.Rank()) {
			cand.seen = prev.seen
			best[k] = cand
		}
	}

	ranked := make([]scored, 0, len(best))
	for _, k := range order {
		ranked = append(ranked, best[k])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := a.f.Severity.Rank(), b.f.Severity.Rank(); ra != rb {
			return ra > rb
		}
		return a.f.URL < b.f.URL
	})

	if len(ranked) > cap {
		ranked = ranked[:cap]
	}

	out := make([]finding.RawFinding, len(ranked))
	for i, s := range ranked {
		out[i] = s.f
	}
	return out
}
