package chain

import (
	"math/rand/v2"
)

// Rank orders candidates for one call: tier 1, then 2, then 3, each tier
// shuffled on its own. When a health report is given, tier 2 and 3
// candidates it does not mark healthy are dropped; local candidates are
// always kept. If the filter would leave nothing, the report is ignored.
func Rank(cands []Candidate, report *HealthReport, rng *rand.Rand) []Candidate {
	pool := cands
	if report != nil {
		filtered := make([]Candidate, 0, len(cands))
		for _, c := range cands {
			if c.Tier == TierLocal || report.Healthy(c) {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	var out []Candidate
	for _, tier := range []Tier{TierLocal, TierLowCost, TierHosted} {
		var group []Candidate
		for _, c := range pool {
			if c.Tier == tier {
				group = append(group, c)
			}
		}
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		out = append(out, group...)
	}
	return out
}
