package strategy

import "math/rand/v2"

// option is one weighted entry of a strategy draw.
type option struct {
	kind   Kind
	weight int
}

// sample draws one kind with probability proportional to its weight.
// Entries with non-positive weight never win. It returns "" for an empty
// draw.
func sample(rng *rand.Rand, opts []option) Kind {
	total := 0
	for _, o := range opts {
		if o.weight > 0 {
			total += o.weight
		}
	}
	if total == 0 {
		return ""
	}
	r := rng.IntN(total)
	for _, o := range opts {
		if o.weight <= 0 {
			continue
		}
		if r < o.weight {
			return o.kind
		}
		r -= o.weight
	}
	return opts[len(opts)-1].kind
}

// Idle-mode bands partition [0,1) into the waterfall's entry stage.
var bands = []struct {
	upper float64
	stage int
}{
	{0.15, stageIntrospection},
	{0.25, stageBlog},
	{0.70, stageAggregation},
	{0.80, stageRetrospective},
	{1.00, stageSocial},
}

// entryStage maps a draw in [0,1) to the first waterfall stage to try.
func entryStage(r float64) int {
	for _, b := range bands {
		if r < b.upper {
			return b.stage
		}
	}
	return stageSocial
}
