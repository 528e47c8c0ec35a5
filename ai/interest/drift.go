// Package interest tracks slowly drifting topic weights used to rank
// externally fetched items.
package interest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	MinWeight = 0.5
	MaxWeight = 2.5

	boostPerMention = 0.20
	maxMentions     = 3
	decay           = 0.90
)

// State is the persisted drift document.
type State struct {
	UpdatedAt time.Time          `json:"updated_at"`
	Weights   map[string]float64 `json:"weights"`
}

// Apply returns the next weights for base keywords given the text seen this
// cycle. Mentioned keywords are boosted, the rest decay toward 1.0.
func Apply(base []string, weights map[string]float64, text string) map[string]float64 {
	lower := strings.ToLower(text)
	next := make(map[string]float64, len(base))
	for _, kw := range base {
		key := strings.ToLower(kw)
		w, ok := weights[key]
		if !ok {
			w = 1.0
		}
		if mentions := strings.Count(lower, key); mentions > 0 && key != "" {
			w = min(MaxWeight, w+boostPerMention*float64(min(mentions, maxMentions)))
		} else {
			w = w*decay + (1-decay)*1.0
		}
		next[key] = min(MaxWeight, max(MinWeight, w))
	}
	return next
}

// Ranked orders keywords by weight, highest first. Ties keep alphabetical
// order so the result is stable.
func Ranked(weights map[string]float64) []string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Drift loads, updates and persists interest weights.
type Drift struct {
	path string
	base []string
	now  func() time.Time
}

// NewDrift creates a Drift over base keywords persisted at path.
func NewDrift(path string, base []string, now func() time.Time) *Drift {
	if now == nil {
		now = time.Now
	}
	return &Drift{path: path, base: base, now: now}
}

// Load reads the persisted state. A missing or corrupt file yields empty
// weights.
func (d *Drift) Load() State {
	state := State{Weights: map[string]float64{}}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil || state.Weights == nil {
		return State{Weights: map[string]float64{}}
	}
	return state
}

// Update applies one cycle of drift using the recent text and returns the
// keywords ranked by their new weight.
func (d *Drift) Update(recentText string) ([]string, error) {
	state := d.Load()
	state.Weights = Apply(d.base, state.Weights, recentText)
	state.UpdatedAt = d.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode interest state")
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create interest dir")
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write interest state")
	}
	return Ranked(state.Weights), nil
}

// Top returns at most n keywords ranked by weight.
func Top(weights map[string]float64, n int) []string {
	ranked := Ranked(weights)
	return ranked[:min(n, len(ranked))]
}
