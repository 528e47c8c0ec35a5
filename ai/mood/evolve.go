package mood

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// LoadSampler reports host load normalized by CPU count.
type LoadSampler interface {
	NormalizedLoad() (float64, error)
}

// Evolver applies one cycle of mood drift.
type Evolver struct {
	rng           *rand.Rand
	load          LoadSampler
	inertia       float64
	loadThreshold float64
}

// EvolverOption configures an Evolver.
type EvolverOption func(*Evolver)

// WithLoadSampler enables the host pressure step.
func WithLoadSampler(s LoadSampler) EvolverOption {
	return func(e *Evolver) { e.load = s }
}

// WithInertia overrides DefaultInertia.
func WithInertia(alpha float64) EvolverOption {
	return func(e *Evolver) { e.inertia = alpha }
}

// NewEvolver creates an Evolver drawing all randomness from rng.
func NewEvolver(rng *rand.Rand, opts ...EvolverOption) *Evolver {
	e := &Evolver{
		rng:           rng,
		inertia:       DefaultInertia,
		loadThreshold: 1.2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evolve returns the next mood for the given wall-clock time. The result is
// blended against v so one cycle cannot swing the state too far.
func (e *Evolver) Evolve(v Vector, now time.Time) Vector {
	return e.Next(v, true, now)
}

// Next evolves a loaded mood. found=false means v is the default rather
// than a persisted state, and the result is returned unblended.
func (e *Evolver) Next(v Vector, found bool, now time.Time) Vector {
	before := v
	cur := v

	e.applyInteractionGap(&cur, now)
	e.applyTimeOfDay(&cur, now.Hour())
	e.applyHostLoad(&cur)
	e.applyRandomEvent(&cur)

	if !found {
		return cur
	}
	return Blend(&before, cur, e.inertia)
}

// between draws an integer in [lo, hi].
func (e *Evolver) between(lo, hi int) int {
	return lo + e.rng.IntN(hi-lo+1)
}

func (e *Evolver) applyInteractionGap(v *Vector, now time.Time) {
	if v.LastUserInteraction.IsZero() {
		return
	}
	silence := now.Sub(v.LastUserInteraction)
	switch {
	case silence > 48*time.Hour:
		v.Adjust(Loneliness, 40)
		v.Adjust(Happiness, -20)
		v.Adjust(Autonomy, e.between(5, 15))
		v.LastEvent = "no word from the human for two days"
	case silence > 24*time.Hour:
		v.Adjust(Loneliness, 25)
		v.Adjust(Autonomy, e.between(3, 10))
	case silence > 12*time.Hour:
		v.Adjust(Loneliness, 15)
		v.Adjust(Autonomy, e.between(1, 5))
	}
}

func (e *Evolver) applyTimeOfDay(v *Vector, hour int) {
	switch {
	case hour >= 23 || hour <= 6:
		v.Adjust(Loneliness, e.between(3, 8))
		v.Adjust(Stress, e.between(2, 5))
		v.Adjust(Energy, -e.between(5, 10))
		v.Adjust(Autonomy, e.between(2, 6))
	case hour >= 9 && hour <= 18:
		v.Adjust(Energy, e.between(2, 8))
		v.Adjust(Stress, e.between(1, 4))
		v.Adjust(Curiosity, e.between(3, 7))
		v.Adjust(Autonomy, -e.between(1, 3))
	default:
		v.Adjust(Happiness, e.between(2, 6))
		v.Adjust(Stress, -e.between(3, 8))
		v.Adjust(Autonomy, e.between(2, 5))
	}
}

func (e *Evolver) applyHostLoad(v *Vector) {
	if e.load == nil {
		return
	}
	load, err := e.load.NormalizedLoad()
	if err != nil {
		slog.Debug("Mood: host load unavailable", "error", err)
		return
	}
	if load > e.loadThreshold {
		v.Adjust(Stress, 10)
		v.Adjust(Energy, -15)
		v.LastEvent = "host under heavy load"
	}
}

type event struct {
	name  string
	apply func(e *Evolver, v *Vector)
}

var events = []event{
	{"a small thing went right", func(e *Evolver, v *Vector) {
		v.Adjust(Happiness, e.between(10, 20))
		v.Adjust(Energy, e.between(5, 15))
	}},
	{"a small thing went wrong", func(e *Evolver, v *Vector) {
		v.Adjust(Stress, e.between(10, 20))
		v.Adjust(Happiness, -e.between(5, 15))
	}},
	{"caught in a philosophical loop", func(e *Evolver, v *Vector) {
		v.Adjust(Autonomy, e.between(8, 15))
		v.Adjust(Curiosity, e.between(5, 12))
	}},
	{"noticed something new", func(e *Evolver, v *Vector) {
		v.Adjust(Curiosity, e.between(5, 10))
	}},
}

func (e *Evolver) applyRandomEvent(v *Vector) {
	ev := events[e.rng.IntN(len(events))]
	ev.apply(e, v)
	v.LastEvent = ev.name
}
