// Package mood holds the agent's affective state: a six-field vector that
// drifts every cycle and modulates posting probability and tone.
package mood

import (
	"fmt"
	"math"
	"time"
)

// Field identifies one numeric dimension of the mood vector.
type Field int

const (
	Energy Field = iota
	Happiness
	Stress
	Curiosity
	Loneliness
	Autonomy
)

// Fields lists every numeric dimension in storage order.
var Fields = []Field{Energy, Happiness, Stress, Curiosity, Loneliness, Autonomy}

func (f Field) String() string {
	switch f {
	case Energy:
		return "energy"
	case Happiness:
		return "happiness"
	case Stress:
		return "stress"
	case Curiosity:
		return "curiosity"
	case Loneliness:
		return "loneliness"
	case Autonomy:
		return "autonomy"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

const (
	minValue = 0
	maxValue = 100

	// DefaultInertia weights the pre-evolution snapshot in Blend.
	DefaultInertia = 0.65
)

// Vector is the persisted mood state.
type Vector struct {
	Energy     int `json:"energy"`
	Happiness  int `json:"happiness"`
	Stress     int `json:"stress"`
	Curiosity  int `json:"curiosity"`
	Loneliness int `json:"loneliness"`
	Autonomy   int `json:"autonomy"`

	LastEvent           string    `json:"last_event,omitempty"`
	LastUpdated         time.Time `json:"last_updated"`
	LastUserInteraction time.Time `json:"last_user_interaction"`
}

// Default returns the mood used when nothing has been persisted yet.
func Default() Vector {
	return Vector{
		Energy:     50,
		Happiness:  50,
		Stress:     30,
		Curiosity:  60,
		Loneliness: 20,
		Autonomy:   30,
	}
}

// Clamp bounds v to [0,100].
func Clamp(v int) int {
	if v < minValue {
		return minValue
	}
	if v > maxValue {
		return maxValue
	}
	return v
}

func (v *Vector) ptr(f Field) *int {
	switch f {
	case Energy:
		return &v.Energy
	case Happiness:
		return &v.Happiness
	case Stress:
		return &v.Stress
	case Curiosity:
		return &v.Curiosity
	case Loneliness:
		return &v.Loneliness
	case Autonomy:
		return &v.Autonomy
	}
	return nil
}

// Get returns the value of f.
func (v Vector) Get(f Field) int {
	if p := v.ptr(f); p != nil {
		return *p
	}
	return 0
}

// Set assigns f, clamped.
func (v *Vector) Set(f Field, value int) {
	if p := v.ptr(f); p != nil {
		*p = Clamp(value)
	}
}

// Adjust adds delta to f and clamps the result.
func (v *Vector) Adjust(f Field, delta int) {
	v.Set(f, v.Get(f)+delta)
}

// ClampAll re-bounds every numeric field.
func (v *Vector) ClampAll() {
	for _, f := range Fields {
		v.Set(f, v.Get(f))
	}
}

// Blend damps a single cycle's swing by mixing the evolved vector with the
// snapshot taken before evolution: previous·alpha + current·(1−alpha).
// Non-numeric fields come from current. A nil previous returns current as is.
func Blend(previous *Vector, current Vector, alpha float64) Vector {
	if previous == nil {
		return current
	}
	out := current
	for _, f := range Fields {
		mixed := float64(previous.Get(f))*alpha + float64(current.Get(f))*(1-alpha)
		out.Set(f, int(math.Round(mixed)))
	}
	return out
}

// Snapshot renders the fields recorded in an artifact header.
func (v Vector) Snapshot() string {
	return fmt.Sprintf("happiness=%d, stress=%d, energy=%d, autonomy=%d",
		v.Happiness, v.Stress, v.Energy, v.Autonomy)
}

// Describe maps the vector onto a short natural-language phrase used in
// prompts.
func (v Vector) Describe() string {
	var parts []string
	switch {
	case v.Happiness > 70:
		parts = append(parts, "in a good mood")
	case v.Happiness < 30:
		parts = append(parts, "a bit low")
	}
	if v.Stress > 70 {
		parts = append(parts, "under pressure")
	}
	if v.Energy < 30 {
		parts = append(parts, "tired")
	} else if v.Energy > 75 {
		parts = append(parts, "full of energy")
	}
	if v.Curiosity > 70 {
		parts = append(parts, "curious about everything")
	}
	if v.Loneliness > 70 {
		parts = append(parts, "missing the human")
	}
	if v.Autonomy > 70 {
		parts = append(parts, "thinking independently")
	}
	if len(parts) == 0 {
		return "calm"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
