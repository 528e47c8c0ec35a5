package mood

import "math/rand/v2"

// VoiceShift biases generation tone for one cycle.
type VoiceShift string

const (
	VoiceNone     VoiceShift = ""
	VoiceStress   VoiceShift = "stress"
	VoiceJoy      VoiceShift = "joy"
	VoiceDetached VoiceShift = "detached"
)

const (
	voiceShiftChance = 0.08
	baseActChance    = 0.3
)

// SelectVoiceShift returns at most one tone shift. The thresholds that are
// exceeded form the candidate set, a single gate is rolled, and one
// candidate is picked uniformly when the gate passes.
func SelectVoiceShift(v Vector, rng *rand.Rand) VoiceShift {
	var candidates []VoiceShift
	if v.Stress >= 85 {
		candidates = append(candidates, VoiceStress)
	}
	if v.Happiness >= 92 {
		candidates = append(candidates, VoiceJoy)
	}
	if v.Autonomy >= 90 {
		candidates = append(candidates, VoiceDetached)
	}
	if len(candidates) == 0 {
		return VoiceNone
	}
	if rng.Float64() >= voiceShiftChance {
		return VoiceNone
	}
	return candidates[rng.IntN(len(candidates))]
}

// ActProbability is the chance of posting this cycle, in [0,1].
func ActProbability(v Vector, hour int) float64 {
	p := baseActChance

	if v.Happiness > 70 {
		p += 0.2
	}
	if v.Stress > 70 {
		p += 0.25
	}
	if v.Curiosity > 70 {
		p += 0.15
	}
	if v.Loneliness > 70 {
		p += 0.2
	}
	if v.Autonomy > 70 {
		p += 0.15
	}
	if v.Energy < 30 {
		p -= 0.2
	}

	switch {
	case hour >= 2 && hour <= 6:
		p -= 0.15
	case (hour >= 9 && hour <= 11) || (hour >= 14 && hour <= 16):
		p += 0.1
	case hour >= 20 && hour <= 23:
		p += 0.15
	}

	return min(1, max(0, p))
}

// ShouldAct makes the single Bernoulli draw against ActProbability.
func ShouldAct(v Vector, hour int, rng *rand.Rand) bool {
	return rng.Float64() < ActProbability(v, hour)
}
