package sim

import (
	"math"
	"math/rand"
)

// UserModel decides whether a user clicks an ad shown at a slot position.
// The RNG is owned by the run and passed in; implementations must not keep their own.
type UserModel interface {
	SampleClick(pctr float64, position int, rng *rand.Rand) bool
}

// PositionBiasClickModel attenuates pCTR by a per-position factor:
//
//	click_prob = clip(pctr * PositionBias[position], 0, 1)
//
// Positions outside PositionBias use factor 1.0. Factors are conventionally
// non-increasing and <= 1 but this is not enforced.
type PositionBiasClickModel struct {
	PositionBias []float64
}

// ClickProbability returns the attenuated click probability for a slot.
func (m PositionBiasClickModel) ClickProbability(pctr float64, position int) float64 {
	bias := 1.0
	if position >= 0 && position < len(m.PositionBias) {
		bias = m.PositionBias[position]
	}
	return math.Min(1, math.Max(0, pctr*bias))
}

// SampleClick implements UserModel with one Bernoulli draw.
func (m PositionBiasClickModel) SampleClick(pctr float64, position int, rng *rand.Rand) bool {
	return rng.Float64() < m.ClickProbability(pctr, position)
}
