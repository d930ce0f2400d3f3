// Package predict provides click-probability predictors for the simulator.
package predict

import (
	"math"
	"math/rand"

	"github.com/inference-sim/ranking-sim/sim"
)

// Coefficients of the synthetic generator's latent click model.
const (
	qualityWeight = 1.2
	intentWeight  = 0.8
)

// Synthetic is a toy predictor:
//
//	x = logit(BaseRate) + 1.2*ad_quality + 0.8*user_intent + N(0, NoiseStd)
//	pctr = clip(sigmoid(x))
//
// Noise comes from an RNG seeded with the impression ID, so predictions for a
// given impression are identical across runs. Absent features count as 0.
type Synthetic struct {
	BaseRate float64
	NoiseStd float64
}

// NewSynthetic creates a Synthetic predictor.
func NewSynthetic(baseRate, noiseStd float64) *Synthetic {
	return &Synthetic{BaseRate: baseRate, NoiseStd: noiseStd}
}

// PredictPCTR implements sim.Predictor.
func (s *Synthetic) PredictPCTR(imp *sim.Impression) (sim.PCTR, error) {
	rng := rand.New(rand.NewSource(imp.ImpID))
	intercept := math.Log(s.BaseRate / math.Max(1e-12, 1.0-s.BaseRate))
	intent := imp.Context["user_intent"]

	out := make(sim.PCTR, len(imp.Candidates))
	for _, c := range imp.Candidates {
		x := intercept + qualityWeight*c.Features["ad_quality"] + intentWeight*intent
		x += rng.NormFloat64() * s.NoiseStd
		out[c.AdID] = sim.ClipPCTR(sigmoid(x))
	}
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
