package sim

import "math"

// Bounds applied to every predicted click probability so log-odds and
// divisions downstream stay finite.
const (
	MinPCTR = 1e-6
	MaxPCTR = 1 - 1e-6
)

// Predictor estimates click probability for every candidate of an impression.
// Implementations must be pure functions of the impression: any internal
// randomness is seeded from the impression ID.
type Predictor interface {
	PredictPCTR(imp *Impression) (PCTR, error)
}

// ClipPCTR clamps p into [MinPCTR, MaxPCTR]. NaN maps to MinPCTR.
func ClipPCTR(p float64) float64 {
	if math.IsNaN(p) {
		return MinPCTR
	}
	return math.Min(MaxPCTR, math.Max(MinPCTR, p))
}

// PredictorFunc adapts a plain function to the Predictor interface.
type PredictorFunc func(imp *Impression) (PCTR, error)

// PredictPCTR implements Predictor.
func (f PredictorFunc) PredictPCTR(imp *Impression) (PCTR, error) { return f(imp) }
