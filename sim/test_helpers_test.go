package sim

import (
	"errors"
	"io"
)

// testImpression builds an impression from (adID, bid) pairs with no features.
// Advertiser IDs equal ad IDs.
func testImpression(impID int64, bids ...[2]float64) *Impression {
	imp := &Impression{ImpID: impID, Candidates: make([]AdCandidate, len(bids))}
	for i, b := range bids {
		imp.Candidates[i] = AdCandidate{AdID: int64(b[0]), AdvertiserID: int64(b[0]), BidCPC: b[1]}
	}
	return imp
}

// fixedPredictor returns the same pCTR map for every impression, restricted
// to the impression's candidates.
func fixedPredictor(pctr PCTR) Predictor {
	return PredictorFunc(func(imp *Impression) (PCTR, error) {
		out := make(PCTR, len(imp.Candidates))
		for _, c := range imp.Candidates {
			if p, ok := pctr[c.AdID]; ok {
				out[c.AdID] = p
			}
		}
		return out, nil
	})
}

// constantPredictor assigns p to every candidate.
func constantPredictor(p float64) Predictor {
	return PredictorFunc(func(imp *Impression) (PCTR, error) {
		out := make(PCTR, len(imp.Candidates))
		for _, c := range imp.Candidates {
			out[c.AdID] = p
		}
		return out, nil
	})
}

// sliceSource replays a fixed impression list.
type sliceSource struct {
	imps []*Impression
	next int
}

func newSliceSource(imps ...*Impression) *sliceSource { return &sliceSource{imps: imps} }

func (s *sliceSource) Next() (*Impression, error) {
	if s.next >= len(s.imps) {
		return nil, io.EOF
	}
	imp := s.imps[s.next]
	s.next++
	return imp, nil
}

// endlessSource produces impressions forever; the test stops it by wrapping.
type endlessSource struct {
	next int64
	bids [][2]float64
}

func (s *endlessSource) Next() (*Impression, error) {
	s.next++
	return testImpression(s.next, s.bids...), nil
}

// takeSource yields at most n impressions from src.
type takeSource struct {
	src  ImpressionSource
	left int
}

func (t *takeSource) Next() (*Impression, error) {
	if t.left <= 0 {
		return nil, io.EOF
	}
	t.left--
	return t.src.Next()
}

// errSource fails on the first read.
type errSource struct{}

func (errSource) Next() (*Impression, error) { return nil, errors.New("disk on fire") }

// stepRecorder is a StepObserver that keeps every step.
type stepRecorder struct {
	steps []*SimStepResult
}

func (r *stepRecorder) ObserveStep(step *SimStepResult) { r.steps = append(r.steps, step) }

// manyImpressions returns n identical-shape impressions with distinct IDs.
func manyImpressions(n int, bids ...[2]float64) []*Impression {
	imps := make([]*Impression, n)
	for i := range imps {
		imps[i] = testImpression(int64(i+1), bids...)
	}
	return imps
}

func defaultTestRunner(cfg RunnerConfig, predictor Predictor) *Runner {
	return NewRunner(cfg, predictor, BidTimesPCTR{}, FirstPriceOnClick{},
		PositionBiasClickModel{PositionBias: []float64{1.0, 0.7, 0.5, 0.3}})
}
