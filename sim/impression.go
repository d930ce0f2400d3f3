package sim

import (
	"fmt"
	"math"
)

// AdCandidate is one ad competing in an impression's auction.
// Immutable once created by the impression source.
type AdCandidate struct {
	AdID         int64              `json:"ad_id"`
	AdvertiserID int64              `json:"advertiser_id"`
	BidCPC       float64            `json:"bid_cpc"`            // cost-per-click bid, non-negative
	Features     map[string]float64 `json:"features,omitempty"` // named model inputs (e.g., "ad_quality")
}

// Impression is a single auction opportunity: the unit of simulation.
// An impression with no candidates is legal and yields a no-winner outcome.
type Impression struct {
	ImpID      int64              `json:"imp_id"`
	Context    map[string]float64 `json:"context,omitempty"` // request-level signals (e.g., "user_intent")
	Candidates []AdCandidate      `json:"candidates"`
}

// Candidate returns the candidate with the given ad ID.
func (imp *Impression) Candidate(adID int64) (AdCandidate, bool) {
	for _, c := range imp.Candidates {
		if c.AdID == adID {
			return c, true
		}
	}
	return AdCandidate{}, false
}

// Validate checks the candidates of an impression read from outside the
// process. Every bid must be finite and non-negative.
func (imp *Impression) Validate() error {
	for _, c := range imp.Candidates {
		if c.BidCPC < 0 || math.IsNaN(c.BidCPC) || math.IsInf(c.BidCPC, 0) {
			return fmt.Errorf("impression %d ad %d: bid %v: %w", imp.ImpID, c.AdID, c.BidCPC, ErrInvalidBid)
		}
	}
	return nil
}

// PCTR maps ad ID to predicted click probability.
type PCTR map[int64]float64

// Scores maps ad ID to ranking score. Higher is preferred.
type Scores map[int64]float64

// AuctionResult is the outcome of a single-slot auction mechanism.
type AuctionResult struct {
	// Winner is the top-ranked candidate (nil only when the impression has no candidates).
	Winner *AdCandidate
	// Ranked holds every candidate ad ID by descending score.
	Ranked []int64
	// PriceCPC is what the winner pays if clicked.
	PriceCPC float64
}

// SlotOutcome is one realized slot of a multi-slot allocation.
// Invariant: Revenue == PriceCPC when Clicked, else 0.
type SlotOutcome struct {
	Position     int     `json:"position"` // 0 = top slot
	AdID         int64   `json:"ad_id"`
	AdvertiserID int64   `json:"advertiser_id"`
	BidCPC       float64 `json:"bid_cpc"`
	PCTR         float64 `json:"pctr"`
	Clicked      bool    `json:"clicked"`
	PriceCPC     float64 `json:"price_cpc"`
	Revenue      float64 `json:"revenue"`
}

// SimStepResult is the per-impression outcome of the pipeline.
type SimStepResult struct {
	ImpID        int64         `json:"imp_id"`
	ShownAdIDs   []int64       `json:"shown_ad_ids"`
	Slots        []SlotOutcome `json:"slots"`
	TotalClicks  int           `json:"total_clicks"`
	TotalRevenue float64       `json:"total_revenue"`
}

// NewSimStepResult assembles a step from its slot outcomes. Shown IDs and
// impression-level totals are derived from the slots so they cannot disagree.
func NewSimStepResult(impID int64, slots []SlotOutcome) *SimStepResult {
	step := &SimStepResult{
		ImpID:      impID,
		ShownAdIDs: make([]int64, len(slots)),
		Slots:      slots,
	}
	for i, s := range slots {
		step.ShownAdIDs[i] = s.AdID
		if s.Clicked {
			step.TotalClicks++
		}
		step.TotalRevenue += s.Revenue
	}
	return step
}

// ShownPCTRs returns the predicted click probabilities of the shown slots in rank order.
func (s *SimStepResult) ShownPCTRs() []float64 {
	rels := make([]float64, len(s.Slots))
	for i, slot := range s.Slots {
		rels[i] = slot.PCTR
	}
	return rels
}
