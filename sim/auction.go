package sim

import (
	"fmt"
	"math"
)

// DefaultPCTRFloor is the floor applied to the winner's pCTR before
// converting a score threshold into a CPC price.
const DefaultPCTRFloor = 1e-12

// AuctionMechanism decides the winner and clearing price for exactly one slot.
type AuctionMechanism interface {
	Run(imp *Impression, scores Scores, pctr PCTR) (*AuctionResult, error)
}

// SecondPriceSingleSlot is CPC second pricing under a score-based ranking.
// The second-ranked score is converted into the winner's currency:
//
//	price = min(winner_bid, second_score / max(winner_pctr, Eps))
//
// A sole candidate uses its own score as the threshold. Ties follow RankByScore.
type SecondPriceSingleSlot struct {
	Eps float64 // pCTR floor; zero means DefaultPCTRFloor
}

// Run implements AuctionMechanism for SecondPriceSingleSlot.
func (m SecondPriceSingleSlot) Run(imp *Impression, scores Scores, pctr PCTR) (*AuctionResult, error) {
	if len(imp.Candidates) == 0 {
		return &AuctionResult{Ranked: []int64{}}, nil
	}
	ranked, err := RankByScore(imp, scores)
	if err != nil {
		return nil, err
	}
	winner, _ := imp.Candidate(ranked[0])

	threshold := scores[ranked[0]]
	if len(ranked) >= 2 {
		threshold = scores[ranked[1]]
	}
	winnerPCTR, ok := pctr[winner.AdID]
	if !ok {
		return nil, fmt.Errorf("second-price: ad %d: %w", winner.AdID, ErrMissingPCTR)
	}

	return &AuctionResult{
		Winner:   &winner,
		Ranked:   ranked,
		PriceCPC: secondPriceCPC(winner.BidCPC, threshold, winnerPCTR, m.eps()),
	}, nil
}

func (m SecondPriceSingleSlot) eps() float64 {
	if m.Eps > 0 {
		return m.Eps
	}
	return DefaultPCTRFloor
}

// secondPriceCPC converts a competing score threshold into a CPC price capped by bid.
func secondPriceCPC(bid, threshold, pctr, eps float64) float64 {
	return math.Min(bid, threshold/math.Max(pctr, eps))
}
