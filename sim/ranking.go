package sim

import (
	"fmt"
	"math"
)

// RankingPolicy assigns a score to every candidate of an impression.
// Implementations must be pure and total: one score per candidate present,
// and a missing pCTR entry for a present candidate is an error.
type RankingPolicy interface {
	Score(imp *Impression, pctr PCTR) (Scores, error)
}

// BidTimesPCTR ranks by expected value per impression: bid × pCTR.
type BidTimesPCTR struct{}

// Score implements RankingPolicy for BidTimesPCTR.
func (BidTimesPCTR) Score(imp *Impression, pctr PCTR) (Scores, error) {
	scores := make(Scores, len(imp.Candidates))
	for _, c := range imp.Candidates {
		p, ok := pctr[c.AdID]
		if !ok {
			return nil, fmt.Errorf("bid-times-pctr: ad %d: %w", c.AdID, ErrMissingPCTR)
		}
		scores[c.AdID] = c.BidCPC * p
	}
	return scores, nil
}

// BidTimesPCTRPow ranks by bid × pCTR^Alpha.
// Alpha=1 is expected-value ranking; Alpha<1 favors high-bid/low-pCTR ads,
// Alpha>1 favors high-pCTR ads.
type BidTimesPCTRPow struct {
	Alpha float64
}

// Score implements RankingPolicy for BidTimesPCTRPow.
func (p BidTimesPCTRPow) Score(imp *Impression, pctr PCTR) (Scores, error) {
	scores := make(Scores, len(imp.Candidates))
	for _, c := range imp.Candidates {
		q, ok := pctr[c.AdID]
		if !ok {
			return nil, fmt.Errorf("bid-times-pctr-pow: ad %d: %w", c.AdID, ErrMissingPCTR)
		}
		scores[c.AdID] = c.BidCPC * math.Pow(q, p.Alpha)
	}
	return scores, nil
}

// BidOnly ranks by bid alone, ignoring predicted quality.
type BidOnly struct{}

// Score implements RankingPolicy for BidOnly.
func (BidOnly) Score(imp *Impression, _ PCTR) (Scores, error) {
	scores := make(Scores, len(imp.Candidates))
	for _, c := range imp.Candidates {
		scores[c.AdID] = c.BidCPC
	}
	return scores, nil
}

// validRankingPolicies maps ranking policy names to validity. Empty selects the default.
var validRankingPolicies = map[string]bool{
	"":                   true,
	"bid-times-pctr":     true,
	"bid-times-pctr-pow": true,
	"bid-only":           true,
}

// IsValidRankingPolicy returns true if name is a recognized ranking policy.
func IsValidRankingPolicy(name string) bool { return validRankingPolicies[name] }

// ValidRankingPolicyNames returns sorted valid ranking policy names (excluding empty).
func ValidRankingPolicyNames() []string { return validNamesList(validRankingPolicies) }

// NewRankingPolicy creates a ranking policy by name. Alpha is used only by
// "bid-times-pctr-pow". Panics on unknown names (validation should catch this first).
func NewRankingPolicy(name string, alpha float64) RankingPolicy {
	if !IsValidRankingPolicy(name) {
		panic(fmt.Sprintf("unknown ranking policy %q", name))
	}
	switch name {
	case "", "bid-times-pctr":
		return BidTimesPCTR{}
	case "bid-times-pctr-pow":
		return BidTimesPCTRPow{Alpha: alpha}
	case "bid-only":
		return BidOnly{}
	default:
		panic(fmt.Sprintf("unhandled ranking policy %q", name))
	}
}
