package sim

import (
	"fmt"
)

// PricingRule prices the shown slots of a multi-slot allocation.
// ClickPrices returns, for each of the first `shown` ranked ads, the CPC
// charged if that slot is clicked. Unclicked slots are always free.
type PricingRule interface {
	ClickPrices(imp *Impression, ranked []int64, scores Scores, pctr PCTR, shown int) ([]float64, error)
}

// FirstPriceOnClick charges each clicked slot its own bid.
type FirstPriceOnClick struct{}

// ClickPrices implements PricingRule for FirstPriceOnClick.
func (FirstPriceOnClick) ClickPrices(imp *Impression, ranked []int64, _ Scores, _ PCTR, shown int) ([]float64, error) {
	prices := make([]float64, shown)
	for i := 0; i < shown; i++ {
		c, ok := imp.Candidate(ranked[i])
		if !ok {
			return nil, fmt.Errorf("first-price-on-click: ad %d: %w", ranked[i], ErrUnknownCandidate)
		}
		prices[i] = c.BidCPC
	}
	return prices, nil
}

// AuctionPricing prices a single slot with an AuctionMechanism.
// The mechanism's winner must agree with the runner's ranking.
type AuctionPricing struct {
	Mechanism AuctionMechanism
}

// ClickPrices implements PricingRule for AuctionPricing.
func (p AuctionPricing) ClickPrices(imp *Impression, ranked []int64, scores Scores, pctr PCTR, shown int) ([]float64, error) {
	if shown == 0 {
		return []float64{}, nil
	}
	if shown > 1 {
		return nil, fmt.Errorf("auction pricing covers one slot, %d shown", shown)
	}
	res, err := p.Mechanism.Run(imp, scores, pctr)
	if err != nil {
		return nil, err
	}
	if res.Winner == nil || res.Winner.AdID != ranked[0] {
		return nil, fmt.Errorf("impression %d: ranked top %d: %w", imp.ImpID, ranked[0], ErrWinnerMismatch)
	}
	return []float64{res.PriceCPC}, nil
}

// GeneralizedSecondPrice applies the single-slot second-price conversion to
// each adjacent rank pair: slot i pays
//
//	min(bid_i, score_{i+1} / max(pctr_i, Eps))
//
// where i+1 is the next ranked candidate whether shown or not. The last
// ranked candidate uses its own score. With one slot this equals SecondPriceSingleSlot.
type GeneralizedSecondPrice struct {
	Eps float64 // pCTR floor; zero means DefaultPCTRFloor
}

// ClickPrices implements PricingRule for GeneralizedSecondPrice.
func (g GeneralizedSecondPrice) ClickPrices(imp *Impression, ranked []int64, scores Scores, pctr PCTR, shown int) ([]float64, error) {
	eps := g.Eps
	if eps <= 0 {
		eps = DefaultPCTRFloor
	}
	prices := make([]float64, shown)
	for i := 0; i < shown; i++ {
		c, ok := imp.Candidate(ranked[i])
		if !ok {
			return nil, fmt.Errorf("gsp: ad %d: %w", ranked[i], ErrUnknownCandidate)
		}
		p, ok := pctr[c.AdID]
		if !ok {
			return nil, fmt.Errorf("gsp: ad %d: %w", c.AdID, ErrMissingPCTR)
		}
		threshold := scores[ranked[i]]
		if i+1 < len(ranked) {
			threshold = scores[ranked[i+1]]
		}
		prices[i] = secondPriceCPC(c.BidCPC, threshold, p, eps)
	}
	return prices, nil
}

// validPricingRules maps pricing rule names to validity. Empty selects the default.
var validPricingRules = map[string]bool{
	"":                     true,
	"first-price-on-click": true,
	"second-price":         true,
	"gsp":                  true,
}

// IsValidPricingRule returns true if name is a recognized pricing rule.
func IsValidPricingRule(name string) bool { return validPricingRules[name] }

// ValidPricingRuleNames returns sorted valid pricing rule names (excluding empty).
func ValidPricingRuleNames() []string { return validNamesList(validPricingRules) }

// NewPricingRule creates a pricing rule by name. Panics on unknown names.
func NewPricingRule(name string, eps float64) PricingRule {
	if !IsValidPricingRule(name) {
		panic(fmt.Sprintf("unknown pricing rule %q", name))
	}
	switch name {
	case "", "first-price-on-click":
		return FirstPriceOnClick{}
	case "second-price":
		return AuctionPricing{Mechanism: SecondPriceSingleSlot{Eps: eps}}
	case "gsp":
		return GeneralizedSecondPrice{Eps: eps}
	default:
		panic(fmt.Sprintf("unhandled pricing rule %q", name))
	}
}
