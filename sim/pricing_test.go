package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeAdAuction returns an impression ranked 1, 2, 3 under bid × pCTR
// (scores 0.6, 0.4, 0.1).
func threeAdAuction(t *testing.T) (*Impression, []int64, Scores, PCTR) {
	t.Helper()
	imp := testImpression(1, [2]float64{1, 2.0}, [2]float64{2, 2.0}, [2]float64{3, 1.0})
	pctr := PCTR{1: 0.3, 2: 0.2, 3: 0.1}
	scores, err := BidTimesPCTR{}.Score(imp, pctr)
	require.NoError(t, err)
	ranked, err := RankByScore(imp, scores)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ranked)
	return imp, ranked, scores, pctr
}

func TestFirstPriceOnClick_ChargesBid(t *testing.T) {
	imp, ranked, scores, pctr := threeAdAuction(t)
	prices, err := FirstPriceOnClick{}.ClickPrices(imp, ranked, scores, pctr, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, 2.0}, prices)
}

func TestGeneralizedSecondPrice_PaysNextScore(t *testing.T) {
	imp, ranked, scores, pctr := threeAdAuction(t)

	prices, err := GeneralizedSecondPrice{}.ClickPrices(imp, ranked, scores, pctr, 3)
	require.NoError(t, err)

	// slot 0: 0.4/0.3, slot 1: 0.1/0.2, slot 2 (last ranked): own score 0.1/0.1 capped at bid 1.0
	require.Len(t, prices, 3)
	assert.InDelta(t, 0.4/0.3, prices[0], 1e-12)
	assert.InDelta(t, 0.5, prices[1], 1e-12)
	assert.InDelta(t, 1.0, prices[2], 1e-12)
	for i, p := range prices {
		c, _ := imp.Candidate(ranked[i])
		assert.LessOrEqual(t, p, c.BidCPC)
	}
}

func TestGeneralizedSecondPrice_UnshownNextRankSetsPrice(t *testing.T) {
	// GIVEN only one slot shown out of three ranked
	imp, ranked, scores, pctr := threeAdAuction(t)

	prices, err := GeneralizedSecondPrice{}.ClickPrices(imp, ranked, scores, pctr, 1)
	require.NoError(t, err)

	// THEN the unshown runner-up still sets the price
	assert.InDelta(t, 0.4/0.3, prices[0], 1e-12)
}

func TestGeneralizedSecondPrice_OneSlotMatchesSecondPrice(t *testing.T) {
	imp, ranked, scores, pctr := threeAdAuction(t)

	gsp, err := GeneralizedSecondPrice{}.ClickPrices(imp, ranked, scores, pctr, 1)
	require.NoError(t, err)
	sp, err := AuctionPricing{Mechanism: SecondPriceSingleSlot{}}.ClickPrices(imp, ranked, scores, pctr, 1)
	require.NoError(t, err)

	assert.Equal(t, sp, gsp)
}

func TestAuctionPricing_RejectsMultipleSlots(t *testing.T) {
	imp, ranked, scores, pctr := threeAdAuction(t)
	_, err := AuctionPricing{Mechanism: SecondPriceSingleSlot{}}.ClickPrices(imp, ranked, scores, pctr, 2)
	assert.Error(t, err)
}

func TestAuctionPricing_NoShownSlots(t *testing.T) {
	prices, err := AuctionPricing{Mechanism: SecondPriceSingleSlot{}}.ClickPrices(testImpression(1), nil, Scores{}, PCTR{}, 0)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

// reversedMechanism picks the lowest-scored ad, disagreeing with RankByScore.
type reversedMechanism struct{}

func (reversedMechanism) Run(imp *Impression, scores Scores, _ PCTR) (*AuctionResult, error) {
	ranked, err := RankByScore(imp, scores)
	if err != nil {
		return nil, err
	}
	last, _ := imp.Candidate(ranked[len(ranked)-1])
	return &AuctionResult{Winner: &last, Ranked: ranked, PriceCPC: 0}, nil
}

func TestAuctionPricing_WinnerMismatch_ReturnsError(t *testing.T) {
	imp, ranked, scores, pctr := threeAdAuction(t)
	_, err := AuctionPricing{Mechanism: reversedMechanism{}}.ClickPrices(imp, ranked, scores, pctr, 1)
	assert.True(t, errors.Is(err, ErrWinnerMismatch), "got %v", err)
}

func TestNewPricingRule(t *testing.T) {
	assert.Equal(t, FirstPriceOnClick{}, NewPricingRule("", 0))
	assert.Equal(t, FirstPriceOnClick{}, NewPricingRule("first-price-on-click", 0))
	assert.Equal(t, AuctionPricing{Mechanism: SecondPriceSingleSlot{Eps: 1e-9}}, NewPricingRule("second-price", 1e-9))
	assert.Equal(t, GeneralizedSecondPrice{Eps: 1e-9}, NewPricingRule("gsp", 1e-9))
	assert.Panics(t, func() { NewPricingRule("vcg", 0) })
	assert.Equal(t, []string{"first-price-on-click", "gsp", "second-price"}, ValidPricingRuleNames())
}
