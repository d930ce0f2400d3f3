package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(pos int, pctr, bid float64, clicked bool, price float64) SlotOutcome {
	s := SlotOutcome{Position: pos, AdID: int64(100 + pos), AdvertiserID: int64(pos), BidCPC: bid, PCTR: pctr}
	if clicked {
		s.Clicked = true
		s.PriceCPC = price
		s.Revenue = price
	}
	return s
}

func TestMetricsAggregator_Finalize(t *testing.T) {
	// GIVEN two steps: one with a click at each of two slots, one empty
	agg := NewMetricsAggregator(2)
	agg.Update(NewSimStepResult(1, []SlotOutcome{
		slot(0, 0.5, 2.0, true, 1.5),
		slot(1, 0.3, 1.0, false, 0),
	}))
	agg.Update(NewSimStepResult(2, []SlotOutcome{
		slot(0, 0.2, 4.0, false, 0),
		slot(1, 0.4, 1.0, true, 0.5),
	}))
	agg.Update(NewSimStepResult(3, nil))

	// WHEN finalized
	r := agg.Finalize()

	// THEN totals count every impression, including the empty one
	assert.Equal(t, 3, r.Impressions)
	assert.Equal(t, 2, r.Clicks)
	assert.InDelta(t, 2.0/3.0, r.CTR, 1e-12)
	assert.InDelta(t, 2.0, r.Revenue, 1e-12)
	assert.InDelta(t, 2.0/3.0*1000, r.ECPM, 1e-9)
	assert.InDelta(t, 4.0/3.0, r.AvgShown, 1e-12)
	assert.Equal(t, 2, r.NDCGK)

	// AND mean NDCG averages 1.0, the swapped pair, and 0 for the empty step
	swapped := NDCG([]float64{0.2, 0.4}, 2)
	assert.InDelta(t, (1.0+swapped+0.0)/3.0, r.MeanNDCG, 1e-12)

	// AND per-position stats are sorted and use their own denominators
	require.Len(t, r.Positions, 2)
	p0, p1 := r.Positions[0], r.Positions[1]
	assert.Equal(t, 0, p0.Position)
	assert.Equal(t, 2, p0.Impressions)
	assert.Equal(t, 1, p0.Clicks)
	assert.InDelta(t, 0.5, p0.CTR, 1e-12)
	assert.InDelta(t, 0.35, p0.AvgPCTR, 1e-12)
	assert.InDelta(t, 3.0, p0.AvgBidCPC, 1e-12)
	assert.InDelta(t, 1.5, p0.Revenue, 1e-12)
	assert.InDelta(t, 0.75, p0.AvgRevenuePerImp, 1e-12)
	assert.Equal(t, 1, p1.Position)
	assert.InDelta(t, 0.25, p1.AvgRevenuePerImp, 1e-12)
}

func TestMetricsAggregator_FinalizeIsIdempotent(t *testing.T) {
	agg := NewMetricsAggregator(4)
	agg.Update(NewSimStepResult(1, []SlotOutcome{slot(0, 0.5, 2.0, true, 2.0)}))

	first := agg.Finalize()
	second := agg.Finalize()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, agg.Impressions())
}

func TestMetricsAggregator_Empty(t *testing.T) {
	r := NewMetricsAggregator(4).Finalize()
	assert.Zero(t, r.Impressions)
	assert.Zero(t, r.CTR)
	assert.Zero(t, r.ECPM)
	assert.Zero(t, r.MeanNDCG)
	assert.Empty(t, r.Positions)
}

// TestMetricsAggregator_MergeMatchesSequential: splitting a step stream
// across two aggregators and merging equals one aggregator over all steps.
func TestMetricsAggregator_MergeMatchesSequential(t *testing.T) {
	steps := []*SimStepResult{
		NewSimStepResult(1, []SlotOutcome{slot(0, 0.5, 2.0, true, 1.0), slot(1, 0.1, 1.0, false, 0)}),
		NewSimStepResult(2, []SlotOutcome{slot(0, 0.3, 1.0, false, 0)}),
		NewSimStepResult(3, []SlotOutcome{slot(0, 0.1, 3.0, false, 0), slot(1, 0.6, 0.5, true, 0.5), slot(2, 0.2, 0.2, true, 0.2)}),
		NewSimStepResult(4, nil),
	}

	all := NewMetricsAggregator(3)
	for _, s := range steps {
		all.Update(s)
	}

	left, right := NewMetricsAggregator(3), NewMetricsAggregator(3)
	for _, s := range steps[:2] {
		left.Update(s)
	}
	for _, s := range steps[2:] {
		right.Update(s)
	}
	left.Merge(right)

	want, got := all.Finalize(), left.Finalize()
	assert.Equal(t, want.Impressions, got.Impressions)
	assert.Equal(t, want.Clicks, got.Clicks)
	assert.InDelta(t, want.Revenue, got.Revenue, 1e-12)
	assert.InDelta(t, want.MeanNDCG, got.MeanNDCG, 1e-12)
	require.Len(t, got.Positions, len(want.Positions))
	for i := range want.Positions {
		assert.Equal(t, want.Positions[i].Impressions, got.Positions[i].Impressions)
		assert.InDelta(t, want.Positions[i].AvgPCTR, got.Positions[i].AvgPCTR, 1e-12)
	}
}

func TestReport_Print(t *testing.T) {
	agg := NewMetricsAggregator(2)
	agg.Update(NewSimStepResult(1, []SlotOutcome{slot(0, 0.5, 2.0, true, 1.25)}))

	var buf bytes.Buffer
	agg.Finalize().Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Impressions          : 1")
	assert.Contains(t, out, "Mean NDCG@2")
	assert.Contains(t, out, "pos=0 imps=1")
}
