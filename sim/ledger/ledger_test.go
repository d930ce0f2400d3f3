package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/ranking-sim/sim"
)

func shown(advertiser int64, clicked bool, price float64) sim.SlotOutcome {
	s := sim.SlotOutcome{AdvertiserID: advertiser, AdID: advertiser * 10}
	if clicked {
		s.Clicked, s.PriceCPC, s.Revenue = true, price, price
	}
	return s
}

func TestLedger_AccumulatesExactSpend(t *testing.T) {
	// GIVEN ten clicks of 0.1 for one advertiser
	l := New()
	for i := 0; i < 10; i++ {
		l.ObserveStep(sim.NewSimStepResult(int64(i), []sim.SlotOutcome{shown(7, true, 0.1), shown(8, false, 0)}))
	}

	// THEN spend is exactly 1 with no float drift
	a, ok := l.Advertiser(7)
	require.True(t, ok)
	assert.True(t, a.Spend.Equal(decimal.NewFromInt(1)), "spend %s", a.Spend)
	assert.Equal(t, 10, a.Clicks)
	assert.Equal(t, 1.0, a.CTR())
	assert.True(t, l.Total().Equal(decimal.NewFromInt(1)))

	b, ok := l.Advertiser(8)
	require.True(t, ok)
	assert.Equal(t, 10, b.Impressions)
	assert.True(t, b.Spend.IsZero())
	assert.Zero(t, b.CTR())

	_, ok = l.Advertiser(99)
	assert.False(t, ok)
}

func TestLedger_Top(t *testing.T) {
	l := New()
	l.ObserveStep(sim.NewSimStepResult(1, []sim.SlotOutcome{shown(3, true, 2.0), shown(1, true, 0.5)}))
	l.ObserveStep(sim.NewSimStepResult(2, []sim.SlotOutcome{shown(2, true, 2.0), shown(4, false, 0)}))

	top := l.Top(3)

	// spend descending, ties by ascending advertiser ID
	require.Len(t, top, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{top[0].AdvertiserID, top[1].AdvertiserID, top[2].AdvertiserID})
	assert.Len(t, l.Top(0), 4)
}

func TestLedger_AsObserver(t *testing.T) {
	var _ sim.StepObserver = New()
}
