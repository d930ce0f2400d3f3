// Package ledger accounts advertiser spend from simulation steps with exact
// decimal arithmetic.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/inference-sim/ranking-sim/sim"
)

// AdvertiserStats is one advertiser's totals over a run.
type AdvertiserStats struct {
	AdvertiserID int64           `json:"advertiser_id"`
	Impressions  int             `json:"impressions"` // slots shown
	Clicks       int             `json:"clicks"`
	Spend        decimal.Decimal `json:"spend"`
}

// CTR returns clicks per shown slot, or 0 with no impressions.
func (a AdvertiserStats) CTR() float64 {
	if a.Impressions == 0 {
		return 0
	}
	return float64(a.Clicks) / float64(a.Impressions)
}

// Ledger accumulates per-advertiser spend. It implements sim.StepObserver.
// Not safe for concurrent use; the runner serializes observer calls.
type Ledger struct {
	advertisers map[int64]*AdvertiserStats
	total       decimal.Decimal
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{advertisers: make(map[int64]*AdvertiserStats)}
}

// ObserveStep implements sim.StepObserver.
func (l *Ledger) ObserveStep(step *sim.SimStepResult) {
	for _, s := range step.Slots {
		a, ok := l.advertisers[s.AdvertiserID]
		if !ok {
			a = &AdvertiserStats{AdvertiserID: s.AdvertiserID}
			l.advertisers[s.AdvertiserID] = a
		}
		a.Impressions++
		if s.Clicked {
			a.Clicks++
			spend := decimal.NewFromFloat(s.Revenue)
			a.Spend = a.Spend.Add(spend)
			l.total = l.total.Add(spend)
		}
	}
}

// Total returns the spend summed over all advertisers.
func (l *Ledger) Total() decimal.Decimal { return l.total }

// Advertiser returns the stats for one advertiser.
func (l *Ledger) Advertiser(id int64) (AdvertiserStats, bool) {
	a, ok := l.advertisers[id]
	if !ok {
		return AdvertiserStats{}, false
	}
	return *a, true
}

// Top returns up to n advertisers by descending spend; ties by ascending ID.
// n <= 0 returns all.
func (l *Ledger) Top(n int) []AdvertiserStats {
	rows := make([]AdvertiserStats, 0, len(l.advertisers))
	for _, a := range l.advertisers {
		rows = append(rows, *a)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Spend.Cmp(rows[j].Spend); c != 0 {
			return c > 0
		}
		return rows[i].AdvertiserID < rows[j].AdvertiserID
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
