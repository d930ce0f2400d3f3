// Tracks run-wide and per-position auction quality and revenue statistics.

package sim

import (
	"fmt"
	"io"
	"sort"
)

// positionAccum holds running sums for one slot position.
type positionAccum struct {
	impressions int
	clicks      int
	revenue     float64
	pctrSum     float64
	bidSum      float64
}

// MetricsAggregator maintains streaming statistics over simulation steps.
// Update is the only mutator; Finalize projects the sums into a Report
// without touching them. Per-step records are never retained.
//
// Not safe for concurrent use. Partitioned runs each own an aggregator and
// combine them with Merge.
type MetricsAggregator struct {
	k int // NDCG cutoff

	impressions int
	clicks      int
	revenue     float64
	shownSum    int

	ndcgSum   float64
	ndcgCount int

	positions map[int]*positionAccum
}

// NewMetricsAggregator creates an aggregator with NDCG cutoff k (the slot count).
func NewMetricsAggregator(k int) *MetricsAggregator {
	return &MetricsAggregator{
		k:         k,
		positions: make(map[int]*positionAccum),
	}
}

// Update folds one finalized step into the running sums. O(len(step.Slots)).
func (m *MetricsAggregator) Update(step *SimStepResult) {
	m.impressions++
	m.clicks += step.TotalClicks
	m.revenue += step.TotalRevenue
	m.shownSum += len(step.Slots)

	for _, s := range step.Slots {
		acc, ok := m.positions[s.Position]
		if !ok {
			acc = &positionAccum{}
			m.positions[s.Position] = acc
		}
		acc.impressions++
		if s.Clicked {
			acc.clicks++
		}
		acc.revenue += s.Revenue
		acc.pctrSum += s.PCTR
		acc.bidSum += s.BidCPC
	}

	m.ndcgSum += NDCG(step.ShownPCTRs(), m.k)
	m.ndcgCount++
}

// Merge adds other's sums into m. Sums and counts are combined separately so
// the mean NDCG of the merged aggregator weights every impression equally.
func (m *MetricsAggregator) Merge(other *MetricsAggregator) {
	m.impressions += other.impressions
	m.clicks += other.clicks
	m.revenue += other.revenue
	m.shownSum += other.shownSum
	m.ndcgSum += other.ndcgSum
	m.ndcgCount += other.ndcgCount

	for pos, o := range other.positions {
		acc, ok := m.positions[pos]
		if !ok {
			acc = &positionAccum{}
			m.positions[pos] = acc
		}
		acc.impressions += o.impressions
		acc.clicks += o.clicks
		acc.revenue += o.revenue
		acc.pctrSum += o.pctrSum
		acc.bidSum += o.bidSum
	}
}

// Impressions returns the number of steps folded in so far.
func (m *MetricsAggregator) Impressions() int { return m.impressions }

// PositionReport is the per-slot breakdown of a Report.
type PositionReport struct {
	Position         int     `json:"position"`
	Impressions      int     `json:"imps"`
	Clicks           int     `json:"clicks"`
	CTR              float64 `json:"ctr"`
	AvgPCTR          float64 `json:"avg_pctr"`
	AvgBidCPC        float64 `json:"avg_bid_cpc"`
	Revenue          float64 `json:"revenue"`
	AvgRevenuePerImp float64 `json:"avg_rev_per_imp"`
}

// Report is the finalized, immutable view of a MetricsAggregator.
type Report struct {
	Impressions int              `json:"impressions"`
	Clicks      int              `json:"clicks"`
	CTR         float64          `json:"ctr"`
	Revenue     float64          `json:"revenue"`
	ECPM        float64          `json:"ecpm"`
	AvgShown    float64          `json:"avg_shown"`
	MeanNDCG    float64          `json:"mean_ndcg"`
	NDCGK       int              `json:"ndcg_k"`
	Positions   []PositionReport `json:"pos"`
}

// Finalize projects the running sums into a Report. It does not mutate the
// aggregator, so repeated calls without Update return equal reports.
// Denominators are floored at 1.
func (m *MetricsAggregator) Finalize() *Report {
	imps := float64(max(1, m.impressions))
	r := &Report{
		Impressions: m.impressions,
		Clicks:      m.clicks,
		CTR:         float64(m.clicks) / imps,
		Revenue:     m.revenue,
		ECPM:        m.revenue / imps * 1000.0,
		AvgShown:    float64(m.shownSum) / imps,
		MeanNDCG:    m.ndcgSum / float64(max(1, m.ndcgCount)),
		NDCGK:       m.k,
		Positions:   make([]PositionReport, 0, len(m.positions)),
	}

	keys := make([]int, 0, len(m.positions))
	for pos := range m.positions {
		keys = append(keys, pos)
	}
	sort.Ints(keys)
	for _, pos := range keys {
		acc := m.positions[pos]
		n := float64(max(1, acc.impressions))
		r.Positions = append(r.Positions, PositionReport{
			Position:         pos,
			Impressions:      acc.impressions,
			Clicks:           acc.clicks,
			CTR:              float64(acc.clicks) / n,
			AvgPCTR:          acc.pctrSum / n,
			AvgBidCPC:        acc.bidSum / n,
			Revenue:          acc.revenue,
			AvgRevenuePerImp: acc.revenue / n,
		})
	}
	return r
}

// Print writes a human-readable summary of the report.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Impressions          : %d\n", r.Impressions)
	fmt.Fprintf(w, "Clicks               : %d\n", r.Clicks)
	fmt.Fprintf(w, "CTR                  : %.4f\n", r.CTR)
	fmt.Fprintf(w, "Revenue              : %.2f\n", r.Revenue)
	fmt.Fprintf(w, "eCPM                 : %.4f\n", r.ECPM)
	fmt.Fprintf(w, "Average Shown Slots  : %.3f\n", r.AvgShown)
	fmt.Fprintf(w, "Mean NDCG@%d          : %.4f\n", r.NDCGK, r.MeanNDCG)
	if len(r.Positions) > 0 {
		fmt.Fprintln(w, "--- Per Position ---")
	}
	for _, p := range r.Positions {
		fmt.Fprintf(w, "pos=%d imps=%d CTR=%.4f avg_pctr=%.4f avg_bid=%.3f avg_rev/imp=%.4f\n",
			p.Position, p.Impressions, p.CTR, p.AvgPCTR, p.AvgBidCPC, p.AvgRevenuePerImp)
	}
}
