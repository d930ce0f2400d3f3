package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int
	EmptyAuctions      int
	MeanMargin         float64
	MaxMargin          float64
	UniqueWinners      int
	WinnerDistribution map[int64]int // advertiser ID → count of top-slot wins
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		WinnerDistribution: make(map[int64]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Rankings)
	totalMargin := 0.0
	for _, r := range st.Rankings {
		if len(r.Shown) == 0 {
			summary.EmptyAuctions++
			continue
		}
		summary.WinnerDistribution[r.TopAdvertiser]++
		totalMargin += r.Margin
		if r.Margin > summary.MaxMargin {
			summary.MaxMargin = r.Margin
		}
	}
	if filled := summary.TotalDecisions - summary.EmptyAuctions; filled > 0 {
		summary.MeanMargin = totalMargin / float64(filled)
	}

	summary.UniqueWinners = len(summary.WinnerDistribution)

	return summary
}
