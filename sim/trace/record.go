// Package trace provides decision-trace recording for ranking and allocation analysis.
// It has no dependencies on sim/ and stores pure data types.
package trace

// CandidateScore captures a ranked candidate with the inputs that produced its score.
type CandidateScore struct {
	AdID         int64   `json:"ad_id"`
	AdvertiserID int64   `json:"advertiser_id"`
	Score        float64 `json:"score"`
	PCTR         float64 `json:"pctr"`
	BidCPC       float64 `json:"bid_cpc"`
}

// RankingRecord captures a single impression's ranking and allocation decision.
type RankingRecord struct {
	ImpID      int64            `json:"imp_id"`
	Shown      []int64          `json:"shown"`
	Candidates []CandidateScore `json:"candidates"` // top-k by score desc (nil if k=0)
	// Margin is top score minus second score; 0 with fewer than two candidates.
	Margin float64 `json:"margin"`
	// TopAdvertiser is the advertiser holding slot 0. Meaningful only when len(Shown) > 0.
	TopAdvertiser int64 `json:"top_advertiser"`
}
