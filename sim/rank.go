package sim

import (
	"fmt"
	"sort"
)

// RankByScore orders the impression's candidate ad IDs by descending score.
// Ties keep original candidate order (stable sort), so rankings are
// deterministic for a given impression and score map.
//
// The score map must cover exactly the impression's candidates: a missing
// score, a score for an unknown ad, or a duplicated ad ID is a contract
// violation and returns an error.
func RankByScore(imp *Impression, scores Scores) ([]int64, error) {
	seen := make(map[int64]bool, len(imp.Candidates))
	ranked := make([]int64, 0, len(imp.Candidates))
	for _, c := range imp.Candidates {
		if seen[c.AdID] {
			return nil, fmt.Errorf("impression %d: ad %d: %w", imp.ImpID, c.AdID, ErrDuplicateCandidate)
		}
		seen[c.AdID] = true
		if _, ok := scores[c.AdID]; !ok {
			return nil, fmt.Errorf("impression %d: ad %d: %w", imp.ImpID, c.AdID, ErrMissingScore)
		}
		ranked = append(ranked, c.AdID)
	}
	if len(scores) != len(ranked) {
		for id := range scores {
			if !seen[id] {
				return nil, fmt.Errorf("impression %d: ad %d: %w", imp.ImpID, id, ErrUnknownCandidate)
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	return ranked, nil
}
