package sim

import (
	"math"
	"sort"
)

// discount is the DCG weight for 0-based rank i: 1 / log2(2 + i).
func discount(i int) float64 {
	return 1.0 / math.Log2(2.0+float64(i))
}

// DCG returns the discounted cumulative gain of the first k relevances, in the given order.
// Gain is linear in relevance.
func DCG(rels []float64, k int) float64 {
	if k > len(rels) {
		k = len(rels)
	}
	s := 0.0
	for i := 0; i < k; i++ {
		s += rels[i] * discount(i)
	}
	return s
}

// NDCG returns DCG@k of rels normalized by DCG@k of rels sorted descending.
// Returns 0 when the ideal gain is <= 0 (no shown slots or all-zero relevance).
func NDCG(relsInRankOrder []float64, k int) float64 {
	d := DCG(relsInRankOrder, k)
	ideal := make([]float64, len(relsInRankOrder))
	copy(ideal, relsInRankOrder)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	id := DCG(ideal, k)
	if id <= 0 {
		return 0
	}
	return d / id
}
