package workload

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/ranking-sim/sim"
)

func drain(t *testing.T, src sim.ImpressionSource) []*sim.Impression {
	t.Helper()
	var out []*sim.Impression
	for {
		imp, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, imp)
	}
}

func TestSynthetic_BoundedAndShaped(t *testing.T) {
	// GIVEN a bounded generator
	imps := drain(t, NewSynthetic(SyntheticConfig{Impressions: 50, Candidates: 8, Seed: 7, Advertisers: 5}))

	// THEN it yields exactly the requested impressions with well-formed candidates
	require.Len(t, imps, 50)
	for i, imp := range imps {
		assert.Equal(t, int64(i), imp.ImpID)
		assert.Contains(t, imp.Context, ContextUserIntent)
		require.Len(t, imp.Candidates, 8)
		seen := map[int64]bool{}
		for _, c := range imp.Candidates {
			assert.False(t, seen[c.AdID], "duplicate ad %d", c.AdID)
			seen[c.AdID] = true
			assert.GreaterOrEqual(t, c.BidCPC, minBid)
			assert.LessOrEqual(t, c.BidCPC, maxBid)
			assert.GreaterOrEqual(t, c.AdvertiserID, int64(0))
			assert.Less(t, c.AdvertiserID, int64(5))
			assert.Contains(t, c.Features, FeatureAdQuality)
		}
	}
}

func TestSynthetic_SameSeedSameImpressions(t *testing.T) {
	cfg := SyntheticConfig{Impressions: 20, Candidates: 5, Seed: 3}
	assert.Equal(t, drain(t, NewSynthetic(cfg)), drain(t, NewSynthetic(cfg)))

	other := cfg
	other.Seed = 4
	assert.NotEqual(t, drain(t, NewSynthetic(cfg)), drain(t, NewSynthetic(other)))
}

func TestSynthetic_ZeroCandidates(t *testing.T) {
	imps := drain(t, NewSynthetic(SyntheticConfig{Impressions: 3, Candidates: 0, Seed: 1}))
	require.Len(t, imps, 3)
	assert.Empty(t, imps[0].Candidates)
}

func TestSynthetic_UnboundedWithTake(t *testing.T) {
	imps := drain(t, Take(NewSynthetic(SyntheticConfig{Candidates: 2, Seed: 1}), 1000))
	assert.Len(t, imps, 1000)
}

func TestNewSynthetic_RejectsCandidateCount(t *testing.T) {
	assert.Panics(t, func() { NewSynthetic(SyntheticConfig{Candidates: -1}) })
	assert.Panics(t, func() { NewSynthetic(SyntheticConfig{Candidates: adIDStride}) })
}

func TestSplitSynthetic(t *testing.T) {
	// GIVEN 10 impressions split three ways
	sources := SplitSynthetic(SyntheticConfig{Impressions: 10, Candidates: 2, Seed: 9}, 3)
	require.Len(t, sources, 3)

	// THEN partitions cover disjoint contiguous ID ranges, remainder first
	var ids []int64
	sizes := make([]int, 3)
	for i, src := range sources {
		imps := drain(t, src)
		sizes[i] = len(imps)
		for _, imp := range imps {
			ids = append(ids, imp.ImpID)
		}
	}
	assert.Equal(t, []int{4, 3, 3}, sizes)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ids)

	// AND the split is reproducible
	again := SplitSynthetic(SyntheticConfig{Impressions: 10, Candidates: 2, Seed: 9}, 3)
	first := SplitSynthetic(SyntheticConfig{Impressions: 10, Candidates: 2, Seed: 9}, 3)
	assert.Equal(t, drain(t, first[2]), drain(t, again[2]))
}

func TestSplitSynthetic_MorePartitionsThanImpressions(t *testing.T) {
	// GIVEN 3 impressions split four ways
	sources := SplitSynthetic(SyntheticConfig{Impressions: 3, Candidates: 2, Seed: 1}, 4)

	// THEN the split collapses to one impression per partition
	require.Len(t, sources, 3)
	total := 0
	for i, src := range sources {
		// AND every partition is bounded
		imps := drain(t, Take(src, 1000))
		assert.Len(t, imps, 1, "partition %d", i)
		total += len(imps)
	}
	assert.Equal(t, 3, total)
}

func TestSplitSynthetic_UnboundedPanics(t *testing.T) {
	assert.Panics(t, func() { SplitSynthetic(SyntheticConfig{Candidates: 2}, 2) })
}

func TestFromSlice(t *testing.T) {
	src := FromSlice([]sim.Impression{{ImpID: 4}, {ImpID: 5}})
	imps := drain(t, src)
	require.Len(t, imps, 2)
	assert.Equal(t, int64(5), imps[1].ImpID)
}
