// Package workload provides impression sources for the simulation runner:
// a lazy synthetic generator and readers/writers for impression banks.
package workload

import (
	"io"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inference-sim/ranking-sim/sim"
)

// Feature and context keys produced by the synthetic generator.
const (
	FeatureAdQuality  = "ad_quality"
	ContextUserIntent = "user_intent"
)

// adIDStride separates ad IDs of consecutive impressions: ad_id = imp_id*stride + j.
const adIDStride = 10_000

// SyntheticConfig parameterizes the synthetic impression generator.
type SyntheticConfig struct {
	Impressions int   // number of impressions; 0 = unbounded
	Candidates  int   // candidates per impression (must be < 10000)
	Seed        int64 // workload seed, independent of the run seed
	Advertisers int   // advertiser IDs drawn uniformly from [0, Advertisers); 0 = 200
	FirstImpID  int64 // ID of the first generated impression
}

// Bid distribution: LogNormal(-0.2, 0.7) clipped to [0.05, 10].
const (
	bidLogMean = -0.2
	bidLogStd  = 0.7
	minBid     = 0.05
	maxBid     = 10.0
)

// Synthetic lazily generates impressions. Each impression draws a user
// intent ~ N(0,1); each candidate draws an advertiser, a bid and an ad
// quality ~ N(0,1). Deterministic given the config.
type Synthetic struct {
	cfg     SyntheticConfig
	rng     *rand.Rand
	normal  distuv.Normal
	bid     distuv.LogNormal
	emitted int
}

// NewSynthetic creates a generator. Panics on a negative candidate count or
// one that would collide ad IDs across impressions.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.Candidates < 0 || cfg.Candidates >= adIDStride {
		panic("NewSynthetic: Candidates must be in [0, 10000)")
	}
	if cfg.Advertisers <= 0 {
		cfg.Advertisers = 200
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemWorkload)
	return &Synthetic{
		cfg:    cfg,
		rng:    rng,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rng},
		bid:    distuv.LogNormal{Mu: bidLogMean, Sigma: bidLogStd, Src: rng},
	}
}

// Next implements sim.ImpressionSource.
func (s *Synthetic) Next() (*sim.Impression, error) {
	if s.cfg.Impressions > 0 && s.emitted >= s.cfg.Impressions {
		return nil, io.EOF
	}
	impID := s.cfg.FirstImpID + int64(s.emitted)
	s.emitted++

	imp := &sim.Impression{
		ImpID:      impID,
		Context:    map[string]float64{ContextUserIntent: s.normal.Rand()},
		Candidates: make([]sim.AdCandidate, s.cfg.Candidates),
	}
	for j := range imp.Candidates {
		imp.Candidates[j] = sim.AdCandidate{
			AdID:         impID*adIDStride + int64(j),
			AdvertiserID: int64(s.rng.Intn(s.cfg.Advertisers)),
			BidCPC:       math.Min(maxBid, math.Max(minBid, s.bid.Rand())),
			Features:     map[string]float64{FeatureAdQuality: s.normal.Rand()},
		}
	}
	return imp, nil
}

// SplitSynthetic divides cfg.Impressions across n generators with disjoint
// impression IDs and independent seeds derived from cfg.Seed, for partitioned runs.
// n is clamped to cfg.Impressions so every partition stays bounded and non-empty;
// the first cfg.Impressions%n partitions take one extra impression.
func SplitSynthetic(cfg SyntheticConfig, n int) []sim.ImpressionSource {
	if cfg.Impressions <= 0 {
		panic("SplitSynthetic: partitioning requires a bounded workload")
	}
	n = min(max(n, 1), cfg.Impressions)
	prng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	per, extra := cfg.Impressions/n, cfg.Impressions%n
	sources := make([]sim.ImpressionSource, n)
	next := cfg.FirstImpID
	for i := 0; i < n; i++ {
		part := cfg
		part.Seed = prng.ForSubsystem(sim.SubsystemPartition(i)).Int63()
		part.FirstImpID = next
		part.Impressions = per
		if i < extra {
			part.Impressions++
		}
		next += int64(part.Impressions)
		sources[i] = NewSynthetic(part)
	}
	return sources
}

// limited stops a source after n impressions.
type limited struct {
	src  sim.ImpressionSource
	left int
}

// Take returns a source yielding at most n impressions from src.
func Take(src sim.ImpressionSource, n int) sim.ImpressionSource {
	return &limited{src: src, left: n}
}

func (l *limited) Next() (*sim.Impression, error) {
	if l.left <= 0 {
		return nil, io.EOF
	}
	l.left--
	return l.src.Next()
}

// sliceSource replays a fixed slice of impressions.
type sliceSource struct {
	imps []sim.Impression
	pos  int
}

// FromSlice returns a source over imps, in order.
func FromSlice(imps []sim.Impression) sim.ImpressionSource {
	return &sliceSource{imps: imps}
}

func (s *sliceSource) Next() (*sim.Impression, error) {
	if s.pos >= len(s.imps) {
		return nil, io.EOF
	}
	imp := &s.imps[s.pos]
	s.pos++
	return imp, nil
}
