package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/ranking-sim/sim/trace"
)

// ImpressionSource produces impressions one at a time. Next returns io.EOF
// when the source is exhausted; sources may be unbounded.
type ImpressionSource interface {
	Next() (*Impression, error)
}

// StepObserver is offered every finalized step after the aggregator has seen it.
// Observers must not modify the step.
type StepObserver interface {
	ObserveStep(step *SimStepResult)
}

// ErrorPolicy decides what happens when a component fails on one impression.
type ErrorPolicy string

const (
	// ErrorPolicyAbort stops the run and returns the error.
	ErrorPolicyAbort ErrorPolicy = "abort"
	// ErrorPolicySkip logs the error, counts the impression as skipped, and continues.
	// Skipped impressions never reach the aggregator.
	ErrorPolicySkip ErrorPolicy = "skip"
)

// validErrorPolicies maps error policy names to validity. Empty selects abort.
var validErrorPolicies = map[string]bool{"": true, "abort": true, "skip": true}

// IsValidErrorPolicy returns true if name is a recognized error policy.
func IsValidErrorPolicy(name string) bool { return validErrorPolicies[name] }

// runNamespace scopes run IDs derived from seed and configuration.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ranking-sim/run"))

// RunnerConfig groups run-level parameters.
type RunnerConfig struct {
	Slots     int         // K, number of slots per impression (must be >= 1)
	Seed      int64       // seeds the run-scoped click RNG
	KeepSteps bool        // retain every step in RunOutput.Steps
	OnError   ErrorPolicy // "abort" (default) or "skip"
	Label     string      // configuration summary folded into the run ID
	Trace     trace.TraceConfig
}

// RunOutput is the result of one pass over an impression source.
type RunOutput struct {
	RunID     string
	Report    *Report
	Processed int              // impressions folded into the report
	Skipped   int              // impressions dropped under ErrorPolicySkip
	Steps     []*SimStepResult // nil unless KeepSteps
	Trace     *trace.SimulationTrace
	WallTime  time.Duration
}

// Runner drives the per-impression pipeline:
// predict → score → rank → allocate top-K → price → sample clicks → aggregate.
// A Runner may be reused; every Run starts from a freshly seeded RNG and a
// fresh aggregator.
type Runner struct {
	config    RunnerConfig
	predictor Predictor
	policy    RankingPolicy
	pricing   PricingRule
	users     UserModel
	observers []StepObserver
}

// NewRunner creates a Runner. Panics if Slots < 1 or any component is nil.
func NewRunner(config RunnerConfig, predictor Predictor, policy RankingPolicy, pricing PricingRule, users UserModel) *Runner {
	if config.Slots < 1 {
		panic(fmt.Sprintf("NewRunner: Slots must be >= 1, got %d", config.Slots))
	}
	if predictor == nil || policy == nil || pricing == nil || users == nil {
		panic("NewRunner: predictor, policy, pricing and user model are required")
	}
	if config.OnError == "" {
		config.OnError = ErrorPolicyAbort
	}
	return &Runner{
		config:    config,
		predictor: predictor,
		policy:    policy,
		pricing:   pricing,
		users:     users,
	}
}

// AddObserver registers an observer for finalized steps.
func (r *Runner) AddObserver(o StepObserver) {
	r.observers = append(r.observers, o)
}

// RunID returns the deterministic identifier for this runner's seed and label.
func (r *Runner) RunID() string {
	return uuid.NewSHA1(runNamespace, []byte(fmt.Sprintf("%d|%d|%s", r.config.Seed, r.config.Slots, r.config.Label))).String()
}

// Run consumes src until io.EOF, one impression at a time, and returns the
// finalized report. Under ErrorPolicyAbort the first component error ends the
// run; the returned error names the impression.
func (r *Runner) Run(src ImpressionSource) (*RunOutput, error) {
	start := time.Now()
	rng := NewPartitionedRNG(NewSimulationKey(r.config.Seed)).ForSubsystem(SubsystemClicks)
	logrus.Infof("Starting run %s: slots=%d seed=%d on-error=%s", r.RunID(), r.config.Slots, r.config.Seed, r.config.OnError)

	out, agg, err := r.pass(context.Background(), src, rng, r.notify)
	if err != nil {
		return nil, err
	}
	out.Report = agg.Finalize()
	out.WallTime = time.Since(start)
	logrus.Infof("Run %s complete: processed=%d skipped=%d in %v", out.RunID, out.Processed, out.Skipped, out.WallTime)
	return out, nil
}

// RunPartitions processes independent impression sources concurrently, one
// goroutine per partition. Partition i draws clicks from its own stream
// (SubsystemPartition(i)) and its own aggregator; aggregators are merged in
// partition order, so the report depends only on seed and partition contents.
// Observers are called under a lock. The first partition error cancels the
// remaining partitions at their next impression boundary.
func (r *Runner) RunPartitions(sources []ImpressionSource) (*RunOutput, error) {
	start := time.Now()
	prng := NewPartitionedRNG(NewSimulationKey(r.config.Seed))
	rngs := make([]*rand.Rand, len(sources))
	for i := range sources {
		rngs[i] = prng.ForSubsystem(SubsystemPartition(i))
	}
	logrus.Infof("Starting partitioned run %s: partitions=%d slots=%d seed=%d", r.RunID(), len(sources), r.config.Slots, r.config.Seed)

	var mu sync.Mutex
	notify := func(step *SimStepResult) {
		mu.Lock()
		defer mu.Unlock()
		r.notify(step)
	}

	outs := make([]*RunOutput, len(sources))
	aggs := make([]*MetricsAggregator, len(sources))
	g, ctx := errgroup.WithContext(context.Background())
	for i, src := range sources {
		g.Go(func() error {
			out, agg, err := r.pass(ctx, src, rngs[i], notify)
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			outs[i], aggs[i] = out, agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewMetricsAggregator(r.config.Slots)
	total := r.newOutput()
	for i := range sources {
		merged.Merge(aggs[i])
		total.Processed += outs[i].Processed
		total.Skipped += outs[i].Skipped
		if total.Steps != nil {
			total.Steps = append(total.Steps, outs[i].Steps...)
		}
		if total.Trace != nil {
			total.Trace.Rankings = append(total.Trace.Rankings, outs[i].Trace.Rankings...)
		}
	}
	total.Report = merged.Finalize()
	total.WallTime = time.Since(start)
	logrus.Infof("Run %s complete: processed=%d skipped=%d in %v", total.RunID, total.Processed, total.Skipped, total.WallTime)
	return total, nil
}

func (r *Runner) newOutput() *RunOutput {
	out := &RunOutput{RunID: r.RunID()}
	if r.config.KeepSteps {
		out.Steps = make([]*SimStepResult, 0)
	}
	if r.config.Trace.Enabled() {
		out.Trace = trace.NewSimulationTrace(r.config.Trace)
	}
	return out
}

func (r *Runner) notify(step *SimStepResult) {
	for _, o := range r.observers {
		o.ObserveStep(step)
	}
}

// pass is one sequential sweep over src with a caller-owned RNG. It stops
// between impressions once ctx is done.
func (r *Runner) pass(ctx context.Context, src ImpressionSource, rng *rand.Rand, notify func(*SimStepResult)) (*RunOutput, *MetricsAggregator, error) {
	agg := NewMetricsAggregator(r.config.Slots)
	out := r.newOutput()

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("stopped after %d impressions: %w", out.Processed, err)
		}
		imp, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading impression: %w", err)
		}

		step, err := r.step(imp, rng, out.Trace)
		if err != nil {
			if r.config.OnError == ErrorPolicySkip {
				logrus.Warnf("Skipping impression %d: %v", imp.ImpID, err)
				out.Skipped++
				continue
			}
			return nil, nil, fmt.Errorf("impression %d: %w", imp.ImpID, err)
		}

		agg.Update(step)
		notify(step)
		if out.Steps != nil {
			out.Steps = append(out.Steps, step)
		}
		out.Processed++
		logrus.Tracef("impression %d: shown=%v clicks=%d revenue=%.4f", step.ImpID, step.ShownAdIDs, step.TotalClicks, step.TotalRevenue)
	}
	return out, agg, nil
}

// step runs the pipeline for one impression. All fallible work happens before
// the first click draw, so a failed impression consumes no randomness.
func (r *Runner) step(imp *Impression, rng *rand.Rand, tr *trace.SimulationTrace) (*SimStepResult, error) {
	pctr, err := r.predictor.PredictPCTR(imp)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	scores, err := r.policy.Score(imp, pctr)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	ranked, err := RankByScore(imp, scores)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	shown := min(r.config.Slots, len(ranked))
	prices, err := r.pricing.ClickPrices(imp, ranked, scores, pctr, shown)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	if len(prices) != shown {
		return nil, fmt.Errorf("price: %d prices for %d shown slots", len(prices), shown)
	}

	slots := make([]SlotOutcome, shown)
	for pos := 0; pos < shown; pos++ {
		c, _ := imp.Candidate(ranked[pos])
		p, ok := pctr[c.AdID]
		if !ok {
			return nil, fmt.Errorf("ad %d: %w", c.AdID, ErrMissingPCTR)
		}
		slots[pos] = SlotOutcome{
			Position:     pos,
			AdID:         c.AdID,
			AdvertiserID: c.AdvertiserID,
			BidCPC:       c.BidCPC,
			PCTR:         p,
		}
	}

	for pos := range slots {
		if r.users.SampleClick(slots[pos].PCTR, pos, rng) {
			slots[pos].Clicked = true
			slots[pos].PriceCPC = prices[pos]
			slots[pos].Revenue = prices[pos]
		}
	}

	if tr != nil {
		tr.RecordRanking(rankingRecord(imp, ranked, scores, pctr, slots, tr.Config.TopK))
	}
	return NewSimStepResult(imp.ImpID, slots), nil
}

// rankingRecord builds the trace record for one decision.
func rankingRecord(imp *Impression, ranked []int64, scores Scores, pctr PCTR, slots []SlotOutcome, topK int) trace.RankingRecord {
	rec := trace.RankingRecord{
		ImpID: imp.ImpID,
		Shown: make([]int64, len(slots)),
	}
	for i, s := range slots {
		rec.Shown[i] = s.AdID
	}
	if len(slots) > 0 {
		rec.TopAdvertiser = slots[0].AdvertiserID
	}
	if len(ranked) >= 2 {
		rec.Margin = scores[ranked[0]] - scores[ranked[1]]
	}
	k := min(topK, len(ranked))
	if k > 0 {
		rec.Candidates = make([]trace.CandidateScore, k)
		for i := 0; i < k; i++ {
			c, _ := imp.Candidate(ranked[i])
			rec.Candidates[i] = trace.CandidateScore{
				AdID:         c.AdID,
				AdvertiserID: c.AdvertiserID,
				Score:        scores[c.AdID],
				PCTR:         pctr[c.AdID],
				BidCPC:       c.BidCPC,
			}
		}
	}
	return rec
}
