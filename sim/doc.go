// Package sim provides the core ad-auction simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - impression.go: Impression, AdCandidate, SlotOutcome and SimStepResult value types
//   - runner.go: the per-impression pipeline and the run loop
//   - metrics.go: streaming aggregation and the finalized Report
//
// # Architecture
//
// The sim package defines capability interfaces and the pipeline; concrete
// collaborators live in sub-packages:
//   - sim/predict/: click-probability predictors (synthetic, logistic model)
//   - sim/workload/: impression sources (synthetic generator, impression banks)
//   - sim/trace/: decision trace recording
//   - sim/ledger/: per-advertiser spend accounting
//   - sim/telemetry/: Prometheus export of run counters
//
// # Key Interfaces
//
// The extension points are single-method interfaces:
//   - Predictor: impression → per-candidate pCTR
//   - RankingPolicy: (impression, pCTR) → per-candidate score
//   - AuctionMechanism: single-slot winner and clearing price
//   - PricingRule: per-slot CPC charged on click for a K-slot allocation
//   - UserModel: (pCTR, position, rng) → click
//   - ImpressionSource: lazily produced impressions
//   - StepObserver: receives each finalized step
//
// # Determinism
//
// Click sampling draws from one RNG derived from the run seed
// (PartitionedRNG, SubsystemClicks) and threaded explicitly into the
// UserModel. Ranking ties keep original candidate order. The same seed,
// impression sequence, and configuration reproduce identical reports.
package sim
