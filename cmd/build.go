package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	sim "github.com/inference-sim/ranking-sim/sim"
	"github.com/inference-sim/ranking-sim/sim/predict"
	"github.com/inference-sim/ranking-sim/sim/workload"
)

// newPredictor constructs the configured predictor.
func newPredictor(cfg sim.PredictorConfig) (sim.Predictor, error) {
	switch cfg.Kind {
	case "", "synthetic":
		return predict.NewSynthetic(cfg.BaseRate, cfg.NoiseStd), nil
	case "logistic":
		return predict.LoadLogistic(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("unknown predictor kind %q", cfg.Kind)
	}
}

// newRunner wires every component named by a validated config.
func newRunner(cfg *sim.RunConfig) (*sim.Runner, error) {
	predictor, err := newPredictor(cfg.Predictor)
	if err != nil {
		return nil, err
	}
	return sim.NewRunner(
		cfg.RunnerConfig(),
		predictor,
		sim.NewRankingPolicy(cfg.Ranking.Policy, cfg.Ranking.Alpha),
		sim.NewPricingRule(cfg.Pricing.Rule, cfg.Pricing.Eps),
		sim.PositionBiasClickModel{PositionBias: cfg.PositionBias},
	), nil
}

// openSources returns the impression sources for a run: one bank reader, one
// generator, or one generator per partition. The closer releases any open file.
func openSources(cfg *sim.RunConfig) ([]sim.ImpressionSource, func() error, error) {
	noop := func() error { return nil }
	w := cfg.Workload
	if w.BankPath != "" {
		format := workload.BankFormat(w.BankFormat)
		if format == "" {
			var err error
			if format, err = workload.FormatFromPath(w.BankPath); err != nil {
				return nil, noop, err
			}
		}
		f, err := os.Open(w.BankPath)
		if err != nil {
			return nil, noop, fmt.Errorf("opening impression bank: %w", err)
		}
		reader, err := workload.NewBankReader(f, format)
		if err != nil {
			_ = f.Close()
			return nil, noop, err
		}
		var src sim.ImpressionSource = reader
		if w.Impressions > 0 {
			src = workload.Take(reader, w.Impressions)
		}
		logrus.Infof("Replaying impression bank %s (%s)", w.BankPath, format)
		return []sim.ImpressionSource{src}, f.Close, nil
	}

	gen := workload.SyntheticConfig{Impressions: w.Impressions, Candidates: w.Candidates, Seed: w.Seed}
	if w.Partitions > 1 {
		return workload.SplitSynthetic(gen, w.Partitions), noop, nil
	}
	return []sim.ImpressionSource{workload.NewSynthetic(gen)}, noop, nil
}

// simulate drives runner over the configured impression sources.
func simulate(runner *sim.Runner, cfg *sim.RunConfig) (*sim.RunOutput, error) {
	sources, closeSources, err := openSources(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeSources(); cerr != nil {
			logrus.Warnf("closing impression source: %v", cerr)
		}
	}()
	if len(sources) > 1 {
		return runner.RunPartitions(sources)
	}
	return runner.Run(sources[0])
}
