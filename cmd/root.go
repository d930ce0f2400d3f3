package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sim "github.com/inference-sim/ranking-sim/sim"
)

var (
	// CLI flags shared by run and sweep
	configPath   string    // YAML run config (optional)
	logLevel     string    // Log verbosity level
	seed         int64     // Seed for click sampling
	slots        int       // Number of ad slots per impression
	positionBias []float64 // Per-position click attenuation factors
	rankingName  string    // Ranking policy name
	alpha        float64   // Exponent for bid-times-pctr-pow
	pricingName  string    // Slot pricing rule name
	pctrFloor    float64   // pCTR floor for second-price conversions
	onError      string    // abort or skip on component errors

	// Predictor flags
	predictorKind string  // synthetic or logistic
	baseRate      float64 // Synthetic predictor base click rate
	noiseStd      float64 // Synthetic predictor noise
	modelPath     string  // Logistic model YAML

	// Workload flags
	impressions  int    // Impressions to generate (0 = unbounded)
	candidates   int    // Candidates per generated impression
	workloadSeed int64  // Seed for synthetic impressions
	bankPath     string // Impression bank to replay instead of generating
	bankFormat   string // cbor or jsonl (inferred from extension when empty)
	partitions   int    // Concurrent generator partitions

	// Output flags for run
	outputFormat string // table, json, or empty for auto
	traceLevel   string // none or decisions
	traceTopK    int    // Candidates kept per traced decision
	stepsOut     string // JSONL file for retained step results
	ledgerTop    int    // Advertisers printed from the spend ledger
	metricsFile  string // Prometheus textfile output
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "ranking-sim",
	Short: "Multi-slot ad auction simulator for ranking and pricing policies",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig starts from the config file (or defaults) and applies every
// flag the user set explicitly. Unset flags never override file values.
func resolveConfig(flags *pflag.FlagSet) (*sim.RunConfig, error) {
	cfg := sim.DefaultRunConfig()
	if configPath != "" {
		loaded, err := sim.LoadRunConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	applyFlagOverrides(flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *sim.RunConfig) {
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("seed", func() { cfg.Seed = seed })
	set("slots", func() { cfg.Slots = slots })
	set("position-bias", func() { cfg.PositionBias = positionBias })
	set("ranking", func() { cfg.Ranking.Policy = rankingName })
	set("alpha", func() { cfg.Ranking.Alpha = alpha })
	set("pricing", func() { cfg.Pricing.Rule = pricingName })
	set("eps", func() { cfg.Pricing.Eps = pctrFloor })
	set("on-error", func() { cfg.OnError = onError })
	set("predictor", func() { cfg.Predictor.Kind = predictorKind })
	set("base-rate", func() { cfg.Predictor.BaseRate = baseRate })
	set("noise-std", func() { cfg.Predictor.NoiseStd = noiseStd })
	set("model", func() { cfg.Predictor.ModelPath = modelPath })
	set("impressions", func() { cfg.Workload.Impressions = impressions })
	set("candidates", func() { cfg.Workload.Candidates = candidates })
	set("workload-seed", func() { cfg.Workload.Seed = workloadSeed })
	set("bank", func() { cfg.Workload.BankPath = bankPath })
	set("bank-format", func() { cfg.Workload.BankFormat = bankFormat })
	set("partitions", func() { cfg.Workload.Partitions = partitions })
	set("trace-level", func() { cfg.TraceLevel = traceLevel })
	set("trace-top-k", func() { cfg.TraceTopK = traceTopK })
	set("steps-out", func() { cfg.KeepSteps = stepsOut != "" })
}

// addSimulationFlags registers the flags shared by run and sweep.
// Defaults mirror sim.DefaultRunConfig; they only apply when set explicitly.
func addSimulationFlags(cmd *cobra.Command) {
	d := sim.DefaultRunConfig()
	cmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration file")
	cmd.Flags().Int64Var(&seed, "seed", d.Seed, "Seed for click sampling")
	cmd.Flags().IntVar(&slots, "slots", d.Slots, "Number of ad slots per impression")
	cmd.Flags().Float64SliceVar(&positionBias, "position-bias", d.PositionBias, "Comma-separated click attenuation per slot position")
	cmd.Flags().StringVar(&rankingName, "ranking", d.Ranking.Policy, "Ranking policy (bid-times-pctr, bid-times-pctr-pow, bid-only)")
	cmd.Flags().Float64Var(&alpha, "alpha", d.Ranking.Alpha, "pCTR exponent for bid-times-pctr-pow")
	cmd.Flags().StringVar(&pricingName, "pricing", d.Pricing.Rule, "Slot pricing rule (first-price-on-click, second-price, gsp)")
	cmd.Flags().Float64Var(&pctrFloor, "eps", d.Pricing.Eps, "pCTR floor for second-price conversions")
	cmd.Flags().StringVar(&onError, "on-error", d.OnError, "Component error policy (abort, skip)")

	cmd.Flags().StringVar(&predictorKind, "predictor", d.Predictor.Kind, "Predictor (synthetic, logistic)")
	cmd.Flags().Float64Var(&baseRate, "base-rate", d.Predictor.BaseRate, "Synthetic predictor base click rate")
	cmd.Flags().Float64Var(&noiseStd, "noise-std", d.Predictor.NoiseStd, "Synthetic predictor noise standard deviation")
	cmd.Flags().StringVar(&modelPath, "model", "", "Logistic model YAML file")

	cmd.Flags().IntVar(&impressions, "impressions", d.Workload.Impressions, "Impressions to generate (0 = unbounded)")
	cmd.Flags().IntVar(&candidates, "candidates", d.Workload.Candidates, "Candidates per generated impression")
	cmd.Flags().Int64Var(&workloadSeed, "workload-seed", d.Workload.Seed, "Seed for synthetic impressions")
	cmd.Flags().StringVar(&bankPath, "bank", "", "Impression bank file to replay (.cbor or .jsonl)")
	cmd.Flags().StringVar(&bankFormat, "bank-format", "", "Impression bank format (cbor, jsonl); inferred from extension when empty")
	cmd.Flags().IntVar(&partitions, "partitions", 0, "Split the synthetic workload across N concurrent partitions")
}

// init sets up persistent flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	addSimulationFlags(runCmd)
	runCmd.Flags().StringVar(&outputFormat, "output", "", "Report format (table, json); auto-detects from the terminal when empty")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, decisions)")
	runCmd.Flags().IntVar(&traceTopK, "trace-top-k", 3, "Ranked candidates kept per traced decision")
	runCmd.Flags().StringVar(&stepsOut, "steps-out", "", "Write every step result as JSON lines to this file")
	runCmd.Flags().IntVar(&ledgerTop, "ledger-top", 0, "Print the top N advertisers by spend")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	addSimulationFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepAlphas, "alphas", nil, "Comma-separated alpha values (default: 10 points from 0.2 to 2.0)")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 1, "Alpha values simulated concurrently")
	sweepCmd.Flags().StringVar(&sweepOut, "out", "alpha_sweep.csv", "CSV output path")

	generateCmd.Flags().IntVar(&impressions, "impressions", 10_000, "Impressions to generate")
	generateCmd.Flags().IntVar(&candidates, "candidates", 30, "Candidates per impression")
	generateCmd.Flags().Int64Var(&workloadSeed, "workload-seed", 7, "Seed for synthetic impressions")
	generateCmd.Flags().StringVar(&bankFormat, "format", "", "Bank format (cbor, jsonl); inferred from extension when empty")
	generateCmd.Flags().StringVar(&generateOut, "out", "impressions.cbor", "Output bank path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(generateCmd)
}
