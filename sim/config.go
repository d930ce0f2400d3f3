package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/ranking-sim/sim/trace"
)

// RankingConfig selects the ranking policy.
type RankingConfig struct {
	Policy string  `yaml:"policy"`
	Alpha  float64 `yaml:"alpha" validate:"gte=0"` // exponent for bid-times-pctr-pow
}

// PricingConfig selects the slot pricing rule.
type PricingConfig struct {
	Rule string  `yaml:"rule"`
	Eps  float64 `yaml:"eps" validate:"gte=0"` // pCTR floor for second-price conversions
}

// PredictorConfig selects the click-probability predictor.
type PredictorConfig struct {
	Kind      string  `yaml:"kind"`
	BaseRate  float64 `yaml:"base_rate" validate:"gt=0,lt=1"`
	NoiseStd  float64 `yaml:"noise_std" validate:"gte=0"`
	ModelPath string  `yaml:"model_path" validate:"required_if=Kind logistic"`
}

// WorkloadConfig describes where impressions come from: a synthetic generator
// (default) or an impression bank file.
type WorkloadConfig struct {
	Impressions int    `yaml:"impressions" validate:"gte=0"` // 0 = unbounded generator
	Candidates  int    `yaml:"candidates" validate:"gte=0"`
	Seed        int64  `yaml:"seed"`
	BankPath    string `yaml:"bank_path"`
	BankFormat  string `yaml:"bank_format" validate:"omitempty,oneof=cbor jsonl"`
	Partitions  int    `yaml:"partitions" validate:"gte=0"` // >1 splits the generator across goroutines
}

// RunConfig is the full configuration of a simulation run, loadable from YAML.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Seed         int64           `yaml:"seed"`
	Slots        int             `yaml:"slots" validate:"gte=1"`
	PositionBias []float64       `yaml:"position_bias" validate:"dive,gte=0"`
	Ranking      RankingConfig   `yaml:"ranking"`
	Pricing      PricingConfig   `yaml:"pricing"`
	Predictor    PredictorConfig `yaml:"predictor"`
	Workload     WorkloadConfig  `yaml:"workload"`
	OnError      string          `yaml:"on_error"`
	KeepSteps    bool            `yaml:"keep_steps"`
	TraceLevel   string          `yaml:"trace_level"`
	TraceTopK    int             `yaml:"trace_top_k" validate:"gte=0"`
}

// DefaultRunConfig returns the baseline experiment: four slots with decaying
// position bias, expected-value ranking, pay-bid-on-click pricing.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Seed:         42,
		Slots:        4,
		PositionBias: []float64{1.0, 0.7, 0.5, 0.3},
		Ranking:      RankingConfig{Policy: "bid-times-pctr", Alpha: 1.0},
		Pricing:      PricingConfig{Rule: "first-price-on-click", Eps: DefaultPCTRFloor},
		Predictor:    PredictorConfig{Kind: "synthetic", BaseRate: 0.02, NoiseStd: 0.6},
		Workload:     WorkloadConfig{Impressions: 50_000, Candidates: 30, Seed: 7},
		OnError:      string(ErrorPolicyAbort),
		TraceLevel:   string(trace.TraceLevelNone),
		TraceTopK:    3,
	}
}

// LoadRunConfig reads a YAML run configuration. Fields absent from the file
// keep their DefaultRunConfig values; unknown fields are an error.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	cfg := DefaultRunConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// validPredictorKinds is the set of recognized predictor kinds.
var validPredictorKinds = map[string]bool{"": true, "synthetic": true, "logistic": true}

// IsValidPredictorKind returns true if name is a recognized predictor kind.
func IsValidPredictorKind(name string) bool { return validPredictorKinds[name] }

var configValidator = validator.New()

// Validate checks names, ranges, and cross-field constraints.
func (c *RunConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	if !IsValidRankingPolicy(c.Ranking.Policy) {
		return fmt.Errorf("unknown ranking policy %q; valid: %s", c.Ranking.Policy, strings.Join(ValidRankingPolicyNames(), ", "))
	}
	if !IsValidPricingRule(c.Pricing.Rule) {
		return fmt.Errorf("unknown pricing rule %q; valid: %s", c.Pricing.Rule, strings.Join(ValidPricingRuleNames(), ", "))
	}
	if !IsValidPredictorKind(c.Predictor.Kind) {
		return fmt.Errorf("unknown predictor kind %q", c.Predictor.Kind)
	}
	if !IsValidErrorPolicy(c.OnError) {
		return fmt.Errorf("unknown error policy %q", c.OnError)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if c.Pricing.Rule == "second-price" && c.Slots != 1 {
		return fmt.Errorf("second-price pricing covers a single slot, got slots=%d", c.Slots)
	}
	if c.Workload.Partitions > 1 && (c.Workload.Impressions == 0 || c.Workload.BankPath != "") {
		return fmt.Errorf("partitions > 1 requires a bounded synthetic workload")
	}
	if c.Workload.Partitions > 1 && c.Workload.Partitions > c.Workload.Impressions {
		return fmt.Errorf("partitions (%d) exceeds impressions (%d)", c.Workload.Partitions, c.Workload.Impressions)
	}
	for i, b := range c.PositionBias {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("position_bias[%d] must be finite, got %v", i, b)
		}
	}
	if math.IsNaN(c.Ranking.Alpha) || math.IsInf(c.Ranking.Alpha, 0) {
		return fmt.Errorf("ranking alpha must be finite, got %v", c.Ranking.Alpha)
	}
	return nil
}

// RunnerConfig projects the run-level fields consumed by NewRunner.
func (c *RunConfig) RunnerConfig() RunnerConfig {
	return RunnerConfig{
		Slots:     c.Slots,
		Seed:      c.Seed,
		KeepSteps: c.KeepSteps,
		OnError:   ErrorPolicy(c.OnError),
		Label:     c.Label(),
		Trace:     trace.TraceConfig{Level: trace.TraceLevel(c.TraceLevel), TopK: c.TraceTopK},
	}
}

// Label summarizes the component configuration for run identification.
func (c *RunConfig) Label() string {
	return fmt.Sprintf("ranking=%s:%g pricing=%s:%g bias=%v predictor=%s workload=%d/%d/%d/%s",
		c.Ranking.Policy, c.Ranking.Alpha, c.Pricing.Rule, c.Pricing.Eps, c.PositionBias,
		c.Predictor.Kind, c.Workload.Impressions, c.Workload.Candidates, c.Workload.Seed, c.Workload.BankPath)
}

// validNamesList returns the non-empty keys of a validity map, sorted.
func validNamesList(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
