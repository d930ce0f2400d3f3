package predict

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/ranking-sim/sim"
)

// maxReportedFields caps the field names listed in a MissingFeaturesError.
const maxReportedFields = 5

// ErrMissingFeatures matches any MissingFeaturesError via errors.Is.
var ErrMissingFeatures = errors.New("missing model features")

// MissingFeaturesError reports required inputs absent for one candidate.
// Fields holds at most five names (sorted); Total is the full count.
type MissingFeaturesError struct {
	ImpID  int64
	AdID   int64
	Fields []string
	Total  int
}

func (e *MissingFeaturesError) Error() string {
	more := ""
	if e.Total > len(e.Fields) {
		more = fmt.Sprintf(" (+%d more)", e.Total-len(e.Fields))
	}
	return fmt.Sprintf("impression %d ad %d: missing %d model features: %s%s",
		e.ImpID, e.AdID, e.Total, strings.Join(e.Fields, ", "), more)
}

// Is makes errors.Is(err, ErrMissingFeatures) true.
func (e *MissingFeaturesError) Is(target error) bool {
	return target == ErrMissingFeatures
}

// LogisticModel is a linear model over candidate features and impression
// context, loadable from YAML.
type LogisticModel struct {
	Intercept float64            `yaml:"intercept"`
	Features  map[string]float64 `yaml:"features"` // candidate feature → weight
	Context   map[string]float64 `yaml:"context"`  // impression context key → weight
}

// Logistic predicts pctr = clip(sigmoid(intercept + Σ w·x)). Every weighted
// feature and context key is required; none is imputed.
type Logistic struct {
	model        LogisticModel
	featureNames []string // sorted, for deterministic summation and error output
	contextNames []string
}

// NewLogistic creates a Logistic predictor from a model.
func NewLogistic(model LogisticModel) *Logistic {
	return &Logistic{
		model:        model,
		featureNames: sortedKeys(model.Features),
		contextNames: sortedKeys(model.Context),
	}
}

// LoadLogistic reads a LogisticModel from a YAML file with strict field checking.
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	var model LogisticModel
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&model); err != nil {
		return nil, fmt.Errorf("parsing model file %s: %w", path, err)
	}
	return NewLogistic(model), nil
}

// PredictPCTR implements sim.Predictor. Fails on the first candidate with
// missing inputs.
func (l *Logistic) PredictPCTR(imp *sim.Impression) (sim.PCTR, error) {
	base := l.model.Intercept
	var missingContext []string
	for _, name := range l.contextNames {
		v, ok := imp.Context[name]
		if !ok {
			missingContext = append(missingContext, "context."+name)
			continue
		}
		base += l.model.Context[name] * v
	}

	out := make(sim.PCTR, len(imp.Candidates))
	for _, c := range imp.Candidates {
		x := base
		missing := missingContext[:len(missingContext):len(missingContext)]
		for _, name := range l.featureNames {
			v, ok := c.Features[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			x += l.model.Features[name] * v
		}
		if len(missing) > 0 {
			return nil, newMissingFeaturesError(imp.ImpID, c.AdID, missing)
		}
		out[c.AdID] = sim.ClipPCTR(sigmoid(x))
	}
	return out, nil
}

func newMissingFeaturesError(impID, adID int64, missing []string) *MissingFeaturesError {
	fields := append([]string(nil), missing...)
	sort.Strings(fields)
	total := len(fields)
	if len(fields) > maxReportedFields {
		fields = fields[:maxReportedFields]
	}
	return &MissingFeaturesError{ImpID: impID, AdID: adID, Fields: fields, Total: total}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
