package trace

import (
	"testing"
)

func TestSimulationTrace_RecordRanking_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions, TopK: 2})

	// WHEN a ranking record is recorded
	st.RecordRanking(RankingRecord{
		ImpID:         7,
		Shown:         []int64{70001, 70002},
		Margin:        0.25,
		TopAdvertiser: 12,
	})

	// THEN the trace contains one ranking record with correct data
	if len(st.Rankings) != 1 {
		t.Fatalf("expected 1 ranking, got %d", len(st.Rankings))
	}
	if st.Rankings[0].ImpID != 7 {
		t.Errorf("expected impression 7, got %d", st.Rankings[0].ImpID)
	}
	if st.Rankings[0].TopAdvertiser != 12 {
		t.Errorf("expected top advertiser 12, got %d", st.Rankings[0].TopAdvertiser)
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN multiple records are added
	st.RecordRanking(RankingRecord{ImpID: 1})
	st.RecordRanking(RankingRecord{ImpID: 2})
	st.RecordRanking(RankingRecord{ImpID: 3})

	// THEN order is preserved
	if len(st.Rankings) != 3 {
		t.Fatalf("expected 3 rankings, got %d", len(st.Rankings))
	}
	for i, r := range st.Rankings {
		if r.ImpID != int64(i+1) {
			t.Errorf("record %d: expected impression %d, got %d", i, i+1, r.ImpID)
		}
	}
}

func TestTraceConfig_Enabled(t *testing.T) {
	if (TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("none level must not be enabled")
	}
	if (TraceConfig{}).Enabled() {
		t.Error("empty level must not be enabled")
	}
	if !(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("decisions level must be enabled")
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true},
		{"detailed", false},
		{"all", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
