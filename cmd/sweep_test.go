package cmd

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSweepAlphas(t *testing.T) {
	alphas := defaultSweepAlphas()
	require.Len(t, alphas, 10)
	assert.InDelta(t, 0.2, alphas[0], 1e-12)
	assert.InDelta(t, 2.0, alphas[9], 1e-12)
	assert.InDelta(t, 0.4, alphas[1], 1e-12)
}

func TestRunSweep_ParallelMatchesSequential(t *testing.T) {
	// GIVEN the same alphas swept sequentially and in parallel
	alphas := []float64{0.5, 1.0, 1.5}
	seq, err := runSweep(smallConfig(), alphas, 1)
	require.NoError(t, err)
	par, err := runSweep(smallConfig(), alphas, 3)
	require.NoError(t, err)

	// THEN rows are identical and in alpha order
	assert.Equal(t, seq, par)
	for i, row := range par {
		assert.Equal(t, alphas[i], row.Alpha)
	}
}

func TestRunSweep_AlphaOneMatchesExpectedValueRanking(t *testing.T) {
	rows, err := runSweep(smallConfig(), []float64{1.0}, 1)
	require.NoError(t, err)
	base := runSmall(t, smallConfig())
	assert.InDelta(t, base.Report.CTR, rows[0].CTR, 1e-12)
	assert.InDelta(t, base.Report.Revenue, rows[0].Revenue, 1e-9)
}

func TestRunSweep_RejectsUnboundedWorkload(t *testing.T) {
	// GIVEN a generator with no impression limit
	cfg := smallConfig()
	cfg.Workload.Impressions = 0

	// WHEN swept
	rows, err := runSweep(cfg, []float64{1.0}, 1)

	// THEN it fails up front instead of running forever
	assert.ErrorContains(t, err, "bounded workload")
	assert.Nil(t, rows)
}

func TestWriteSweepCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSweepCSV(&buf, []sweepRow{{Alpha: 0.5, CTR: 0.1, Revenue: 12.5, ECPM: 250, MeanNDCG: 0.9}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"alpha", "ctr", "revenue", "ecpm", "mean_ndcg"},
		{"0.5", "0.1", "12.5", "250", "0.9"},
	}, records)
}
