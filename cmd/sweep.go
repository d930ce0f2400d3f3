package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	sim "github.com/inference-sim/ranking-sim/sim"
)

var (
	sweepAlphas   []float64 // pCTR exponents to evaluate
	sweepParallel int       // concurrent alpha runs
	sweepOut      string    // CSV output path
)

// sweepRow is one alpha's headline metrics.
type sweepRow struct {
	Alpha    float64
	CTR      float64
	Revenue  float64
	ECPM     float64
	MeanNDCG float64
}

// defaultSweepAlphas is 10 evenly spaced exponents from 0.2 to 2.0.
func defaultSweepAlphas() []float64 {
	return floats.Span(make([]float64, 10), 0.2, 2.0)
}

// sweepCmd runs the bid-times-pctr-pow policy over a range of alphas
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep the pCTR exponent of the bid-times-pctr-pow ranking policy",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		alphas := sweepAlphas
		if len(alphas) == 0 {
			alphas = defaultSweepAlphas()
		}
		rows, err := runSweep(cfg, alphas, sweepParallel)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}

		f, err := os.Create(sweepOut)
		if err != nil {
			logrus.Fatalf("Creating %s: %v", sweepOut, err)
		}
		if err := writeSweepCSV(f, rows); err != nil {
			_ = f.Close()
			logrus.Fatalf("Writing %s: %v", sweepOut, err)
		}
		if err := f.Close(); err != nil {
			logrus.Fatalf("Closing %s: %v", sweepOut, err)
		}
		fmt.Printf("Saved %d sweep rows to %s\n", len(rows), sweepOut)
	},
}

// runSweep simulates every alpha against the same workload and click seed.
// Rows come back in alpha order regardless of parallelism. The workload must
// be bounded: a generator with no impression limit or a bank.
func runSweep(base *sim.RunConfig, alphas []float64, parallel int) ([]sweepRow, error) {
	if base.Workload.Impressions == 0 && base.Workload.BankPath == "" {
		return nil, fmt.Errorf("sweep requires a bounded workload: set impressions > 0 or a bank")
	}
	rows := make([]sweepRow, len(alphas))
	var g errgroup.Group
	g.SetLimit(max(1, parallel))
	for i, a := range alphas {
		g.Go(func() error {
			cfg := *base
			cfg.Ranking = sim.RankingConfig{Policy: "bid-times-pctr-pow", Alpha: a}
			cfg.KeepSteps = false
			cfg.TraceLevel = "none"
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("alpha=%g: %w", a, err)
			}
			runner, err := newRunner(&cfg)
			if err != nil {
				return fmt.Errorf("alpha=%g: %w", a, err)
			}
			out, err := simulate(runner, &cfg)
			if err != nil {
				return fmt.Errorf("alpha=%g: %w", a, err)
			}
			r := out.Report
			rows[i] = sweepRow{Alpha: a, CTR: r.CTR, Revenue: r.Revenue, ECPM: r.ECPM, MeanNDCG: r.MeanNDCG}
			logrus.Infof("alpha=%.3f CTR=%.4f revenue=%.2f eCPM=%.4f NDCG=%.4f", a, r.CTR, r.Revenue, r.ECPM, r.MeanNDCG)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ctrs := make([]float64, len(rows))
	for i, row := range rows {
		ctrs[i] = row.CTR
	}
	if len(ctrs) > 0 {
		logrus.Infof("Sweep over %d alphas: mean CTR %.4f (stddev %.4f)", len(rows), stat.Mean(ctrs, nil), stat.StdDev(ctrs, nil))
	}
	return rows, nil
}

func writeSweepCSV(w io.Writer, rows []sweepRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"alpha", "ctr", "revenue", "ecpm", "mean_ndcg"}); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range rows {
		if err := cw.Write([]string{format(r.Alpha), format(r.CTR), format(r.Revenue), format(r.ECPM), format(r.MeanNDCG)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
