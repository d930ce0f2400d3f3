package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	sim "github.com/inference-sim/ranking-sim/sim"
	"github.com/inference-sim/ranking-sim/sim/ledger"
	"github.com/inference-sim/ranking-sim/sim/telemetry"
	"github.com/inference-sim/ranking-sim/sim/trace"
)

// runResult is the JSON form of a run. Wall time is omitted so identical
// inputs produce byte-identical output.
type runResult struct {
	RunID     string      `json:"run_id"`
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Report    *sim.Report `json:"report"`
}

// runCmd executes one simulation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single auction simulation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		runner, err := newRunner(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		var spend *ledger.Ledger
		if ledgerTop > 0 {
			spend = ledger.New()
			runner.AddObserver(spend)
		}
		var collector *telemetry.Collector
		if metricsFile != "" {
			collector = telemetry.NewCollector(runner.RunID())
			runner.AddObserver(collector)
		}

		out, err := simulate(runner, cfg)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		format := outputFormat
		if format == "" {
			format = autoOutputFormat(os.Stdout)
		}
		if err := writeReport(os.Stdout, out, format); err != nil {
			logrus.Fatalf("%v", err)
		}
		// Keep stdout parseable in JSON mode.
		var extra io.Writer = os.Stdout
		if format == "json" {
			extra = os.Stderr
		}
		if out.Trace != nil {
			printTraceSummary(extra, trace.Summarize(out.Trace))
		}
		if spend != nil {
			printLedger(extra, spend, ledgerTop)
		}
		if stepsOut != "" {
			if err := writeSteps(stepsOut, out.Steps); err != nil {
				logrus.Fatalf("Writing steps: %v", err)
			}
			logrus.Infof("Wrote %d steps to %s", len(out.Steps), stepsOut)
		}
		if collector != nil {
			collector.SetReport(out.Report)
			if err := collector.WriteTextfile(metricsFile); err != nil {
				logrus.Fatalf("Writing metrics: %v", err)
			}
			logrus.Infof("Wrote metrics to %s", metricsFile)
		}
	},
}

// autoOutputFormat prints tables to terminals and JSON to pipes and files.
func autoOutputFormat(f *os.File) string {
	if term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "json"
}

func writeReport(w io.Writer, out *sim.RunOutput, format string) error {
	switch format {
	case "table":
		fmt.Fprintf(w, "Run ID               : %s\n", out.RunID)
		if out.Skipped > 0 {
			fmt.Fprintf(w, "Skipped Impressions  : %d\n", out.Skipped)
		}
		out.Report.Print(w)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runResult{RunID: out.RunID, Processed: out.Processed, Skipped: out.Skipped, Report: out.Report})
	default:
		return fmt.Errorf("unknown output format %q (valid: table, json)", format)
	}
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Decisions            : %d\n", s.TotalDecisions)
	fmt.Fprintf(w, "Empty Auctions       : %d\n", s.EmptyAuctions)
	fmt.Fprintf(w, "Mean Score Margin    : %.6f\n", s.MeanMargin)
	fmt.Fprintf(w, "Max Score Margin     : %.6f\n", s.MaxMargin)
	fmt.Fprintf(w, "Unique Top Winners   : %d\n", s.UniqueWinners)
}

func printLedger(w io.Writer, l *ledger.Ledger, n int) {
	fmt.Fprintf(w, "=== Advertiser Spend (total %s) ===\n", l.Total().StringFixed(2))
	for _, a := range l.Top(n) {
		fmt.Fprintf(w, "advertiser=%d imps=%d clicks=%d CTR=%.4f spend=%s\n",
			a.AdvertiserID, a.Impressions, a.Clicks, a.CTR(), a.Spend.StringFixed(4))
	}
}

// writeSteps writes one JSON object per step.
func writeSteps(path string, steps []*sim.SimStepResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for _, s := range steps {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return bw.Flush()
}
