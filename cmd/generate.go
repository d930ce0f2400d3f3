package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/ranking-sim/sim/workload"
)

var generateOut string // bank output path

// generateCmd writes a synthetic impression bank for later replay
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic impression bank (CBOR or JSONL)",
	Run: func(cmd *cobra.Command, args []string) {
		if impressions <= 0 {
			logrus.Fatalf("--impressions must be positive for a bank, got %d", impressions)
		}
		n, err := generateBank(generateOut, workload.BankFormat(bankFormat), workload.SyntheticConfig{
			Impressions: impressions,
			Candidates:  candidates,
			Seed:        workloadSeed,
		})
		if err != nil {
			logrus.Fatalf("Generating bank: %v", err)
		}
		fmt.Printf("Wrote %d impressions to %s\n", n, generateOut)
	},
}

// generateBank writes cfg's impressions to path. An empty format is inferred
// from the file extension.
func generateBank(path string, format workload.BankFormat, cfg workload.SyntheticConfig) (n int, err error) {
	if format == "" {
		if format, err = workload.FormatFromPath(path); err != nil {
			return 0, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return workload.WriteBank(f, workload.NewSynthetic(cfg), format)
}
