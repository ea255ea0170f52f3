package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"amm-backtest/internal/app"
)

var (
	simulateInput    string
	simulateFrom     string
	simulateTo       string
	simulateVariants []string
	simulateOutDir   string
	simulatePNG      string
	simulatePersist  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a price series through the configured pool variants",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			InputCSV: simulateInput,
			Variants: simulateVariants,
			OutDir:   simulateOutDir,
			PNGPath:  simulatePNG,
			Persist:  simulatePersist,
		}

		if simulateFrom != "" {
			from, err := time.Parse(time.RFC3339, simulateFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if simulateTo != "" {
			to, err := time.Parse(time.RFC3339, simulateTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateInput, "input", "", "Candle CSV to simulate against (defaults to stored candles)")
	simulateCmd.Flags().StringVar(&simulateFrom, "from", "", "Start timestamp (RFC3339, inclusive; defaults to configured lookback)")
	simulateCmd.Flags().StringVar(&simulateTo, "to", "", "End timestamp (RFC3339, exclusive; defaults to now)")
	simulateCmd.Flags().StringSliceVar(&simulateVariants, "variants", nil, "Pool variants to run (defaults to config)")
	simulateCmd.Flags().StringVar(&simulateOutDir, "out", "", "Directory for per-variant result CSVs (defaults to config)")
	simulateCmd.Flags().StringVar(&simulatePNG, "png", "", "Path to write a value comparison chart")
	simulateCmd.Flags().BoolVar(&simulatePersist, "persist", false, "Persist run output to the database")
}
