package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"amm-backtest/internal/app"
)

var (
	fetchFrom   string
	fetchTo     string
	fetchCSV    string
	fetchDryRun bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch historical hourly candles into storage and/or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.FetchOptions{
			CSVPath: fetchCSV,
			DryRun:  fetchDryRun,
		}

		if fetchFrom != "" {
			from, err := time.Parse(time.RFC3339, fetchFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if fetchTo != "" {
			to, err := time.Parse(time.RFC3339, fetchTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Fetch(cmd.Context(), opts)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Start timestamp (RFC3339, inclusive; defaults to configured lookback)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "End timestamp (RFC3339, exclusive; defaults to now)")
	fetchCmd.Flags().StringVar(&fetchCSV, "csv", "", "Also write fetched candles to this CSV path")
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "Fetch without writing anywhere")
}
