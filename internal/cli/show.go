package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"amm-backtest/internal/app"
)

var (
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent stored candles",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit: showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

var spotCmd = &cobra.Command{
	Use:   "spot",
	Short: "Read the pair's current on-chain reserve-ratio price",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Spot(cmd.Context())
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of candles to display")
}
