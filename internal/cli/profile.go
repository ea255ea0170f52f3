package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"amm-backtest/internal/app"
)

var (
	profileInput string
	profileFrom  string
	profileTo    string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Summarise the price series a simulation would run on",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ProfileOptions{
			InputCSV: profileInput,
		}

		if profileFrom != "" {
			from, err := time.Parse(time.RFC3339, profileFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if profileTo != "" {
			to, err := time.Parse(time.RFC3339, profileTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Profile(cmd.Context(), opts)
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileInput, "input", "", "Candle CSV to profile (defaults to stored candles)")
	profileCmd.Flags().StringVar(&profileFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	profileCmd.Flags().StringVar(&profileTo, "to", "", "End timestamp (RFC3339, exclusive)")
}
