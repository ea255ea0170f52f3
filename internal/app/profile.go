package app

import (
	"context"
	"os"

	"amm-backtest/internal/profile"
)

// Profile summarises the price series a simulation would run on.
func (a *App) Profile(ctx context.Context, opts ProfileOptions) error {
	series, err := a.loadSeries(ctx, opts.InputCSV, opts.From, opts.To)
	if err != nil {
		return err
	}

	stats, err := profile.Compute(series)
	if err != nil {
		return err
	}

	return profile.Render(os.Stdout, stats)
}
