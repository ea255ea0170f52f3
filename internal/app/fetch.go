package app

import (
	"context"
	"errors"
)

// Fetch pulls historical hourly candles for the configured pair and lands
// them in the database and/or a CSV file.
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	from, to := a.lookbackWindow(opts.From, opts.To)
	if !from.Before(to) {
		return errors.New("fetch window is empty; check --from/--to")
	}
	if opts.DryRun {
		a.Logger.Warn().Msg("dry-run: fetched candles will not be persisted")
	} else if opts.CSVPath == "" && a.Config.Database.DSN == "" {
		return errors.New("database.dsn not configured and no --csv target given")
	}

	market := a.newMarketFetcher()

	a.Logger.Info().
		Time("from", from).
		Time("to", to).
		Str("pair", a.pairLabel()).
		Msg("fetching candle history")

	candles, err := market.FetchRange(ctx, from, to)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		a.Logger.Warn().Msg("provider returned no candles for window")
		return nil
	}
	if opts.DryRun {
		a.Logger.Info().Int("candles", len(candles)).Msg("dry-run complete")
		return nil
	}

	if opts.CSVPath != "" {
		if err := writeCandlesCSV(opts.CSVPath, candles); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("candles", len(candles)).Msg("candles written to csv")
	}

	if a.Config.Database.DSN != "" {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.UpsertCandles(ctx, toStoredCandles(candles)); err != nil {
			return err
		}

		total, err := store.CountCandles(ctx)
		if err != nil {
			return err
		}
		a.Logger.Info().Int("fetched", len(candles)).Int64("stored_total", total).Msg("candles persisted")
	}

	return nil
}
