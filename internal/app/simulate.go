package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"amm-backtest/internal/amm"
	"amm-backtest/internal/sim"
	"amm-backtest/internal/storage"
)

type variantResult struct {
	variant  sim.Variant
	records  []sim.Record
	feeTotal float64
}

// Simulate replays a price series through the configured pool variants and
// writes one result CSV per variant, plus an optional comparison chart.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	series, err := a.loadSeries(ctx, opts.InputCSV, opts.From, opts.To)
	if err != nil {
		return err
	}

	variants := opts.Variants
	if len(variants) == 0 {
		variants = a.Config.Sim.Variants
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = a.Config.Sim.OutputDir
	}

	persist := opts.Persist || a.Config.Sim.Persist
	var store *storage.Store
	if persist {
		var closeStore func()
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("sim.persist requires database.dsn")
		}
		defer closeStore()
	}

	a.Logger.Info().
		Int("points", len(series)).
		Strs("variants", variants).
		Msg("starting simulation")

	results := make([]variantResult, 0, len(variants))
	for _, name := range variants {
		variant := sim.Variant(name)
		pool, err := a.buildPool(variant)
		if err != nil {
			return err
		}

		records, err := sim.New(pool, a.Logger).Run(series)
		if err != nil {
			return fmt.Errorf("simulate %s: %w", name, err)
		}

		res := variantResult{variant: variant, records: records, feeTotal: pool.FeesCollected()}
		results = append(results, res)

		path := filepath.Join(outDir, name+".csv")
		if err := writeRecordsCSV(path, records); err != nil {
			return err
		}

		last := records[len(records)-1]
		a.Logger.Info().
			Str("variant", name).
			Str("output", path).
			Float64("final_value", last.Value).
			Float64("fees_total", res.feeTotal).
			Msg("variant simulated")

		if store != nil {
			if err := a.persistRun(ctx, store, res); err != nil {
				return err
			}
		}
	}

	if opts.PNGPath != "" {
		if err := writeValuesPNG(opts.PNGPath, results); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("comparison chart written")
	}

	return nil
}

// buildPool instantiates one pool variant from the sim configuration. All
// variants start from the same nominal provision so their value curves are
// directly comparable.
func (a *App) buildPool(variant sim.Variant) (amm.Pool, error) {
	s := a.Config.Sim
	p0 := s.InitialBase / s.InitialQuote

	switch variant {
	case sim.VariantConstantProduct:
		return amm.NewConstantProductPool(s.InitialBase, s.InitialQuote, s.FeeBps)
	case sim.VariantConcentrated:
		lower := p0 * (1 - s.BandPct/100)
		upper := p0 * (1 + s.BandPct/100)
		return amm.NewConcentratedLiquidityPosition(lower, upper, s.InitialBase, s.InitialQuote/p0, s.FeeBps)
	case sim.VariantStableswap:
		return amm.NewStableswapPool(s.InitialBase, s.InitialQuote, s.Amplification, s.StableFeeBps)
	default:
		return nil, fmt.Errorf("unknown pool variant %q", variant)
	}
}

func (a *App) loadSeries(ctx context.Context, inputCSV string, from, to *time.Time) ([]sim.PricePoint, error) {
	if inputCSV != "" {
		return readSeriesCSV(inputCSV)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("no --input csv given and database.dsn not configured")
	}
	defer closeStore()

	start, end := a.lookbackWindow(from, to)
	candles, err := store.ListCandlesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, errors.New("no stored candles in window; run fetch first")
	}
	return storedCandleSeries(candles), nil
}

func (a *App) persistRun(ctx context.Context, store *storage.Store, res variantResult) error {
	params, err := json.Marshal(a.Config.Sim)
	if err != nil {
		return fmt.Errorf("marshal sim params: %w", err)
	}

	run, err := store.InsertSimRun(ctx, storage.SimRun{
		Variant: string(res.variant),
		Params:  params,
		Steps:   len(res.records),
	})
	if err != nil {
		return err
	}

	if err := store.InsertSimRecords(ctx, recordsToStored(run.ID, res.records)); err != nil {
		return err
	}

	a.Logger.Info().Int64("run_id", run.ID).Str("variant", string(res.variant)).Msg("run persisted")
	return nil
}

var recordCSVHeader = []string{"time", "observed_price", "pool_price", "fee", "base_holdings", "quote_holdings", "value"}

func writeRecordsCSV(path string, records []sim.Record) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(recordCSVHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(rec.ObservedPrice),
			formatFloat(rec.PoolPrice),
			formatFloat(rec.Fee),
			formatFloat(rec.BaseHoldings),
			formatFloat(rec.QuoteHoldings),
			formatFloat(rec.Value),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
