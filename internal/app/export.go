package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"amm-backtest/internal/storage"
)

// Export renders stored candles as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	from, to := a.lookbackWindow(opts.From, opts.To)
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	candles, err := store.ListCandlesBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		a.Logger.Info().Msg("no candles found for export window")
		return nil
	}

	downsampled := downsampleCandles(candles, opts.MaxPoints)
	a.Logger.Info().Int("total", len(candles)).Int("exported", len(downsampled)).Msg("exporting candles")

	if opts.CSVPath != "" {
		if err := writeStoredCandlesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeCandlesPNG(opts.PNGPath, a.pairLabel(), downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleCandles(candles []storage.Candle, max int) []storage.Candle {
	if max <= 0 || len(candles) <= max {
		return candles
	}

	result := make([]storage.Candle, 0, max)
	step := float64(len(candles)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(candles) {
			idx = len(candles) - 1
		}
		result = append(result, candles[idx])
	}
	return result
}

func writeStoredCandlesCSV(path string, candles []storage.Candle) error {
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

	if err := writer.Write(candleCSVHeader); err != nil {
		return err
	}
	for _, c := range candles {
		record := []string{
			c.Bucket.UTC().Format(time.RFC3339),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeCandlesPNG(path, pair string, candles []storage.Candle) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		x[i] = c.Bucket
		closes[i] = c.Close.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Close (" + pair + ")",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: x,
				YValues: closes,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

// writeValuesPNG charts the marked-to-market value of every simulated
// variant on a shared time axis.
func writeValuesPNG(path string, results []variantResult) error {
	if len(results) == 0 {
		return errors.New("no simulation results to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	series := make([]chart.Series, 0, len(results))
	for _, res := range results {
		x := make([]time.Time, len(res.records))
		y := make([]float64, len(res.records))
		for i, rec := range res.records {
			x[i] = rec.Timestamp
			y[i] = rec.Value
		}
		series = append(series, chart.TimeSeries{
			Name:    string(res.variant),
			XValues: x,
			YValues: y,
		})
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Position value (base units)",
			ValueFormatter: valueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
