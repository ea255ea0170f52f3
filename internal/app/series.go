package app

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"amm-backtest/internal/fetcher"
	"amm-backtest/internal/sim"
	"amm-backtest/internal/storage"
)

// storedCandleSeries reduces stored candles to the close-price series the
// simulation consumes.
func storedCandleSeries(candles []storage.Candle) []sim.PricePoint {
	series := make([]sim.PricePoint, 0, len(candles))
	for _, c := range candles {
		series = append(series, sim.PricePoint{Timestamp: c.Bucket, Price: c.Close.InexactFloat64()})
	}
	return series
}

func toStoredCandles(candles []fetcher.Candle) []storage.Candle {
	out := make([]storage.Candle, 0, len(candles))
	for _, c := range candles {
		out = append(out, storage.Candle{
			Bucket: c.Time,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return out
}

var candleCSVHeader = []string{"time", "open", "high", "low", "close", "volume"}

func writeCandlesCSV(path string, candles []fetcher.Candle) error {
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
			c.Time.UTC().Format(time.RFC3339),
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

// readSeriesCSV loads a close-price series from a candle CSV. The file must
// carry a header naming at least "time" and "close" columns; rows with a
// non-positive close are skipped the same way fetched zero-padded rows are.
func readSeriesCSV(path string) ([]sim.PricePoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s holds no data rows", path)
	}

	timeIdx, closeIdx := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "time":
			timeIdx = i
		case "close":
			closeIdx = i
		}
	}
	if timeIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("%s is missing time/close columns", path)
	}

	series := make([]sim.PricePoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		ts, err := parseSeriesTime(row[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		price, err := strconv.ParseFloat(row[closeIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse close %q: %w", i+2, row[closeIdx], err)
		}
		if price <= 0 {
			continue
		}
		series = append(series, sim.PricePoint{Timestamp: ts, Price: price})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s holds no usable prices", path)
	}
	return series, nil
}

func parseSeriesTime(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

func recordsToStored(runID int64, records []sim.Record) []storage.SimRecord {
	out := make([]storage.SimRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, storage.SimRecord{
			RunID:         runID,
			Bucket:        rec.Timestamp,
			ObservedPrice: decimal.NewFromFloat(rec.ObservedPrice),
			PoolPrice:     decimal.NewFromFloat(rec.PoolPrice),
			Fee:           decimal.NewFromFloat(rec.Fee),
			BaseHoldings:  decimal.NewFromFloat(rec.BaseHoldings),
			QuoteHoldings: decimal.NewFromFloat(rec.QuoteHoldings),
			Value:         decimal.NewFromFloat(rec.Value),
		})
	}
	return out
}
