package fetcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV observation of the market price, base units per quote
// unit.
type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// SeriesFetcher retrieves an ordered historical candle series.
type SeriesFetcher interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]Candle, error)
	FetchLatest(ctx context.Context, count int) ([]Candle, error)
}

// SpotFetcher retrieves a single on-chain spot price observation.
type SpotFetcher interface {
	FetchSpot(ctx context.Context) (decimal.Decimal, uint64, error)
}
