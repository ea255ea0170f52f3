package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a persisted hourly market observation, price in base units per
// quote unit.
type Candle struct {
	Bucket    time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CreatedAt time.Time
}

// SimRun captures one simulation execution: the pool variant it ran and the
// construction parameters, kept as raw JSON for auditing.
type SimRun struct {
	ID        int64
	Variant   string
	Params    json.RawMessage
	Steps     int
	CreatedAt time.Time
}

// SimRecord is one persisted simulation step.
type SimRecord struct {
	RunID         int64
	Bucket        time.Time
	ObservedPrice decimal.Decimal
	PoolPrice     decimal.Decimal
	Fee           decimal.Decimal
	BaseHoldings  decimal.Decimal
	QuoteHoldings decimal.Decimal
	Value         decimal.Decimal
}
