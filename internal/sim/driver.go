// Package sim drives an ordered price series through a single AMM pool
// variant under the arbitrage-to-oracle model: at every observation an
// external arbitrageur instantly trades the pool to the observed market
// price, paying the pool fee on the closing trade.
package sim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"amm-backtest/internal/amm"
)

// Variant names the pool designs a simulation can run against.
type Variant string

const (
	VariantConstantProduct Variant = "constant-product"
	VariantConcentrated    Variant = "concentrated"
	VariantStableswap      Variant = "stableswap"
)

// PricePoint is one observation of the market price. Series are ordered by
// non-decreasing timestamp; the driver trusts the supplied order.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// Record is one output row per price observation. Value marks the position
// to market in base-asset units at the observed price.
type Record struct {
	Timestamp     time.Time
	ObservedPrice float64
	PoolPrice     float64
	Fee           float64
	BaseHoldings  float64
	QuoteHoldings float64
	Value         float64
}

// Driver runs one pool instance over a price series. The driver owns the
// pool for the duration of the run and mutates it in place; it is not safe
// for concurrent use, but independent drivers over independent pools are.
type Driver struct {
	pool   amm.Pool
	logger zerolog.Logger
}

// New constructs a driver around a pool variant.
func New(pool amm.Pool, logger zerolog.Logger) *Driver {
	return &Driver{pool: pool, logger: logger.With().Str("component", "sim_driver").Logger()}
}

// Run consumes the series strictly in input order and emits one record per
// observation. A pool failure aborts the run: a malformed price series is a
// signal to fix the upstream data, not a condition to mask.
func (d *Driver) Run(series []PricePoint) ([]Record, error) {
	records := make([]Record, 0, len(series))

	for i, pt := range series {
		res, err := d.pool.SwapToPrice(pt.Price)
		if err != nil {
			return nil, fmt.Errorf("sim step %d (%s): %w", i, pt.Timestamp.Format(time.RFC3339), err)
		}

		poolPrice, err := d.pool.Price()
		if err != nil {
			return nil, fmt.Errorf("sim step %d (%s): %w", i, pt.Timestamp.Format(time.RFC3339), err)
		}

		base, quote := d.pool.Holdings(pt.Price)
		records = append(records, Record{
			Timestamp:     pt.Timestamp,
			ObservedPrice: pt.Price,
			PoolPrice:     poolPrice,
			Fee:           res.Fee,
			BaseHoldings:  base,
			QuoteHoldings: quote,
			Value:         base + quote*pt.Price,
		})
	}

	d.logger.Debug().Int("steps", len(records)).Float64("fees_total", d.pool.FeesCollected()).Msg("simulation run complete")
	return records, nil
}
