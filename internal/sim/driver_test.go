package sim

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"amm-backtest/internal/amm"
)

func testSeries(prices ...float64) []PricePoint {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	series := make([]PricePoint, len(prices))
	for i, p := range prices {
		series[i] = PricePoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return series
}

func TestDriverConstantProductEndToEnd(t *testing.T) {
	pool, err := amm.NewConstantProductPool(1_000_000, 60_000, 30)
	if err != nil {
		t.Fatal(err)
	}

	p0, err := pool.Price()
	if err != nil {
		t.Fatal(err)
	}

	series := testSeries(p0, p0, p0*1.05)
	records, err := New(pool, zerolog.Nop()).Run(series)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != len(series) {
		t.Fatalf("got %d records, want %d", len(records), len(series))
	}

	if records[0].Fee != 0 {
		t.Fatalf("first step price unchanged, fee = %v, want 0", records[0].Fee)
	}
	if records[2].Fee <= 0 {
		t.Fatalf("third step price moved, fee = %v, want > 0", records[2].Fee)
	}

	for i, rec := range records {
		if !rec.Timestamp.Equal(series[i].Timestamp) || rec.ObservedPrice != series[i].Price {
			t.Fatalf("record %d out of order: %+v vs input %+v", i, rec, series[i])
		}
		if want := rec.BaseHoldings + rec.QuoteHoldings*rec.ObservedPrice; math.Abs(rec.Value-want) > 1e-9 {
			t.Fatalf("record %d value = %v, want %v", i, rec.Value, want)
		}
		if math.Abs(rec.PoolPrice-rec.ObservedPrice) > 1e-9 {
			t.Fatalf("record %d pool price %v did not reach observed %v", i, rec.PoolPrice, rec.ObservedPrice)
		}
	}
}

func TestDriverRunsAllVariants(t *testing.T) {
	p0 := 1_000_000.0 / 60_000.0
	series := testSeries(p0, p0*1.02, p0*0.97, p0*1.05)

	cl, err := amm.NewConcentratedLiquidityPosition(0.9*p0, 1.1*p0, 1_000_000, 60_000/p0, 30)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := amm.NewStableswapPool(1_000_000, 60_000, 200, 4)
	if err != nil {
		t.Fatal(err)
	}

	for name, pool := range map[Variant]amm.Pool{
		VariantConcentrated: cl,
		VariantStableswap:   ss,
	} {
		records, err := New(pool, zerolog.Nop()).Run(series)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(records) != len(series) {
			t.Fatalf("%s: got %d records, want %d", name, len(records), len(series))
		}
		if pool.FeesCollected() <= 0 {
			t.Fatalf("%s: no fees accrued over a moving series", name)
		}
	}
}

func TestDriverAbortsOnMalformedPrice(t *testing.T) {
	pool, err := amm.NewConstantProductPool(1_000_000, 60_000, 30)
	if err != nil {
		t.Fatal(err)
	}

	series := testSeries(16.7, -1, 18.0)
	if _, err := New(pool, zerolog.Nop()).Run(series); err == nil {
		t.Fatal("expected run to abort on non-positive price")
	}
}
