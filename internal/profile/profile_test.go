package profile

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"amm-backtest/internal/sim"
)

func hourlySeries(prices ...float64) []sim.PricePoint {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	series := make([]sim.PricePoint, len(prices))
	for i, p := range prices {
		series[i] = sim.PricePoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return series
}

func TestComputeStats(t *testing.T) {
	stats, err := Compute(hourlySeries(16, 17, 18))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if stats.Count != 3 {
		t.Fatalf("Count = %d, want 3", stats.Count)
	}
	if stats.Min != 16 || stats.Max != 18 {
		t.Fatalf("Min/Max = %v/%v, want 16/18", stats.Min, stats.Max)
	}
	if stats.Mean != 17 {
		t.Fatalf("Mean = %v, want 17", stats.Mean)
	}
	want := math.Sqrt(2.0 / 3.0)
	if math.Abs(stats.StdDev-want) > 1e-12 {
		t.Fatalf("StdDev = %v, want %v", stats.StdDev, want)
	}
	if stats.MissingBuckets != 0 {
		t.Fatalf("MissingBuckets = %d, want 0", stats.MissingBuckets)
	}
}

func TestComputeCountsGapsAndBadPrices(t *testing.T) {
	series := hourlySeries(16, 17)
	// Leave a two hour hole before the final point.
	series = append(series, sim.PricePoint{
		Timestamp: series[1].Timestamp.Add(3 * time.Hour),
		Price:     -1,
	})

	stats, err := Compute(series)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if stats.MissingBuckets != 2 {
		t.Fatalf("MissingBuckets = %d, want 2", stats.MissingBuckets)
	}
	if stats.NonPositive != 1 {
		t.Fatalf("NonPositive = %d, want 1", stats.NonPositive)
	}
}

func TestComputeRejectsUnorderedSeries(t *testing.T) {
	series := hourlySeries(16, 17)
	series[0], series[1] = series[1], series[0]

	if _, err := Compute(series); err == nil {
		t.Fatal("expected error for out-of-order series")
	}
}

func TestComputeRejectsEmptySeries(t *testing.T) {
	if _, err := Compute(nil); err == nil {
		t.Fatal("expected error for empty series")
	}
}

func TestRender(t *testing.T) {
	stats, err := Compute(hourlySeries(16, 17, 18))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, stats); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Points") || !strings.Contains(out, "Std dev") {
		t.Fatalf("unexpected render output: %q", out)
	}
}
