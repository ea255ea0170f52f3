// Package profile summarises a price series before it is fed to a
// simulation: coverage, gaps, and price distribution.
package profile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"amm-backtest/internal/sim"
)

// Stats describes an hourly price series.
type Stats struct {
	Count          int
	From           time.Time
	To             time.Time
	MissingBuckets int
	Min            float64
	Max            float64
	Mean           float64
	StdDev         float64
	NonPositive    int
}

// Compute derives series statistics. The series must be ordered by
// non-decreasing timestamp.
func Compute(series []sim.PricePoint) (Stats, error) {
	if len(series) == 0 {
		return Stats{}, errors.New("profile: empty series")
	}

	stats := Stats{
		Count: len(series),
		From:  series[0].Timestamp,
		To:    series[len(series)-1].Timestamp,
		Min:   series[0].Price,
		Max:   series[0].Price,
	}

	sum := 0.0
	for i, pt := range series {
		if i > 0 && pt.Timestamp.Before(series[i-1].Timestamp) {
			return Stats{}, fmt.Errorf("profile: series out of order at index %d", i)
		}
		if pt.Price <= 0 {
			stats.NonPositive++
		}
		if pt.Price < stats.Min {
			stats.Min = pt.Price
		}
		if pt.Price > stats.Max {
			stats.Max = pt.Price
		}
		sum += pt.Price
	}
	stats.Mean = sum / float64(len(series))

	variance := 0.0
	for _, pt := range series {
		d := pt.Price - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(series)))

	// An hourly series spanning [from, to] should hold one point per hour.
	span := stats.To.Sub(stats.From)
	expected := int(span/time.Hour) + 1
	if expected > stats.Count {
		stats.MissingBuckets = expected - stats.Count
	}

	return stats, nil
}

// Render writes the stats as an aligned table.
func Render(w io.Writer, stats Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Points\t%d\n", stats.Count)
	fmt.Fprintf(tw, "From\t%s\n", stats.From.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "To\t%s\n", stats.To.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Missing hourly buckets\t%d\n", stats.MissingBuckets)
	fmt.Fprintf(tw, "Min\t%.6f\n", stats.Min)
	fmt.Fprintf(tw, "Max\t%.6f\n", stats.Max)
	fmt.Fprintf(tw, "Mean\t%.6f\n", stats.Mean)
	fmt.Fprintf(tw, "Std dev\t%.6f\n", stats.StdDev)
	fmt.Fprintf(tw, "Non-positive prices\t%d\n", stats.NonPositive)
	return tw.Flush()
}
