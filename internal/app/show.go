package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent stored candles.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show candles")
	}
	defer closeStore()

	candles, err := store.ListRecentCandles(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		fmt.Fprintln(os.Stdout, "no candles found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tOpen\tHigh\tLow\tClose\tVolume")

	for _, c := range candles {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Bucket.UTC().Format(time.RFC3339),
			formatDecimal(c.Open, 4),
			formatDecimal(c.High, 4),
			formatDecimal(c.Low, 4),
			formatDecimal(c.Close, 4),
			formatDecimal(c.Volume, 2),
		)
	}

	writer.Flush()
	return nil
}

// Spot reads the configured pair's reserve-ratio price from chain and prints
// it alongside the block it was observed at.
func (a *App) Spot(ctx context.Context) error {
	spot := a.newSpotFetcher()

	price, block, err := spot.FetchSpot(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "pair: %s\nprice: %s\nblock: %d\n", a.Config.Chain.PairAddress, price.String(), block)
	return nil
}
