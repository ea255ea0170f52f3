package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"amm-backtest/internal/alerting"
	"amm-backtest/internal/fetcher"
	"amm-backtest/internal/scheduler"
	"amm-backtest/internal/storage"
)

// topUpCandles bounds each periodic refresh; a day of hourly candles covers
// restarts and provider hiccups without re-walking history.
const topUpCandles = 24

// Run executes the long-running candle top-up service: every interval the
// latest candles are fetched, persisted, and the close is checked against
// the price-move alert threshold.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: a.Config.Scheduler.RunImmediately,
	}, a.Logger)

	loop := &runLoop{
		market:   a.newMarketFetcher(),
		notifier: a.newNotifier(),
		pair:     a.pairLabel(),
		channels: a.Config.Alerting.Channels,
		alertsOn: a.Config.Alerting.Enabled,
		logger:   a.Logger.With().Str("component", "run_loop").Logger(),
	}
	if store != nil {
		loop.store = store
	}
	if a.Config.Alerting.Enabled && a.Config.Alerting.MoveThresholdPct > 0 {
		loop.threshold = decimal.NewFromFloat(a.Config.Alerting.MoveThresholdPct)
	}

	a.Logger.Info().Str("pair", loop.pair).Msg("starting candle top-up service")
	err = sched.Run(ctx, loop.tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("candle top-up service stopped")
	return nil
}

// runLoop carries the per-tick state of the top-up service.
type runLoop struct {
	market   *fetcher.Market
	store    storage.CandleStore
	notifier alerting.Notifier
	logger   zerolog.Logger

	pair      string
	threshold decimal.Decimal
	channels  []string
	alertsOn  bool

	lastBucket time.Time
	lastClose  decimal.Decimal
}

func (l *runLoop) tick(ctx context.Context, bucket time.Time) error {
	candles, err := l.market.FetchLatest(ctx, topUpCandles)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		l.logger.Warn().Time("bucket", bucket).Msg("provider returned no candles")
		return nil
	}

	if l.store != nil {
		if err := l.store.UpsertCandles(ctx, toStoredCandles(candles)); err != nil {
			l.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to upsert candles")
		}
	}

	latest := candles[len(candles)-1]
	l.logger.Info().
		Time("bucket", bucket).
		Time("latest", latest.Time).
		Str("close", latest.Close.String()).
		Int("candles", len(candles)).
		Msg("candles refreshed")

	l.maybeAlert(ctx, latest)
	return nil
}

func (l *runLoop) maybeAlert(ctx context.Context, latest fetcher.Candle) {
	defer func() {
		l.lastBucket = latest.Time
		l.lastClose = latest.Close
	}()

	if !l.alertsOn || l.notifier == nil || l.threshold.IsZero() {
		return
	}
	if l.lastClose.IsZero() || !latest.Time.After(l.lastBucket) {
		return
	}

	move := latest.Close.Div(l.lastClose).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	if !move.Abs().GreaterThan(l.threshold) {
		return
	}

	note := alerting.Notification{
		Bucket:        latest.Time,
		Pair:          l.pair,
		Price:         latest.Close,
		PreviousPrice: l.lastClose,
		MovePct:       move,
		ThresholdPct:  l.threshold,
		Direction:     classifyMove(move),
		Channels:      l.channels,
	}
	if err := l.notifier.Notify(ctx, note); err != nil {
		l.logger.Error().Err(err).Time("bucket", latest.Time).Msg("failed to dispatch alert")
	}
}

func classifyMove(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}
