package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"amm-backtest/internal/alerting"
	"amm-backtest/internal/config"
	"amm-backtest/internal/fetcher"
	"amm-backtest/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newMarketFetcher() *fetcher.Market {
	return fetcher.NewMarket(fetcher.MarketOptions{
		BaseURL:    a.Config.Market.BaseURL,
		FromSymbol: a.Config.Market.FromSymbol,
		ToSymbol:   a.Config.Market.ToSymbol,
		PageLimit:  a.Config.Market.PageLimit,
		Timeout:    a.Config.Market.RequestTimeout,
		MaxRetries: a.Config.Market.MaxRetries,
		UserAgent:  a.Config.Market.UserAgent,
		PageDelay:  a.Config.Market.PageDelay,
	}, a.Logger)
}

func (a *App) newSpotFetcher() *fetcher.OnChain {
	return fetcher.NewOnChain(fetcher.OnChainOptions{
		RPCURL:      a.Config.Chain.RPCURL,
		PairAddress: a.Config.Chain.PairAddress,
		Decimals0:   a.Config.Chain.Decimals0,
		Decimals1:   a.Config.Chain.Decimals1,
		Timeout:     a.Config.Chain.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) pairLabel() string {
	return a.Config.Market.FromSymbol + "/" + a.Config.Market.ToSymbol
}

// FetchOptions configure the historical fetch job.
type FetchOptions struct {
	From    *time.Time
	To      *time.Time
	CSVPath string
	DryRun  bool
}

// SimulateOptions configure a simulation run.
type SimulateOptions struct {
	InputCSV string
	From     *time.Time
	To       *time.Time
	Variants []string
	OutDir   string
	PNGPath  string
	Persist  bool
}

// ExportOptions hold parameters for exporting stored candles.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ProfileOptions configure the series profile command.
type ProfileOptions struct {
	InputCSV string
	From     *time.Time
	To       *time.Time
}

// lookbackWindow resolves an explicit window, defaulting to the configured
// lookback ending now.
func (a *App) lookbackWindow(from, to *time.Time) (time.Time, time.Time) {
	end := time.Now().UTC().Truncate(time.Hour)
	if to != nil {
		end = to.UTC()
	}
	start := end.AddDate(0, 0, -a.Config.Market.LookbackDays)
	if from != nil {
		start = from.UTC()
	}
	return start, end
}
