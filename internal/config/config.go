package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"amm-backtest/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Market    MarketConfig    `mapstructure:"market"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Sim       SimConfig       `mapstructure:"sim"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MarketConfig covers the candle data provider.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	FromSymbol     string        `mapstructure:"from_symbol"`
	ToSymbol       string        `mapstructure:"to_symbol"`
	PageLimit      int           `mapstructure:"page_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	UserAgent      string        `mapstructure:"user_agent"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	LookbackDays   int           `mapstructure:"lookback_days"`
}

// ChainConfig covers on-chain spot price access.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	PairAddress    string        `mapstructure:"pair_address"`
	Decimals0      int32         `mapstructure:"decimals0"`
	Decimals1      int32         `mapstructure:"decimals1"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SchedulerConfig governs the candle top-up cadence.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	AlignToBucket  bool          `mapstructure:"align_to_bucket"`
	StartupDelay   time.Duration `mapstructure:"startup_delay"`
	RunImmediately bool          `mapstructure:"run_immediately"`
}

// AlertingConfig defines price-move alert thresholds and routing.
type AlertingConfig struct {
	Enabled          bool           `mapstructure:"enabled"`
	MoveThresholdPct float64        `mapstructure:"move_threshold_pct"`
	Channels         []string       `mapstructure:"channels"`
	Telegram         TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram alert channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// SimConfig parameterises the pool variants being simulated.
type SimConfig struct {
	InitialBase   float64  `mapstructure:"initial_base"`
	InitialQuote  float64  `mapstructure:"initial_quote"`
	FeeBps        float64  `mapstructure:"fee_bps"`
	StableFeeBps  float64  `mapstructure:"stable_fee_bps"`
	Amplification float64  `mapstructure:"amplification"`
	BandPct       float64  `mapstructure:"band_pct"`
	Variants      []string `mapstructure:"variants"`
	OutputDir     string   `mapstructure:"output_dir"`
	Persist       bool     `mapstructure:"persist"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ammsim")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("market.base_url", "https://min-api.cryptocompare.com")
	v.SetDefault("market.from_symbol", "USDC")
	v.SetDefault("market.to_symbol", "ZAR")
	v.SetDefault("market.page_limit", 2000)
	v.SetDefault("market.request_timeout", "10s")
	v.SetDefault("market.max_retries", 5)
	v.SetDefault("market.user_agent", "ammsim/1.0")
	v.SetDefault("market.page_delay", "250ms")
	v.SetDefault("market.lookback_days", 90)

	v.SetDefault("chain.decimals0", 6)
	v.SetDefault("chain.decimals1", 18)
	v.SetDefault("chain.request_timeout", "10s")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_immediately", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.move_threshold_pct", 2.0)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("sim.initial_base", 1000000.0)
	v.SetDefault("sim.initial_quote", 60000.0)
	v.SetDefault("sim.fee_bps", 30.0)
	v.SetDefault("sim.stable_fee_bps", 4.0)
	v.SetDefault("sim.amplification", 200.0)
	v.SetDefault("sim.band_pct", 10.0)
	v.SetDefault("sim.variants", []string{"constant-product", "concentrated", "stableswap"})
	v.SetDefault("sim.output_dir", "out")
	v.SetDefault("sim.persist", false)

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Market.FromSymbol == "" || c.Market.ToSymbol == "" {
		return fmt.Errorf("market.from_symbol and market.to_symbol are required")
	}
	if c.Market.LookbackDays <= 0 {
		return fmt.Errorf("market.lookback_days must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Sim.InitialBase <= 0 || c.Sim.InitialQuote <= 0 {
		return fmt.Errorf("sim.initial_base and sim.initial_quote must be greater than zero")
	}
	if c.Sim.FeeBps < 0 || c.Sim.StableFeeBps < 0 {
		return fmt.Errorf("sim fee rates cannot be negative")
	}
	if c.Sim.Amplification <= 0 {
		return fmt.Errorf("sim.amplification must be greater than zero")
	}
	if c.Sim.BandPct <= 0 || c.Sim.BandPct >= 100 {
		return fmt.Errorf("sim.band_pct must be between 0 and 100 exclusive")
	}
	if len(c.Sim.Variants) == 0 {
		return fmt.Errorf("sim.variants cannot be empty")
	}
	if c.Alerting.MoveThresholdPct < 0 {
		return fmt.Errorf("alerting.move_threshold_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
