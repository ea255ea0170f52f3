package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const histoHourPath = "/data/v2/histohour"

// MarketOptions parameterise the CryptoCompare candle fetcher.
type MarketOptions struct {
	BaseURL    string
	FromSymbol string
	ToSymbol   string
	PageLimit  int
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	PageDelay  time.Duration
}

// Market fetches hourly OHLCV candles from CryptoCompare, paginating
// backwards through history and retrying transient failures with
// exponential backoff.
type Market struct {
	opts    MarketOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewMarket constructs a market-data fetcher.
func NewMarket(opts MarketOptions, logger zerolog.Logger) *Market {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://min-api.cryptocompare.com"
	}

	if opts.PageLimit <= 0 || opts.PageLimit > 2000 {
		opts.PageLimit = 2000
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}

	return &Market{
		opts:    opts,
		logger:  logger.With().Str("component", "market_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchRange retrieves all hourly candles in [from, to), oldest first. Pages
// are walked backwards from `to` using the earliest returned timestamp as the
// next cursor, mirroring the provider's toTs pagination.
func (m *Market) FetchRange(ctx context.Context, from, to time.Time) ([]Candle, error) {
	if m.opts.FromSymbol == "" || m.opts.ToSymbol == "" {
		return nil, errors.New("fetcher: fsym and tsym must be configured")
	}
	if !from.Before(to) {
		return nil, errors.New("fetcher: from must be before to")
	}

	var all []Candle
	cursor := to.UTC()

	for {
		page, err := m.fetchPage(ctx, cursor, m.opts.PageLimit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		earliest := page[0].Time
		m.logger.Debug().Time("earliest", earliest).Int("candles", len(page)).Msg("fetched candle page")

		if !earliest.After(from) {
			break
		}
		cursor = earliest.Add(-time.Second)

		// Stay polite with the public API between pages.
		if m.opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.opts.PageDelay):
			}
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })

	trimmed := all[:0]
	for _, c := range all {
		if !c.Time.Before(from) && c.Time.Before(to) {
			trimmed = append(trimmed, c)
		}
	}
	return trimmed, nil
}

// FetchLatest retrieves the most recent candles, oldest first.
func (m *Market) FetchLatest(ctx context.Context, count int) ([]Candle, error) {
	if m.opts.FromSymbol == "" || m.opts.ToSymbol == "" {
		return nil, errors.New("fetcher: fsym and tsym must be configured")
	}
	if count <= 0 {
		count = 1
	}
	if count > m.opts.PageLimit {
		count = m.opts.PageLimit
	}
	return m.fetchPage(ctx, time.Now().UTC(), count)
}

func (m *Market) fetchPage(ctx context.Context, toTs time.Time, limit int) ([]Candle, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second

	notify := func(err error, wait time.Duration) {
		m.logger.Warn().Err(err).Dur("backoff", wait).Msg("candle page fetch failed, retrying")
	}

	operation := func() ([]Candle, error) {
		return m.requestPage(ctx, toTs, limit)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(m.opts.MaxRetries)),
		backoff.WithNotify(notify))
}

func (m *Market) requestPage(ctx context.Context, toTs time.Time, limit int) ([]Candle, error) {
	query := url.Values{}
	query.Set("fsym", m.opts.FromSymbol)
	query.Set("tsym", m.opts.ToSymbol)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("toTs", strconv.FormatInt(toTs.Unix(), 10))

	endpoint := m.baseURL + histoHourPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(m.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("cryptocompare error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var body histoResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode candle payload: %w", err))
	}
	if body.Response != "Success" {
		return nil, backoff.Permanent(fmt.Errorf("cryptocompare response %q: %s", body.Response, body.Message))
	}

	candles := make([]Candle, 0, len(body.Data.Data))
	for _, row := range body.Data.Data {
		// The API pads sparse history with all-zero rows; skip them.
		if row.Close.IsZero() {
			continue
		}
		candles = append(candles, Candle{
			Time:   time.Unix(row.Time, 0).UTC(),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.VolumeFrom,
		})
	}
	return candles, nil
}

type histoResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     struct {
		Data []histoCandle `json:"Data"`
	} `json:"Data"`
}

type histoCandle struct {
	Time       int64           `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	VolumeFrom decimal.Decimal `json:"volumefrom"`
}

var _ SeriesFetcher = (*Market)(nil)
