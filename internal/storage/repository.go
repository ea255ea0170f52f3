package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertCandleSQL = `INSERT INTO candles (
        bucket_ts,
        open,
        high,
        low,
        close,
        volume
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (bucket_ts) DO UPDATE
    SET
        open   = EXCLUDED.open,
        high   = EXCLUDED.high,
        low    = EXCLUDED.low,
        close  = EXCLUDED.close,
        volume = EXCLUDED.volume;`

	listCandlesBetweenSQL = `SELECT
        bucket_ts,
        open,
        high,
        low,
        close,
        volume,
        created_at
    FROM candles
    WHERE bucket_ts >= $1
      AND bucket_ts < $2
    ORDER BY bucket_ts;`

	listRecentCandlesSQL = `SELECT
        bucket_ts,
        open,
        high,
        low,
        close,
        volume,
        created_at
    FROM candles
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	countCandlesSQL = `SELECT COUNT(*) FROM candles;`

	insertSimRunSQL = `INSERT INTO sim_runs (
        variant,
        params,
        steps
    ) VALUES (
        $1,$2,$3
    )
    RETURNING id, created_at;`

	insertSimRecordSQL = `INSERT INTO sim_records (
        run_id,
        bucket_ts,
        observed_price,
        pool_price,
        fee,
        base_holdings,
        quote_holdings,
        value
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listSimRecordsSQL = `SELECT
        run_id,
        bucket_ts,
        observed_price,
        pool_price,
        fee,
        base_holdings,
        quote_holdings,
        value
    FROM sim_records
    WHERE run_id = $1
    ORDER BY bucket_ts;`

	listRecentSimRunsSQL = `SELECT
        id,
        variant,
        params,
        steps,
        created_at
    FROM sim_runs
    ORDER BY created_at DESC
    LIMIT $1;`
)

// CandleStore defines operations for candle persistence.
type CandleStore interface {
	UpsertCandles(ctx context.Context, candles []Candle) error
	ListCandlesBetween(ctx context.Context, from, to time.Time) ([]Candle, error)
	ListRecentCandles(ctx context.Context, limit int) ([]Candle, error)
	CountCandles(ctx context.Context) (int64, error)
}

// SimulationStore defines operations for simulation run auditing.
type SimulationStore interface {
	InsertSimRun(ctx context.Context, run SimRun) (SimRun, error)
	InsertSimRecords(ctx context.Context, records []SimRecord) error
	ListSimRecords(ctx context.Context, runID int64) ([]SimRecord, error)
	ListRecentSimRuns(ctx context.Context, limit int) ([]SimRun, error)
}

// Store aggregates access to candles and simulation runs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertCandles persists a batch of candles, updating rows that share a bucket.
func (s *Store) UpsertCandles(ctx context.Context, candles []Candle) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(upsertCandleSQL,
			c.Bucket,
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for range candles {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("upsert candle: %w", execErr)
		}
	}
	return nil
}

// ListCandlesBetween lists candles within a time window, oldest first.
func (s *Store) ListCandlesBetween(ctx context.Context, from, to time.Time) ([]Candle, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCandlesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list candles between: %w", queryErr)
	}
	defer rows.Close()

	candles := make([]Candle, 0)
	for rows.Next() {
		candle, scanErr := scanCandle(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		candles = append(candles, candle)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candles, nil
}

// ListRecentCandles lists the most recent candles ordered by descending bucket.
func (s *Store) ListRecentCandles(ctx context.Context, limit int) ([]Candle, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentCandlesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent candles: %w", queryErr)
	}
	defer rows.Close()

	candles := make([]Candle, 0, limit)
	for rows.Next() {
		candle, scanErr := scanCandle(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		candles = append(candles, candle)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candles, nil
}

// CountCandles counts stored candles.
func (s *Store) CountCandles(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countCandlesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count candles: %w", scanErr)
	}
	return count, nil
}

// InsertSimRun persists a simulation run header and returns it with its
// assigned id.
func (s *Store) InsertSimRun(ctx context.Context, run SimRun) (SimRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return SimRun{}, err
	}

	row := pool.QueryRow(ctx, insertSimRunSQL, run.Variant, []byte(run.Params), run.Steps)
	if scanErr := row.Scan(&run.ID, &run.CreatedAt); scanErr != nil {
		return SimRun{}, fmt.Errorf("insert sim run: %w", scanErr)
	}
	return run, nil
}

// InsertSimRecords persists per-step simulation output in a single batch.
func (s *Store) InsertSimRecords(ctx context.Context, records []SimRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertSimRecordSQL,
			rec.RunID,
			rec.Bucket,
			rec.ObservedPrice.String(),
			rec.PoolPrice.String(),
			rec.Fee.String(),
			rec.BaseHoldings.String(),
			rec.QuoteHoldings.String(),
			rec.Value.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("insert sim record: %w", execErr)
		}
	}
	return nil
}

// ListSimRecords lists the stored steps of a run, oldest first.
func (s *Store) ListSimRecords(ctx context.Context, runID int64) ([]SimRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSimRecordsSQL, runID)
	if queryErr != nil {
		return nil, fmt.Errorf("list sim records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SimRecord, 0)
	for rows.Next() {
		rec, scanErr := scanSimRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListRecentSimRuns lists the most recent simulation runs.
func (s *Store) ListRecentSimRuns(ctx context.Context, limit int) ([]SimRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSimRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent sim runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]SimRun, 0, limit)
	for rows.Next() {
		var run SimRun
		if err := rows.Scan(&run.ID, &run.Variant, &run.Params, &run.Steps, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

func scanCandle(rows pgx.Rows) (Candle, error) {
	var (
		bucket    time.Time
		openStr   string
		highStr   string
		lowStr    string
		closeStr  string
		volumeStr string
		createdAt time.Time
	)

	if err := rows.Scan(
		&bucket,
		&openStr,
		&highStr,
		&lowStr,
		&closeStr,
		&volumeStr,
		&createdAt,
	); err != nil {
		return Candle{}, err
	}

	candle := Candle{Bucket: bucket, CreatedAt: createdAt}

	var err error
	if candle.Open, err = decimal.NewFromString(openStr); err != nil {
		return Candle{}, fmt.Errorf("parse open: %w", err)
	}
	if candle.High, err = decimal.NewFromString(highStr); err != nil {
		return Candle{}, fmt.Errorf("parse high: %w", err)
	}
	if candle.Low, err = decimal.NewFromString(lowStr); err != nil {
		return Candle{}, fmt.Errorf("parse low: %w", err)
	}
	if candle.Close, err = decimal.NewFromString(closeStr); err != nil {
		return Candle{}, fmt.Errorf("parse close: %w", err)
	}
	if candle.Volume, err = decimal.NewFromString(volumeStr); err != nil {
		return Candle{}, fmt.Errorf("parse volume: %w", err)
	}

	return candle, nil
}

func scanSimRecord(rows pgx.Rows) (SimRecord, error) {
	var (
		rec          SimRecord
		observedStr  string
		poolPriceStr string
		feeStr       string
		baseStr      string
		quoteStr     string
		valueStr     string
	)

	if err := rows.Scan(
		&rec.RunID,
		&rec.Bucket,
		&observedStr,
		&poolPriceStr,
		&feeStr,
		&baseStr,
		&quoteStr,
		&valueStr,
	); err != nil {
		return SimRecord{}, err
	}

	var err error
	if rec.ObservedPrice, err = decimal.NewFromString(observedStr); err != nil {
		return SimRecord{}, fmt.Errorf("parse observed price: %w", err)
	}
	if rec.PoolPrice, err = decimal.NewFromString(poolPriceStr); err != nil {
		return SimRecord{}, fmt.Errorf("parse pool price: %w", err)
	}
	if rec.Fee, err = decimal.NewFromString(feeStr); err != nil {
		return SimRecord{}, fmt.Errorf("parse fee: %w", err)
	}
	if rec.BaseHoldings, err = decimal.NewFromString(baseStr); err != nil {
		return SimRecord{}, fmt.Errorf("parse base holdings: %w", err)
	}
	if rec.QuoteHoldings, err = decimal.NewFromString(quoteStr); err != nil {
		return SimRecord{}, fmt.Errorf("parse quote holdings: %w", err)
	}
	if rec.Value, err = decimal.NewFromString(valueStr); err != nil {
		return SimRecord{}, fmt.Errorf("parse value: %w", err)
	}

	return rec, nil
}
