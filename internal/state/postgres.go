package state

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"borrow-rate-alerts/internal/config"
)

const (
	ensureTableSQL = `CREATE TABLE IF NOT EXISTS alert_state (
        key        TEXT PRIMARY KEY,
        value_ts   TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	loadStateSQL = `SELECT value_ts FROM alert_state WHERE key = $1;`

	saveStateSQL = `INSERT INTO alert_state (key, value_ts, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (key) DO UPDATE
    SET value_ts = EXCLUDED.value_ts, updated_at = now();`

	lastAlertKey = "last_alert_time"
)

// PostgresStore keeps the alert state as a single keyed row, for operators
// who want the cooldown timer to survive host recycling. Same best-effort
// contract as the file store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects a pool and ensures the backing table exists.
func NewPostgresStore(ctx context.Context, cfg config.StateConfig, logger zerolog.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse state dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create state pool: %w", err)
	}

	if _, err := pool.Exec(ctx, ensureTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure alert_state table: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "state_postgres").Logger(),
	}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// LoadLastAlertTime reads the persisted timestamp, falling back to the
// default epoch when the row is missing or the read fails.
func (s *PostgresStore) LoadLastAlertTime(ctx context.Context) time.Time {
	var ts time.Time
	if err := s.pool.QueryRow(ctx, loadStateSQL, lastAlertKey).Scan(&ts); err != nil {
		s.logger.Warn().Err(err).Msg("state read failed; assuming never alerted")
		return DefaultEpoch
	}
	return ts
}

// SaveLastAlertTime upserts the timestamp row.
func (s *PostgresStore) SaveLastAlertTime(ctx context.Context, ts time.Time) error {
	if _, err := s.pool.Exec(ctx, saveStateSQL, lastAlertKey, ts.UTC()); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
