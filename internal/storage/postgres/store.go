package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityAdapter/internal/model"
	"liquidityAdapter/internal/storage"
)

// Schema creates the positions table.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	id             TEXT PRIMARY KEY,
	pool_address   TEXT NOT NULL,
	family         TEXT NOT NULL,
	pool_units     JSONB NOT NULL,
	lockup_seconds BIGINT NOT NULL,
	opened_at      TIMESTAMPTZ NOT NULL,
	matures_at     TIMESTAMPTZ NOT NULL,
	adapter_data   TEXT NOT NULL,
	closed_at      TIMESTAMPTZ,
	resources      JSONB,
	fees           JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var _ storage.PositionStore = (*Store)(nil)

// Store persists position records in Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore connects to dsn, retrying the initial ping.
func NewStore(ctx context.Context, dsn string, retries int, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	err = storage.WithRetry(ctx, retries, 200*time.Millisecond, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("postgres ping failed", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the positions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create positions table: %w", err)
	}
	return nil
}

// SavePosition inserts or updates a position record.
func (s *Store) SavePosition(ctx context.Context, record storage.PositionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("position id required")
	}
	units, err := json.Marshal(record.PoolUnits)
	if err != nil {
		return fmt.Errorf("marshal pool units: %w", err)
	}
	resources, err := marshalAmounts(record.Resources)
	if err != nil {
		return fmt.Errorf("marshal resources: %w", err)
	}
	fees, err := marshalAmounts(record.Fees)
	if err != nil {
		return fmt.Errorf("marshal fees: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO positions (
			id, pool_address, family, pool_units, lockup_seconds, opened_at, matures_at,
			adapter_data, closed_at, resources, fees, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (id)
		DO UPDATE SET
			pool_units = EXCLUDED.pool_units,
			adapter_data = EXCLUDED.adapter_data,
			closed_at = EXCLUDED.closed_at,
			resources = EXCLUDED.resources,
			fees = EXCLUDED.fees,
			updated_at = now()
	`,
		record.ID,
		record.Pool.Hex(),
		record.Family,
		units,
		int64(record.Lockup.Seconds()),
		record.OpenedAt,
		record.MaturesAt,
		record.AdapterData,
		record.ClosedAt,
		resources,
		fees,
	)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", record.ID, err)
	}
	s.logger.Info("position saved", zap.String("id", record.ID), zap.Bool("closed", record.Closed()))
	return nil
}

// LoadPosition returns the record stored under id.
func (s *Store) LoadPosition(ctx context.Context, id string) (storage.PositionRecord, error) {
	var (
		record    storage.PositionRecord
		pool      string
		units     []byte
		lockup    int64
		resources []byte
		fees      []byte
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id, pool_address, family, pool_units, lockup_seconds, opened_at, matures_at,
			adapter_data, closed_at, resources, fees
		FROM positions WHERE id=$1
	`, id)
	err := row.Scan(
		&record.ID,
		&pool,
		&record.Family,
		&units,
		&lockup,
		&record.OpenedAt,
		&record.MaturesAt,
		&record.AdapterData,
		&record.ClosedAt,
		&resources,
		&fees,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.PositionRecord{}, fmt.Errorf("position %s: %w", id, model.ErrPositionNotFound)
		}
		return storage.PositionRecord{}, err
	}

	record.Pool = common.HexToAddress(pool)
	record.Lockup = model.LockupFromSeconds(uint64(lockup))
	if err := json.Unmarshal(units, &record.PoolUnits); err != nil {
		return storage.PositionRecord{}, fmt.Errorf("parse pool units: %w", err)
	}
	if record.Resources, err = unmarshalAmounts(resources); err != nil {
		return storage.PositionRecord{}, fmt.Errorf("parse resources: %w", err)
	}
	if record.Fees, err = unmarshalAmounts(fees); err != nil {
		return storage.PositionRecord{}, fmt.Errorf("parse fees: %w", err)
	}
	return record, nil
}

func marshalAmounts(amounts map[common.Address]decimal.Decimal) ([]byte, error) {
	if amounts == nil {
		return nil, nil
	}
	return json.Marshal(amounts)
}

func unmarshalAmounts(raw []byte) (map[common.Address]decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[common.Address]decimal.Decimal
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
