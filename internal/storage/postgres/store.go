package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oracleWatch/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS confirmations (
	id          BIGSERIAL PRIMARY KEY,
	tx_hash     TEXT NOT NULL DEFAULT '',
	module      TEXT NOT NULL,
	event       TEXT NOT NULL,
	data        TEXT NOT NULL,
	args        JSONB NOT NULL,
	decoded     JSONB,
	matched_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tx_hash, module, event, data)
);
CREATE TABLE IF NOT EXISTS waiter_state (
	name        TEXT PRIMARY KEY,
	last_block  BIGINT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for confirmations and poller state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutConfirmations implements storage.Sink.
func (s *Store) PutConfirmations(ctx context.Context, confirmations []model.Confirmation) error {
	return s.UpsertConfirmations(ctx, confirmations)
}

// UpsertConfirmations inserts confirmations, refreshing matched_at on repeats.
func (s *Store) UpsertConfirmations(ctx context.Context, confirmations []model.Confirmation) error {
	if len(confirmations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range confirmations {
		matchedAt, err := time.Parse(time.RFC3339Nano, c.MatchedAt)
		if err != nil {
			return fmt.Errorf("confirmation %s.%s matched_at: %w", c.Module, c.Event, err)
		}
		var decoded []byte
		if len(c.Decoded) > 0 {
			decoded = c.Decoded
		}
		batch.Queue(`
			INSERT INTO confirmations (
				tx_hash, module, event, data, args, decoded, matched_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tx_hash, module, event, data)
			DO UPDATE SET
				args = EXCLUDED.args,
				decoded = EXCLUDED.decoded,
				matched_at = EXCLUDED.matched_at
		`,
			c.TxHash,
			c.Module,
			c.Event,
			c.Data,
			c.Args,
			decoded,
			matchedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range confirmations {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_block FROM waiter_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO waiter_state (name, last_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, updated_at = now()
	`, name, int64(block))
	return err
}
