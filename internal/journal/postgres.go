package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects, verifies the connection and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	const query = `
		INSERT INTO trade_journal (
			recorded_at, kind, account, token_address, venue, side, mode,
			amount, success, tx_hash, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))
	`
	_, err := s.pool.Exec(ctx, query,
		e.Time.UTC(), e.Kind, e.Account, e.Token, e.Venue, e.Side, e.Mode,
		e.Amount, e.Success, e.TxHash, e.Error,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, account string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT recorded_at, kind, account, token_address, venue, side, mode,
		       amount, success, COALESCE(tx_hash, ''), COALESCE(error, '')
		FROM trade_journal
		WHERE $1 = '' OR lower(account) = lower($1)
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.Time, &e.Kind, &e.Account, &e.Token, &e.Venue, &e.Side, &e.Mode,
			&e.Amount, &e.Success, &e.TxHash, &e.Error)
		return e, err
	})
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
