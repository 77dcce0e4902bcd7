package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Get returns the holder's balance; absent rows read as zero.
func (s *BalanceStore) Get(ctx context.Context, holder string) (*big.Int, error) {
	const query = `SELECT amount::text FROM balances WHERE holder = $1`

	var raw string
	err := s.pool.QueryRow(ctx, query, holder).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get balance %s: %w", holder, err)
	}
	return parseNumeric(raw)
}

// Set upserts the holder's balance. Zero balances keep their row so holder
// history stays enumerable.
func (s *BalanceStore) Set(ctx context.Context, holder string, amount *big.Int) error {
	const query = `
		INSERT INTO balances (holder, amount, updated_at)
		VALUES ($1, $2::numeric, NOW())
		ON CONFLICT (holder) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, holder, amount.String()); err != nil {
		return fmt.Errorf("postgres: set balance %s: %w", holder, err)
	}
	return nil
}

// All returns every balance row.
func (s *BalanceStore) All(ctx context.Context) (map[string]*big.Int, error) {
	const query = `SELECT holder, amount::text FROM balances`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*big.Int)
	for rows.Next() {
		var holder, raw string
		if err := rows.Scan(&holder, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan balance: %w", err)
		}
		amount, err := parseNumeric(raw)
		if err != nil {
			return nil, err
		}
		out[holder] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list balances: %w", err)
	}
	return out, nil
}

var _ domain.BalanceStore = (*BalanceStore)(nil)
