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

// AllowanceStore implements domain.AllowanceStore using PostgreSQL.
type AllowanceStore struct {
	pool *pgxpool.Pool
}

// NewAllowanceStore creates a new AllowanceStore backed by the given pool.
func NewAllowanceStore(pool *pgxpool.Pool) *AllowanceStore {
	return &AllowanceStore{pool: pool}
}

// Get returns the (owner, spender) allowance; absent rows read as zero.
func (s *AllowanceStore) Get(ctx context.Context, owner, spender string) (*big.Int, error) {
	const query = `SELECT amount::text FROM allowances WHERE owner_addr = $1 AND spender_addr = $2`

	var raw string
	err := s.pool.QueryRow(ctx, query, owner, spender).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get allowance %s/%s: %w", owner, spender, err)
	}
	return parseNumeric(raw)
}

// Set upserts the (owner, spender) allowance.
func (s *AllowanceStore) Set(ctx context.Context, owner, spender string, amount *big.Int) error {
	const query = `
		INSERT INTO allowances (owner_addr, spender_addr, amount, updated_at)
		VALUES ($1, $2, $3::numeric, NOW())
		ON CONFLICT (owner_addr, spender_addr)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, owner, spender, amount.String()); err != nil {
		return fmt.Errorf("postgres: set allowance %s/%s: %w", owner, spender, err)
	}
	return nil
}

// All returns every allowance row, owner then spender ordered.
func (s *AllowanceStore) All(ctx context.Context) ([]domain.Allowance, error) {
	const query = `
		SELECT owner_addr, spender_addr, amount::text
		FROM allowances
		ORDER BY owner_addr, spender_addr`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list allowances: %w", err)
	}
	defer rows.Close()

	var out []domain.Allowance
	for rows.Next() {
		var a domain.Allowance
		var raw string
		if err := rows.Scan(&a.Owner, &a.Spender, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan allowance: %w", err)
		}
		if a.Amount, err = parseNumeric(raw); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list allowances: %w", err)
	}
	return out, nil
}

var _ domain.AllowanceStore = (*AllowanceStore)(nil)
