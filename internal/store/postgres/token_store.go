package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// TokenMetaStore implements domain.TokenMetaStore using PostgreSQL. The
// table holds exactly one row.
type TokenMetaStore struct {
	pool *pgxpool.Pool
}

// NewTokenMetaStore creates a new TokenMetaStore backed by the given pool.
func NewTokenMetaStore(pool *pgxpool.Pool) *TokenMetaStore {
	return &TokenMetaStore{pool: pool}
}

// Get returns the token metadata row.
func (s *TokenMetaStore) Get(ctx context.Context) (domain.TokenMeta, error) {
	const query = `SELECT name, symbol, decimals, owner_addr, paused, updated_at FROM token_meta WHERE id = 1`

	var m domain.TokenMeta
	err := s.pool.QueryRow(ctx, query).Scan(
		&m.Name, &m.Symbol, &m.Decimals, &m.Owner, &m.Paused, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TokenMeta{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TokenMeta{}, fmt.Errorf("postgres: get token meta: %w", err)
	}
	return m, nil
}

// Put upserts the token metadata row.
func (s *TokenMetaStore) Put(ctx context.Context, meta domain.TokenMeta) error {
	const query = `
		INSERT INTO token_meta (id, name, symbol, decimals, owner_addr, paused, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			owner_addr = EXCLUDED.owner_addr,
			paused = EXCLUDED.paused,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, meta.Name, meta.Symbol, meta.Decimals, meta.Owner, meta.Paused)
	if err != nil {
		return fmt.Errorf("postgres: put token meta: %w", err)
	}
	return nil
}

var _ domain.TokenMetaStore = (*TokenMetaStore)(nil)
