package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// VaultStore implements domain.VaultStore using PostgreSQL.
type VaultStore struct {
	pool *pgxpool.Pool
}

// NewVaultStore creates a new VaultStore backed by the given pool.
func NewVaultStore(pool *pgxpool.Pool) *VaultStore {
	return &VaultStore{pool: pool}
}

// Get returns the holder's vault record.
func (s *VaultStore) Get(ctx context.Context, holder string) (domain.Vault, error) {
	const query = `SELECT id, holder, balance::text, created_at FROM vaults WHERE holder = $1`

	var v domain.Vault
	var raw string
	err := s.pool.QueryRow(ctx, query, holder).Scan(&v.ID, &v.Holder, &raw, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Vault{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Vault{}, fmt.Errorf("postgres: get vault %s: %w", holder, err)
	}
	if v.Balance, err = parseNumeric(raw); err != nil {
		return domain.Vault{}, err
	}
	return v, nil
}

// Put upserts a vault record keyed by its id.
func (s *VaultStore) Put(ctx context.Context, v domain.Vault) error {
	const query = `
		INSERT INTO vaults (id, holder, balance, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, v.ID, v.Holder, v.Balance.String(), v.CreatedAt); err != nil {
		return fmt.Errorf("postgres: put vault %d: %w", v.ID, err)
	}
	return nil
}

// All returns every vault record ordered by id, the order the registry's
// arena is rebuilt in.
func (s *VaultStore) All(ctx context.Context) ([]domain.Vault, error) {
	const query = `SELECT id, holder, balance::text, created_at FROM vaults ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list vaults: %w", err)
	}
	defer rows.Close()

	var out []domain.Vault
	for rows.Next() {
		var v domain.Vault
		var raw string
		if err := rows.Scan(&v.ID, &v.Holder, &raw, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan vault: %w", err)
		}
		if v.Balance, err = parseNumeric(raw); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list vaults: %w", err)
	}
	return out, nil
}

var _ domain.VaultStore = (*VaultStore)(nil)
