// Package vault implements the per-holder custodial sub-ledger for the
// interest-bearing leg. Each holder that has ever minted or received wrapped
// units owns exactly one vault, provisioned lazily on first use and addressed
// by a stable integer id. Only the wrapped-position ledger calls into the
// registry; holders never operate on their vault directly.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Registry maintains the vault arena and its holder index. The arena is an
// in-process slice of records indexed by id; the store provides durability.
type Registry struct {
	mu       sync.RWMutex
	byHolder map[string]uint64 // holder -> vault id
	records  []*domain.Vault   // arena; records[id-1] has ID == id

	store  domain.VaultStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry backed by the given store.
func NewRegistry(store domain.VaultStore, logger *slog.Logger) *Registry {
	return &Registry{
		byHolder: make(map[string]uint64),
		store:    store,
		logger:   logger.With(slog.String("component", "vault_registry")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Load hydrates the arena from the store. Records are ordered by id so the
// arena index stays stable across restarts.
func (r *Registry) Load(ctx context.Context) error {
	vaults, err := r.store.All(ctx)
	if err != nil {
		return fmt.Errorf("vault: load: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make([]*domain.Vault, len(vaults))
	r.byHolder = make(map[string]uint64, len(vaults))
	for _, v := range vaults {
		if v.ID == 0 || v.ID > uint64(len(vaults)) {
			return fmt.Errorf("vault: load: record id %d out of range for %d vaults", v.ID, len(vaults))
		}
		rec := v.Clone()
		r.records[v.ID-1] = &rec
		r.byHolder[v.Holder] = v.ID
	}
	for i, rec := range r.records {
		if rec == nil {
			return fmt.Errorf("vault: load: missing record at id %d", i+1)
		}
	}
	return nil
}

// VaultOf returns the holder's vault, provisioning it first if absent.
// Provisioning is idempotent: repeated calls return the same handle and
// never duplicate custody.
func (r *Registry) VaultOf(ctx context.Context, holder string) (domain.Vault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.getOrCreate(ctx, holder)
	if err != nil {
		return domain.Vault{}, err
	}
	return rec.Clone(), nil
}

// Lookup returns the holder's vault without provisioning one. It fails with
// ErrNoVaultForHolder when the holder never minted or received units.
func (r *Registry) Lookup(holder string) (domain.Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHolder[holder]
	if !ok {
		return domain.Vault{}, domain.ErrNoVaultForHolder
	}
	return r.records[id-1].Clone(), nil
}

// DepositInto credits amount of interest-bearing asset to the holder's
// vault, provisioning the vault first if needed.
func (r *Registry) DepositInto(ctx context.Context, holder string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.getOrCreate(ctx, holder)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(rec.Balance, amount)
	if err := r.persistBalance(ctx, rec, next); err != nil {
		return err
	}
	rec.Balance.Set(next)
	return nil
}

// MoveBetweenVaults atomically debits from's vault and credits to's vault,
// provisioning to's vault first if needed. It fails with
// ErrInsufficientVaultBalance when from lacks amount, leaving both vaults
// untouched.
func (r *Registry) MoveBetweenVaults(ctx context.Context, from, to string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fromID, ok := r.byHolder[from]
	if !ok {
		return domain.ErrNoVaultForHolder
	}
	src := r.records[fromID-1]
	if src.Balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientVaultBalance
	}

	// Same vault on both sides: the move is a checked no-op. Computing the
	// debit and credit from one starting balance would net a credit.
	if from == to {
		return nil
	}

	dst, err := r.getOrCreate(ctx, to)
	if err != nil {
		return err
	}

	srcNext := new(big.Int).Sub(src.Balance, amount)
	dstNext := new(big.Int).Add(dst.Balance, amount)
	if err := r.persistBalance(ctx, src, srcNext); err != nil {
		return err
	}
	if err := r.persistBalance(ctx, dst, dstNext); err != nil {
		return err
	}
	src.Balance.Set(srcNext)
	dst.Balance.Set(dstNext)
	return nil
}

// WithdrawFrom debits amount from the holder's vault and returns custody of
// the interest-bearing asset to the caller (the ledger). Fails with
// ErrNoVaultForHolder when the holder never minted, or
// ErrInsufficientVaultBalance when the vault is short.
func (r *Registry) WithdrawFrom(ctx context.Context, holder string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHolder[holder]
	if !ok {
		return domain.ErrNoVaultForHolder
	}
	rec := r.records[id-1]
	if rec.Balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientVaultBalance
	}
	next := new(big.Int).Sub(rec.Balance, amount)
	if err := r.persistBalance(ctx, rec, next); err != nil {
		return err
	}
	rec.Balance.Set(next)
	return nil
}

// Balance returns the holder's vault balance, or zero when no vault exists.
func (r *Registry) Balance(holder string) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHolder[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(r.records[id-1].Balance)
}

// TotalBalance sums every vault's interest-bearing balance. Used by the
// ledger's backing invariant checks.
func (r *Registry) TotalBalance() *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := new(big.Int)
	for _, rec := range r.records {
		total.Add(total, rec.Balance)
	}
	return total
}

// Count returns the number of provisioned vaults.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// getOrCreate returns the holder's record, appending a fresh one to the
// arena on first use. Caller holds r.mu.
func (r *Registry) getOrCreate(ctx context.Context, holder string) (*domain.Vault, error) {
	if id, ok := r.byHolder[holder]; ok {
		return r.records[id-1], nil
	}

	rec := &domain.Vault{
		ID:        uint64(len(r.records) + 1),
		Holder:    holder,
		Balance:   new(big.Int),
		CreatedAt: r.now(),
	}
	if err := r.persist(ctx, rec); err != nil {
		return nil, err
	}
	r.records = append(r.records, rec)
	r.byHolder[holder] = rec.ID

	r.logger.InfoContext(ctx, "vault provisioned",
		slog.Uint64("vault_id", rec.ID),
		slog.String("holder", holder),
	)
	return rec, nil
}

func (r *Registry) persist(ctx context.Context, rec *domain.Vault) error {
	if err := r.store.Put(ctx, rec.Clone()); err != nil {
		return fmt.Errorf("vault: persist vault %d: %w", rec.ID, err)
	}
	return nil
}

// persistBalance writes the record with next as its balance without touching
// the in-memory arena; callers commit the arena only after the write lands.
func (r *Registry) persistBalance(ctx context.Context, rec *domain.Vault, next *big.Int) error {
	row := rec.Clone()
	row.Balance = new(big.Int).Set(next)
	if err := r.store.Put(ctx, row); err != nil {
		return fmt.Errorf("vault: persist vault %d: %w", rec.ID, err)
	}
	return nil
}

// IsNotProvisioned reports whether err means the holder has no vault.
func IsNotProvisioned(err error) bool {
	return errors.Is(err, domain.ErrNoVaultForHolder)
}
