// Package memory implements the domain store interfaces with in-process
// maps. It backs the dry-run operating mode and the test suites; the
// postgres package provides the durable equivalents.
package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// BalanceStore implements domain.BalanceStore.
type BalanceStore struct {
	mu       sync.RWMutex
	balances map[string]*big.Int
}

// NewBalanceStore creates an empty balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{balances: make(map[string]*big.Int)}
}

func (s *BalanceStore) Get(_ context.Context, holder string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[holder]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(b), nil
}

func (s *BalanceStore) Set(_ context.Context, holder string, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[holder] = new(big.Int).Set(amount)
	return nil
}

func (s *BalanceStore) All(_ context.Context) (map[string]*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*big.Int, len(s.balances))
	for h, b := range s.balances {
		out[h] = new(big.Int).Set(b)
	}
	return out, nil
}

// AllowanceStore implements domain.AllowanceStore.
type AllowanceStore struct {
	mu         sync.RWMutex
	allowances map[[2]string]*big.Int
}

// NewAllowanceStore creates an empty allowance store.
func NewAllowanceStore() *AllowanceStore {
	return &AllowanceStore{allowances: make(map[[2]string]*big.Int)}
}

func (s *AllowanceStore) Get(_ context.Context, owner, spender string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allowances[[2]string{owner, spender}]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(a), nil
}

func (s *AllowanceStore) Set(_ context.Context, owner, spender string, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances[[2]string{owner, spender}] = new(big.Int).Set(amount)
	return nil
}

func (s *AllowanceStore) All(_ context.Context) ([]domain.Allowance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Allowance, 0, len(s.allowances))
	for key, a := range s.allowances {
		out = append(out, domain.Allowance{
			Owner:   key[0],
			Spender: key[1],
			Amount:  new(big.Int).Set(a),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Spender < out[j].Spender
	})
	return out, nil
}

// VaultStore implements domain.VaultStore.
type VaultStore struct {
	mu     sync.RWMutex
	vaults map[string]domain.Vault
}

// NewVaultStore creates an empty vault store.
func NewVaultStore() *VaultStore {
	return &VaultStore{vaults: make(map[string]domain.Vault)}
}

func (s *VaultStore) Get(_ context.Context, holder string) (domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vaults[holder]
	if !ok {
		return domain.Vault{}, domain.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *VaultStore) Put(_ context.Context, v domain.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaults[v.Holder] = v.Clone()
	return nil
}

func (s *VaultStore) All(_ context.Context) ([]domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Vault, 0, len(s.vaults))
	for _, v := range s.vaults {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TokenMetaStore implements domain.TokenMetaStore.
type TokenMetaStore struct {
	mu   sync.RWMutex
	meta domain.TokenMeta
	set  bool
}

// NewTokenMetaStore creates a meta store seeded with the given row.
func NewTokenMetaStore(meta domain.TokenMeta) *TokenMetaStore {
	return &TokenMetaStore{meta: meta, set: true}
}

func (s *TokenMetaStore) Get(_ context.Context) (domain.TokenMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.TokenMeta{}, domain.ErrNotFound
	}
	return s.meta, nil
}

func (s *TokenMetaStore) Put(_ context.Context, meta domain.TokenMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
	s.set = true
	return nil
}

// AuditStore implements domain.AuditStore as an append-only slice.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditStore creates an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        uuid.NewString(),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := opts.Offset
	if start > len(s.entries) {
		return nil, nil
	}
	end := len(s.entries)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	out := make([]domain.AuditEntry, end-start)
	copy(out, s.entries[start:end])
	return out, nil
}

func (s *AuditStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditEntry
	for _, e := range s.entries {
		if !e.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SignalBus implements domain.SignalBus by recording published payloads.
// Tests inspect Published; the redis package provides the real bus.
type SignalBus struct {
	mu        sync.Mutex
	published []PublishedSignal
}

// PublishedSignal is one recorded Publish call.
type PublishedSignal struct {
	Channel string
	Payload []byte
}

// NewSignalBus creates an empty recording bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{}
}

func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := make([]byte, len(payload))
	copy(p, payload)
	b.published = append(b.published, PublishedSignal{Channel: channel, Payload: p})
	return nil
}

// Published returns a copy of everything published so far.
func (b *SignalBus) Published() []PublishedSignal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PublishedSignal, len(b.published))
	copy(out, b.published)
	return out
}
