package domain

import (
	"context"
	"io"
	"math/big"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// BalanceStore persists holder -> wrapped balance rows.
type BalanceStore interface {
	Get(ctx context.Context, holder string) (*big.Int, error)
	// Set writes a holder's balance; a zero amount keeps the row.
	Set(ctx context.Context, holder string, amount *big.Int) error
	All(ctx context.Context) (map[string]*big.Int, error)
}

// AllowanceStore persists (owner, spender) -> allowance rows.
type AllowanceStore interface {
	Get(ctx context.Context, owner, spender string) (*big.Int, error)
	Set(ctx context.Context, owner, spender string, amount *big.Int) error
	All(ctx context.Context) ([]Allowance, error)
}

// VaultStore persists vault records. Records are append-mostly: created once
// per holder, balance updated by the registry, never deleted.
type VaultStore interface {
	Get(ctx context.Context, holder string) (Vault, error)
	Put(ctx context.Context, v Vault) error
	All(ctx context.Context) ([]Vault, error)
}

// TokenMetaStore persists the single token metadata row, including the
// paused flag and the mutable display name.
type TokenMetaStore interface {
	Get(ctx context.Context) (TokenMeta, error)
	Put(ctx context.Context, meta TokenMeta) error
}

// AuditEntry is a single append-only audit row.
type AuditEntry struct {
	ID        string
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists the append-only operation audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	// ListBefore returns entries older than cutoff, oldest first, for archival.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]AuditEntry, error)
}

// BlobWriter uploads objects to the blob store. The audit archiver is its
// only caller.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// SignalBus publishes ledger events for the websocket hub and notifier.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// QuoteCache stores the latest premium and exchange-rate snapshots so the
// read-only quote views can serve without hitting the venues on every call.
// Execution paths never read the cache: realized deltas are always measured.
type QuoteCache interface {
	SetPremium(ctx context.Context, amount, premium *big.Int, ts time.Time) error
	GetPremium(ctx context.Context, amount *big.Int) (*big.Int, time.Time, error)
	SetExchangeRate(ctx context.Context, rate *big.Int, ts time.Time) error
	GetExchangeRate(ctx context.Context) (*big.Int, time.Time, error)
}
