// Package ledger implements the wrapped-position token: the fungible
// balance/allowance/supply bookkeeping and the mint/transfer/unwind state
// transitions that keep the wrapped supply, the pooled option custody, and
// the per-vault interest-bearing balances mutually consistent.
//
// Every state-changing operation runs as a single atomic step: all
// preconditions are checked before any external venue call is issued, and
// local state is committed only after every external call that sources
// funds has succeeded. One operation completes fully before the next
// begins; a call arriving mid-operation is rejected, never queued.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/vault"
)

var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Deps bundles everything the ledger needs to operate.
type Deps struct {
	Registry *vault.Registry

	Option   domain.OptionVenue
	Lending  domain.LendingVenue
	Protocol domain.OptionProtocol
	Bank     domain.AssetBank

	Balances   domain.BalanceStore
	Allowances domain.AllowanceStore
	Meta       domain.TokenMetaStore
	Audit      domain.AuditStore
	Bus        domain.SignalBus

	Logger *slog.Logger

	// Now overrides the clock; nil means time.Now. Tests drive expiry
	// phases through this.
	Now func() time.Time
}

// Ledger is the wrapped-position token's authoritative state machine.
type Ledger struct {
	registry *vault.Registry
	option   domain.OptionVenue
	lending  domain.LendingVenue
	protocol domain.OptionProtocol
	bank     domain.AssetBank

	balanceStore   domain.BalanceStore
	allowanceStore domain.AllowanceStore
	metaStore      domain.TokenMetaStore
	audit          domain.AuditStore
	bus            domain.SignalBus

	logger *slog.Logger
	now    func() time.Time

	// entered rejects a second operation arriving while one is in flight,
	// including re-entrant calls from a venue back into the ledger.
	entered atomic.Bool

	mu           sync.RWMutex
	balances     map[string]*big.Int
	allowances   map[string]map[string]*big.Int // owner -> spender -> amount
	totalSupply  *big.Int
	pooledOption *big.Int // contract-wide option custody, shared across holders
	meta         domain.TokenMeta
}

// New creates a Ledger from its dependencies. Call Load before serving.
func New(deps Deps) *Ledger {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{
		registry:       deps.Registry,
		option:         deps.Option,
		lending:        deps.Lending,
		protocol:       deps.Protocol,
		bank:           deps.Bank,
		balanceStore:   deps.Balances,
		allowanceStore: deps.Allowances,
		metaStore:      deps.Meta,
		audit:          deps.Audit,
		bus:            deps.Bus,
		logger:         deps.Logger.With(slog.String("component", "ledger")),
		now:            now,
		balances:       make(map[string]*big.Int),
		allowances:     make(map[string]map[string]*big.Int),
		totalSupply:    new(big.Int),
		pooledOption:   new(big.Int),
	}
}

// Load hydrates the ledger and its vault registry from the stores. The
// pooled option custody is not persisted state; it is re-seeded to the total
// supply, the floor it can never go below.
func (l *Ledger) Load(ctx context.Context) error {
	meta, err := l.metaStore.Get(ctx)
	if err != nil {
		return fmt.Errorf("ledger: load token meta: %w", err)
	}

	balances, err := l.balanceStore.All(ctx)
	if err != nil {
		return fmt.Errorf("ledger: load balances: %w", err)
	}
	allowances, err := l.allowanceStore.All(ctx)
	if err != nil {
		return fmt.Errorf("ledger: load allowances: %w", err)
	}
	if err := l.registry.Load(ctx); err != nil {
		return fmt.Errorf("ledger: load vaults: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.meta = meta
	l.balances = make(map[string]*big.Int, len(balances))
	total := new(big.Int)
	for holder, b := range balances {
		l.balances[holder] = new(big.Int).Set(b)
		total.Add(total, b)
	}
	l.totalSupply = total
	l.pooledOption = new(big.Int).Set(total)

	l.allowances = make(map[string]map[string]*big.Int)
	for _, a := range allowances {
		byOwner, ok := l.allowances[a.Owner]
		if !ok {
			byOwner = make(map[string]*big.Int)
			l.allowances[a.Owner] = byOwner
		}
		byOwner[a.Spender] = new(big.Int).Set(a.Amount)
	}

	l.logger.InfoContext(ctx, "ledger loaded",
		slog.Int("holders", len(l.balances)),
		slog.String("total_supply", l.totalSupply.String()),
		slog.Int("vaults", l.registry.Count()),
		slog.Bool("paused", l.meta.Paused),
	)
	return nil
}

// begin takes the single-operation slot; end releases it.
func (l *Ledger) begin() error {
	if !l.entered.CompareAndSwap(false, true) {
		return domain.ErrReentrant
	}
	return nil
}

func (l *Ledger) end() { l.entered.Store(false) }

// checkAmount rejects nil or negative amounts before anything else runs.
func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// ---------------------------------------------------------------------------
// Read views
// ---------------------------------------------------------------------------

// BalanceOf returns the holder's wrapped balance.
func (l *Ledger) BalanceOf(holder string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.balances[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(b)
}

// TotalSupply returns the wrapped token's total supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.totalSupply)
}

// Allowance returns what spender may move on owner's behalf.
func (l *Ledger) Allowance(owner, spender string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if byOwner, ok := l.allowances[owner]; ok {
		if a, ok := byOwner[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Name returns the token's display name.
func (l *Ledger) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.Name
}

// Symbol returns the token's symbol.
func (l *Ledger) Symbol() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.Symbol
}

// Decimals returns the token's fixed decimal precision.
func (l *Ledger) Decimals() uint8 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.Decimals
}

// Paused reports the circuit-breaker state.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.Paused
}

// PooledOptionCustody returns the contract-wide option-leg custody. The
// option leg is pooled, never attributed per holder.
func (l *Ledger) PooledOptionCustody() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.pooledOption)
}

// VaultBalance returns the holder's vault interest-bearing balance.
func (l *Ledger) VaultBalance(holder string) *big.Int {
	return l.registry.Balance(holder)
}

// VaultOf returns the holder's vault handle, provisioning one lazily if
// absent.
func (l *Ledger) VaultOf(ctx context.Context, holder string) (domain.Vault, error) {
	v, err := l.registry.VaultOf(ctx, holder)
	if err != nil {
		return domain.Vault{}, fmt.Errorf("ledger: vault of %q: %w", holder, err)
	}
	return v, nil
}

// GetCostOfOToken returns the stable-asset premium for amount option units,
// a pure pass-through to the exchange venue's quote.
func (l *Ledger) GetCostOfOToken(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	premium, err := l.option.QuoteOptionCost(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("ledger: quote option cost: %w", err)
	}
	return premium, nil
}

// QuotePosition composes the all-in stable cost of minting amount wrapped
// units: the option premium plus the interest-bearing leg at the current
// exchange rate. Ephemeral; nothing is persisted.
func (l *Ledger) QuotePosition(ctx context.Context, amount *big.Int) (domain.PositionQuote, error) {
	if err := checkAmount(amount); err != nil {
		return domain.PositionQuote{}, err
	}
	premium, err := l.option.QuoteOptionCost(ctx, amount)
	if err != nil {
		return domain.PositionQuote{}, fmt.Errorf("ledger: quote premium: %w", err)
	}
	rate, err := l.lending.ExchangeRate(ctx)
	if err != nil {
		return domain.PositionQuote{}, fmt.Errorf("ledger: exchange rate: %w", err)
	}
	return domain.PositionQuote{
		Amount:       new(big.Int).Set(amount),
		Premium:      premium,
		InterestCost: interestLegCost(amount, rate),
		ExchangeRate: rate,
		QuotedAt:     l.now(),
	}, nil
}

// interestLegCost maps amount interest-bearing units to stable asset at the
// given 1e18-scaled rate.
func interestLegCost(amount, rate *big.Int) *big.Int {
	cost := new(big.Int).Mul(amount, rate)
	return cost.Div(cost, rateScale)
}
