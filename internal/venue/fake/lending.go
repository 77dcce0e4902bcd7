package fake

import (
	"context"
	"math/big"
	"sync"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// LendingMarket models the external lending market: a movable exchange rate
// between stable and interest-bearing units, a custodial balance, and a
// reward-asset accrual per vault.
//
// MintInterestBearing reports the realized custodial delta. An optional
// drift can be armed so the realized delta differs from the rate-implied
// quote, which is what delta-measurement tests exercise.
type LendingMarket struct {
	mu sync.Mutex

	rate      *big.Int // stable per interest-bearing unit, 1e18-scaled
	custodial *big.Int // interest-bearing units held for the ledger

	// nextMintShaveBps shaves the next mint's realized delta by this many
	// basis points, simulating a rate move between quote and execution.
	nextMintShaveBps int64

	rewards map[uint64]*big.Int
}

// NewLendingMarket creates a market at the given 1e18-scaled exchange rate.
func NewLendingMarket(rate *big.Int) *LendingMarket {
	return &LendingMarket{
		rate:      new(big.Int).Set(rate),
		custodial: new(big.Int),
		rewards:   make(map[uint64]*big.Int),
	}
}

// SetRate moves the exchange rate.
func (m *LendingMarket) SetRate(rate *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate.Set(rate)
}

// ShaveNextMint arms a one-shot drift on the next mint's realized delta.
func (m *LendingMarket) ShaveNextMint(bps int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMintShaveBps = bps
}

// AddReward accrues reward asset to a vault's farm balance.
func (m *LendingMarket) AddReward(vaultID uint64, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[vaultID]
	if !ok {
		r = new(big.Int)
		m.rewards[vaultID] = r
	}
	r.Add(r, amount)
}

// Custodial returns the market's interest-bearing custody for the ledger.
func (m *LendingMarket) Custodial() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.custodial)
}

func (m *LendingMarket) ExchangeRate(_ context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.rate), nil
}

func (m *LendingMarket) MintInterestBearing(_ context.Context, stableAmount *big.Int) (*big.Int, error) {
	if stableAmount.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// units = stable * 1e18 / rate
	units := new(big.Int).Mul(stableAmount, rateScale)
	units.Div(units, m.rate)

	if m.nextMintShaveBps > 0 {
		shave := new(big.Int).Mul(units, big.NewInt(m.nextMintShaveBps))
		shave.Div(shave, big.NewInt(10_000))
		units.Sub(units, shave)
		m.nextMintShaveBps = 0
	}

	// Realized delta is measured against the custodial balance, exactly the
	// way the live adapter measures balanceOf before and after the call.
	before := new(big.Int).Set(m.custodial)
	m.custodial.Add(m.custodial, units)
	return new(big.Int).Sub(m.custodial, before), nil
}

func (m *LendingMarket) RedeemInterestBearing(_ context.Context, amount *big.Int) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.custodial.Cmp(amount) < 0 {
		return nil, domain.ErrInsufficientBalance
	}
	m.custodial.Sub(m.custodial, amount)

	stable := new(big.Int).Mul(amount, m.rate)
	return stable.Div(stable, rateScale), nil
}

func (m *LendingMarket) UnderlyingValue(_ context.Context, amount *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stable := new(big.Int).Mul(amount, m.rate)
	return stable.Div(stable, rateScale), nil
}

func (m *LendingMarket) AccruedRewards(_ context.Context, vaultID uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[vaultID]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(r), nil
}

func (m *LendingMarket) ClaimRewards(_ context.Context, vaultID uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[vaultID]
	if !ok || r.Sign() == 0 {
		return new(big.Int), nil
	}
	claimed := new(big.Int).Set(r)
	r.SetInt64(0)
	return claimed, nil
}

var _ domain.LendingVenue = (*LendingMarket)(nil)
