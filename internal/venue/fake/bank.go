package fake

import (
	"context"
	"math/big"
	"sync"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Asset names used by the fake bank's per-asset books.
const (
	AssetStable          = "stable"
	AssetInterestBearing = "interest_bearing"
	AssetOption          = "option"
	AssetNative          = "native"
	AssetReward          = "reward"
)

// Bank models holder-side custody of every external asset the ledger moves:
// stable pulls (with an ERC-20-style approval check) and payouts of each leg.
type Bank struct {
	mu        sync.Mutex
	books     map[string]map[string]*big.Int // asset -> holder -> balance
	approvals map[string]*big.Int            // holder -> stable approved to the ledger
	pulled    *big.Int                       // total stable drawn into contract custody
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	books := make(map[string]map[string]*big.Int)
	for _, asset := range []string{AssetStable, AssetInterestBearing, AssetOption, AssetNative, AssetReward} {
		books[asset] = make(map[string]*big.Int)
	}
	return &Bank{
		books:     books,
		approvals: make(map[string]*big.Int),
		pulled:    new(big.Int),
	}
}

// SetBalance seeds a holder's balance of the given asset.
func (b *Bank) SetBalance(asset, holder string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.books[asset][holder] = new(big.Int).Set(amount)
}

// Approve sets the stable amount the holder permits the ledger to pull.
func (b *Bank) Approve(holder string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.approvals[holder] = new(big.Int).Set(amount)
}

// Balance returns a holder's balance of the given asset.
func (b *Bank) Balance(asset, holder string) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balanceLocked(asset, holder))
}

func (b *Bank) balanceLocked(asset, holder string) *big.Int {
	bal, ok := b.books[asset][holder]
	if !ok {
		bal = new(big.Int)
		b.books[asset][holder] = bal
	}
	return bal
}

func (b *Bank) PullStable(_ context.Context, from string, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balanceLocked(AssetStable, from)
	if bal.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	approved, ok := b.approvals[from]
	if !ok || approved.Cmp(amount) < 0 {
		return domain.ErrInsufficientApproval
	}
	bal.Sub(bal, amount)
	approved.Sub(approved, amount)
	b.pulled.Add(b.pulled, amount)
	return nil
}

func (b *Bank) pay(asset, to string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balanceLocked(asset, to)
	bal.Add(bal, amount)
	return nil
}

func (b *Bank) PayStable(_ context.Context, to string, amount *big.Int) error {
	return b.pay(AssetStable, to, amount)
}

func (b *Bank) PayInterestBearing(_ context.Context, to string, amount *big.Int) error {
	return b.pay(AssetInterestBearing, to, amount)
}

func (b *Bank) PayOption(_ context.Context, to string, amount *big.Int) error {
	return b.pay(AssetOption, to, amount)
}

func (b *Bank) PayNative(_ context.Context, to string, amount *big.Int) error {
	return b.pay(AssetNative, to, amount)
}

func (b *Bank) PayReward(_ context.Context, to string, amount *big.Int) error {
	return b.pay(AssetReward, to, amount)
}

var _ domain.AssetBank = (*Bank)(nil)
