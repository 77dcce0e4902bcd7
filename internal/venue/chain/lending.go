package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Lending converts stable asset through a Compound cToken market. Minted
// units are measured as the realized custody balance delta, never derived
// from a prior rate quote, because interest accrues between quote and
// execution.
type Lending struct {
	client      *Client
	cToken      *bind.BoundContract
	stableToken *bind.BoundContract
	comptroller *bind.BoundContract
	cTokenAddr  common.Address
}

var _ domain.LendingVenue = (*Lending)(nil)

// NewLending binds the cToken market and its comptroller.
func NewLending(client *Client, cfg Config) (*Lending, error) {
	cTokenAddr := common.HexToAddress(cfg.InterestToken)
	cToken, err := client.bindContract(cTokenAddr, cTokenABI)
	if err != nil {
		return nil, err
	}
	stableToken, err := client.bindContract(common.HexToAddress(cfg.StableToken), erc20ABI)
	if err != nil {
		return nil, err
	}

	var comptroller *bind.BoundContract
	if cfg.Comptroller != "" {
		if comptroller, err = client.bindContract(common.HexToAddress(cfg.Comptroller), comptrollerABI); err != nil {
			return nil, err
		}
	}

	return &Lending{
		client:      client,
		cToken:      cToken,
		stableToken: stableToken,
		comptroller: comptroller,
		cTokenAddr:  cTokenAddr,
	}, nil
}

// EnsureAllowance grants the cToken market an unbounded stable allowance so
// mint transactions do not need a per-call approve. Call once at startup.
func (l *Lending) EnsureAllowance(ctx context.Context) error {
	current, err := callBig(ctx, l.client, l.stableToken, "allowance", l.client.Operator(), l.cTokenAddr)
	if err != nil {
		return err
	}
	if current.Sign() > 0 {
		return nil
	}

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tx, err := l.stableToken.Transact(l.client.transactOpts(ctx), "approve", l.cTokenAddr, max)
	if err != nil {
		return fmt.Errorf("chain: approve cToken: %w", err)
	}
	return l.client.waitMined(ctx, tx)
}

// ExchangeRate returns the market's stable-per-unit rate scaled by 1e18.
func (l *Lending) ExchangeRate(ctx context.Context) (*big.Int, error) {
	return callBig(ctx, l.client, l.cToken, "exchangeRateStored")
}

// MintInterestBearing deposits stableAmount and returns the realized
// interest-bearing delta at the custody address.
func (l *Lending) MintInterestBearing(ctx context.Context, stableAmount *big.Int) (*big.Int, error) {
	if stableAmount == nil || stableAmount.Sign() <= 0 {
		return new(big.Int), nil
	}

	before, err := callBig(ctx, l.client, l.cToken, "balanceOf", l.client.Operator())
	if err != nil {
		return nil, err
	}

	tx, err := l.cToken.Transact(l.client.transactOpts(ctx), "mint", stableAmount)
	if err != nil {
		return nil, fmt.Errorf("chain: cToken mint: %w", err)
	}
	if err := l.client.waitMined(ctx, tx); err != nil {
		return nil, err
	}

	after, err := callBig(ctx, l.client, l.cToken, "balanceOf", l.client.Operator())
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(after, before), nil
}

// RedeemInterestBearing redeems amount units and returns the realized
// stable-asset proceeds.
func (l *Lending) RedeemInterestBearing(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	before, err := callBig(ctx, l.client, l.stableToken, "balanceOf", l.client.Operator())
	if err != nil {
		return nil, err
	}

	tx, err := l.cToken.Transact(l.client.transactOpts(ctx), "redeem", amount)
	if err != nil {
		return nil, fmt.Errorf("chain: cToken redeem: %w", err)
	}
	if err := l.client.waitMined(ctx, tx); err != nil {
		return nil, err
	}

	after, err := callBig(ctx, l.client, l.stableToken, "balanceOf", l.client.Operator())
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(after, before), nil
}

// UnderlyingValue converts amount units to stable asset at the stored rate.
func (l *Lending) UnderlyingValue(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}
	rate, err := l.ExchangeRate(ctx)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).Mul(amount, rate)
	return v.Quo(v, rateScale), nil
}

// AccruedRewards returns the reward balance farmed at the custody address.
// On-chain reward accrual is pooled per supplier, so every vault reads the
// same custodial figure; per-vault attribution happens in the ledger.
func (l *Lending) AccruedRewards(ctx context.Context, vaultID uint64) (*big.Int, error) {
	if l.comptroller == nil {
		return new(big.Int), nil
	}
	return callBig(ctx, l.client, l.comptroller, "compAccrued", l.client.Operator())
}

// ClaimRewards claims the custody address's accrued reward balance and
// returns the amount released.
func (l *Lending) ClaimRewards(ctx context.Context, vaultID uint64) (*big.Int, error) {
	if l.comptroller == nil {
		return new(big.Int), nil
	}

	accrued, err := l.AccruedRewards(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if accrued.Sign() == 0 {
		return new(big.Int), nil
	}

	tx, err := l.comptroller.Transact(l.client.transactOpts(ctx), "claimComp", l.client.Operator())
	if err != nil {
		return nil, fmt.Errorf("chain: claim rewards: %w", err)
	}
	if err := l.client.waitMined(ctx, tx); err != nil {
		return nil, err
	}
	return accrued, nil
}
