package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Mint creates amount wrapped units for holder. The stable asset pulled is
// the option premium plus the interest-bearing leg priced at the current
// exchange rate; the option leg is acquired on the exchange venue under the
// caller's premium ceiling, the remaining stable asset is deposited into the
// lending market, and the realized interest-bearing delta lands in the
// holder's vault. The holder is credited min(option units acquired,
// interest-bearing units realized): neither leg is ever trusted to deliver
// the nominal amount.
//
// maxPremium is the caller-approved ceiling for the option leg; nil means
// the quoted premium is the ceiling.
func (l *Ledger) Mint(ctx context.Context, holder string, amount, maxPremium *big.Int) (domain.MintResult, error) {
	if err := l.begin(); err != nil {
		return domain.MintResult{}, err
	}
	defer l.end()

	if err := checkAmount(amount); err != nil {
		return domain.MintResult{}, err
	}
	if l.Paused() {
		return domain.MintResult{}, domain.ErrPaused
	}

	result := domain.MintResult{
		Holder:        holder,
		Requested:     new(big.Int).Set(amount),
		Minted:        new(big.Int),
		PremiumPaid:   new(big.Int),
		InterestUnits: new(big.Int),
		ExchangeRate:  new(big.Int),
	}
	// mint(0) is a no-op: no venue calls, no balance changes.
	if amount.Sign() == 0 {
		return result, nil
	}

	premium, err := l.option.QuoteOptionCost(ctx, amount)
	if err != nil {
		return domain.MintResult{}, fmt.Errorf("ledger: mint quote premium: %w", err)
	}
	rate, err := l.lending.ExchangeRate(ctx)
	if err != nil {
		return domain.MintResult{}, fmt.Errorf("ledger: mint exchange rate: %w", err)
	}
	interestCost := interestLegCost(amount, rate)

	pull := new(big.Int).Add(premium, interestCost)
	if err := l.bank.PullStable(ctx, holder, pull); err != nil {
		return domain.MintResult{}, fmt.Errorf("ledger: mint pull stable: %w", err)
	}

	ceiling := premium
	if maxPremium != nil {
		ceiling = maxPremium
	}
	spent, err := l.option.AcquireOption(ctx, amount, ceiling)
	if err != nil {
		// Nothing was exchanged; the pull is returned in full so the
		// rejected mint leaves the holder untouched.
		l.refundStable(ctx, holder, pull)
		return domain.MintResult{}, fmt.Errorf("ledger: mint acquire option: %w", err)
	}

	// Hedge everything that was not consumed by the option leg.
	remaining := new(big.Int).Sub(pull, spent)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	realized, err := l.lending.MintInterestBearing(ctx, remaining)
	if err != nil {
		l.refundStable(ctx, holder, remaining)
		return domain.MintResult{}, fmt.Errorf("ledger: mint interest leg: %w", err)
	}

	minted := minBig(amount, realized)

	// The full realized delta goes to the vault; any excess over the minted
	// amount sits there as yield until harvested.
	if err := l.registry.DepositInto(ctx, holder, realized); err != nil {
		return domain.MintResult{}, fmt.Errorf("ledger: mint vault deposit: %w", err)
	}

	l.mu.Lock()
	next := new(big.Int).Set(minted)
	if bal, ok := l.balances[holder]; ok {
		next.Add(next, bal)
	}
	if err := l.balanceStore.Set(ctx, holder, next); err != nil {
		l.mu.Unlock()
		// The vault credit must not outlive the failed mint; reverse it so
		// no unbacked vault balance is ever observable.
		if rbErr := l.registry.WithdrawFrom(ctx, holder, realized); rbErr != nil {
			l.logger.ErrorContext(ctx, "ledger: mint vault rollback failed, manual reconciliation required",
				slog.String("holder", holder),
				slog.String("amount", realized.String()),
				slog.String("error", rbErr.Error()),
			)
		}
		return domain.MintResult{}, fmt.Errorf("ledger: mint persist balance: %w", err)
	}
	l.balances[holder] = next
	l.totalSupply.Add(l.totalSupply, minted)
	l.pooledOption.Add(l.pooledOption, amount)
	l.mu.Unlock()

	result.Minted = minted
	result.PremiumPaid = spent
	result.InterestUnits = realized
	result.ExchangeRate = rate

	l.emitLedger(ctx, domain.EventMint, map[string]any{
		"holder":         holder,
		"requested":      amount.String(),
		"minted":         minted.String(),
		"premium":        spent.String(),
		"interest_units": realized.String(),
		"exchange_rate":  rate.String(),
	})
	l.logger.InfoContext(ctx, "minted",
		slog.String("holder", holder),
		slog.String("requested", amount.String()),
		slog.String("minted", minted.String()),
		slog.String("premium", spent.String()),
	)

	return result, nil
}

// refundStable returns stable asset pulled for an operation that could not
// complete. Best-effort: a failed refund is logged for reconciliation.
func (l *Ledger) refundStable(ctx context.Context, holder string, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	if err := l.bank.PayStable(ctx, holder, amount); err != nil {
		l.logger.ErrorContext(ctx, "ledger: stable refund failed, manual reconciliation required",
			slog.String("holder", holder),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()),
		)
	}
}
