package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// WithdrawResult reports what an unwind paid out.
type WithdrawResult struct {
	Holder  string
	Burned  *big.Int
	Variant domain.WithdrawVariant
	// Paid amounts per leg; zero for legs the variant does not return.
	InterestBearing *big.Int
	OptionUnits     *big.Int
	Stable          *big.Int
}

// Redeem burns amount wrapped units and returns the stable-asset proceeds of
// the interest-bearing leg alone. The matching pooled option units stay in
// contract custody: redemption forfeits insurance on the redeemed amount and
// leaves coverage on the remaining balance intact.
func (l *Ledger) Redeem(ctx context.Context, holder string, amount *big.Int) (*big.Int, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if l.Paused() {
		return nil, domain.ErrPaused
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	if err := l.checkBalances(holder, amount); err != nil {
		return nil, err
	}

	stable, err := l.lending.RedeemInterestBearing(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("ledger: redeem interest leg: %w", err)
	}

	if err := l.registry.WithdrawFrom(ctx, holder, amount); err != nil {
		return nil, fmt.Errorf("ledger: redeem vault withdraw: %w", err)
	}
	if err := l.burn(ctx, holder, amount, false); err != nil {
		return nil, err
	}

	if err := l.bank.PayStable(ctx, holder, stable); err != nil {
		return nil, fmt.Errorf("ledger: redeem pay stable: %w", err)
	}

	l.emitLedger(ctx, domain.EventRedeem, map[string]any{
		"holder": holder,
		"amount": amount.String(),
		"stable": stable.String(),
	})
	l.logger.InfoContext(ctx, "redeemed",
		slog.String("holder", holder),
		slog.String("amount", amount.String()),
		slog.String("stable", stable.String()),
	)
	return stable, nil
}

// Withdraw burns amount wrapped units through one of the three pre-expiry
// unwind variants. All variants fail with ErrOptionExpired once the option's
// expiry timestamp has passed.
func (l *Ledger) Withdraw(ctx context.Context, holder string, amount *big.Int, variant domain.WithdrawVariant) (WithdrawResult, error) {
	if err := l.begin(); err != nil {
		return WithdrawResult{}, err
	}
	defer l.end()

	if !variant.Valid() {
		return WithdrawResult{}, fmt.Errorf("ledger: unknown withdraw variant %q", variant)
	}
	if err := checkAmount(amount); err != nil {
		return WithdrawResult{}, err
	}
	if l.Paused() {
		return WithdrawResult{}, domain.ErrPaused
	}
	if err := l.requireNotExpired(ctx); err != nil {
		return WithdrawResult{}, err
	}

	result := WithdrawResult{
		Holder:          holder,
		Burned:          new(big.Int).Set(amount),
		Variant:         variant,
		InterestBearing: new(big.Int),
		OptionUnits:     new(big.Int),
		Stable:          new(big.Int),
	}
	if amount.Sign() == 0 {
		result.Burned = new(big.Int)
		return result, nil
	}
	if err := l.checkBalances(holder, amount); err != nil {
		return WithdrawResult{}, err
	}

	switch variant {
	case domain.WithdrawAsset:
		// Sell the option leg and hedge the proceeds into additional
		// interest-bearing asset for the caller.
		proceeds, err := l.option.SellOptionLeg(ctx, amount)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw sell option leg: %w", err)
		}
		extra, err := l.lending.MintInterestBearing(ctx, proceeds)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw hedge proceeds: %w", err)
		}
		result.InterestBearing.Add(amount, extra)

	case domain.WithdrawAssetAndOTokens:
		// No market sale; both legs return raw.
		result.InterestBearing.Set(amount)
		result.OptionUnits.Set(amount)

	case domain.WithdrawUnderlying:
		// Sell both legs for stable asset.
		fromInterest, err := l.lending.RedeemInterestBearing(ctx, amount)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw redeem interest leg: %w", err)
		}
		fromOption, err := l.option.SellOptionLeg(ctx, amount)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw sell option leg: %w", err)
		}
		result.Stable.Add(fromInterest, fromOption)
	}

	if err := l.registry.WithdrawFrom(ctx, holder, amount); err != nil {
		return WithdrawResult{}, fmt.Errorf("ledger: withdraw vault: %w", err)
	}
	if err := l.burn(ctx, holder, amount, true); err != nil {
		return WithdrawResult{}, err
	}

	if result.InterestBearing.Sign() > 0 {
		if err := l.bank.PayInterestBearing(ctx, holder, result.InterestBearing); err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw pay interest-bearing: %w", err)
		}
	}
	if result.OptionUnits.Sign() > 0 {
		if err := l.bank.PayOption(ctx, holder, result.OptionUnits); err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw pay option units: %w", err)
		}
	}
	if result.Stable.Sign() > 0 {
		if err := l.bank.PayStable(ctx, holder, result.Stable); err != nil {
			return WithdrawResult{}, fmt.Errorf("ledger: withdraw pay stable: %w", err)
		}
	}

	l.emitLedger(ctx, domain.EventWithdraw, map[string]any{
		"holder":           holder,
		"amount":           amount.String(),
		"variant":          string(variant),
		"interest_bearing": result.InterestBearing.String(),
		"option_units":     result.OptionUnits.String(),
		"stable":           result.Stable.String(),
	})
	return result, nil
}

// ExerciseInsurance settles amount wrapped units against the option
// protocol during the exercise window: the option leg and the matching
// interest-bearing collateral are surrendered, and the settlement payout is
// relayed to the holder unmodified.
func (l *Ledger) ExerciseInsurance(ctx context.Context, holder string, amount *big.Int, counterpartyVaults []string) (*big.Int, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if l.Paused() {
		return nil, domain.ErrPaused
	}
	if err := l.requireExercisable(ctx); err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	if err := l.checkBalances(holder, amount); err != nil {
		return nil, err
	}

	payout, err := l.protocol.Exercise(ctx, amount, counterpartyVaults)
	if err != nil {
		return nil, fmt.Errorf("ledger: exercise: %w", err)
	}

	if err := l.registry.WithdrawFrom(ctx, holder, amount); err != nil {
		return nil, fmt.Errorf("ledger: exercise vault withdraw: %w", err)
	}
	if err := l.burn(ctx, holder, amount, true); err != nil {
		return nil, err
	}

	if err := l.bank.PayNative(ctx, holder, payout); err != nil {
		return nil, fmt.Errorf("ledger: exercise relay payout: %w", err)
	}

	l.emitLedger(ctx, domain.EventExercise, map[string]any{
		"holder": holder,
		"amount": amount.String(),
		"payout": payout.String(),
	})
	l.logger.InfoContext(ctx, "exercised",
		slog.String("holder", holder),
		slog.String("amount", amount.String()),
		slog.String("payout", payout.String()),
	)
	return payout, nil
}

// HarvestRewards claims the reward asset a holder's vault has farmed on its
// interest-bearing balance and pays it out. Wrapped accounting is untouched.
func (l *Ledger) HarvestRewards(ctx context.Context, holder string) (*big.Int, error) {
	if err := l.begin(); err != nil {
		return nil, err
	}
	defer l.end()

	if l.Paused() {
		return nil, domain.ErrPaused
	}
	v, err := l.registry.Lookup(holder)
	if err != nil {
		return nil, err
	}

	claimed, err := l.lending.ClaimRewards(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("ledger: harvest claim: %w", err)
	}
	if claimed.Sign() == 0 {
		return claimed, nil
	}
	if err := l.bank.PayReward(ctx, holder, claimed); err != nil {
		return nil, fmt.Errorf("ledger: harvest pay reward: %w", err)
	}

	l.emitLedger(ctx, domain.EventHarvest, map[string]any{
		"holder":  holder,
		"claimed": claimed.String(),
	})
	return claimed, nil
}

// checkBalances verifies both the wrapped balance and the backing vault
// balance before any external call is issued.
func (l *Ledger) checkBalances(holder string, amount *big.Int) error {
	l.mu.RLock()
	bal, ok := l.balances[holder]
	if !ok || bal.Cmp(amount) < 0 {
		l.mu.RUnlock()
		return domain.ErrInsufficientBalance
	}
	l.mu.RUnlock()

	if l.registry.Balance(holder).Cmp(amount) < 0 {
		return domain.ErrInsufficientVaultBalance
	}
	return nil
}

// burn removes amount from holder's balance and the total supply;
// releaseOption additionally releases amount from the pooled option custody.
func (l *Ledger) burn(ctx context.Context, holder string, amount *big.Int, releaseOption bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := new(big.Int).Sub(l.balances[holder], amount)
	if next.Sign() < 0 {
		return domain.ErrInsufficientBalance
	}
	if err := l.balanceStore.Set(ctx, holder, next); err != nil {
		return fmt.Errorf("ledger: burn persist %q: %w", holder, err)
	}
	l.balances[holder] = next
	l.totalSupply.Sub(l.totalSupply, amount)
	if releaseOption {
		l.pooledOption.Sub(l.pooledOption, amount)
	}
	return nil
}
