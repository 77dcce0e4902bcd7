package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Transfer moves amount wrapped units from one holder to another, together
// with the matching interest-bearing amount between their vaults. The
// recipient's vault is provisioned on demand. The pooled option leg is not
// touched: it stays contract-custodied.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount *big.Int) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.end()
	return l.transfer(ctx, from, to, amount)
}

// TransferFrom moves amount wrapped units from owner to to, drawing down
// spender's allowance. Fails with ErrInsufficientAllowance before any
// balance is touched.
func (l *Ledger) TransferFrom(ctx context.Context, spender, owner, to string, amount *big.Int) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.end()

	if err := checkAmount(amount); err != nil {
		return err
	}
	if l.Paused() {
		return domain.ErrPaused
	}

	allowance := l.Allowance(owner, spender)
	if allowance.Cmp(amount) < 0 {
		return domain.ErrInsufficientAllowance
	}

	if err := l.transfer(ctx, owner, to, amount); err != nil {
		return err
	}

	remaining := new(big.Int).Sub(allowance, amount)
	if err := l.setAllowance(ctx, owner, spender, remaining); err != nil {
		return fmt.Errorf("ledger: transfer-from allowance: %w", err)
	}
	return nil
}

// Approve sets spender's allowance over owner's balance. Approvals are pure
// bookkeeping and remain available while paused.
func (l *Ledger) Approve(ctx context.Context, owner, spender string, amount *big.Int) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.end()

	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.setAllowance(ctx, owner, spender, amount); err != nil {
		return err
	}
	l.emitLedger(ctx, domain.EventApprove, map[string]any{
		"owner":   owner,
		"spender": spender,
		"amount":  amount.String(),
	})
	return nil
}

// transfer is the shared balance+vault move. Caller holds the operation slot.
func (l *Ledger) transfer(ctx context.Context, from, to string, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if l.Paused() {
		return domain.ErrPaused
	}

	l.mu.Lock()
	fromBal, ok := l.balances[from]
	if !ok || fromBal.Cmp(amount) < 0 {
		l.mu.Unlock()
		return domain.ErrInsufficientBalance
	}
	l.mu.Unlock()

	// A self-transfer passes the sufficiency gate but moves nothing: the
	// debit and credit land on the same holder, so any balance or vault
	// write would double-count.
	if from != to {
		// Move the interest-bearing leg first; the registry enforces its
		// own sufficiency and provisions the recipient's vault on demand.
		if err := l.registry.MoveBetweenVaults(ctx, from, to, amount); err != nil {
			return fmt.Errorf("ledger: transfer vault move: %w", err)
		}

		l.mu.Lock()
		fromPrev := l.balances[from]
		fromNext := new(big.Int).Sub(fromPrev, amount)
		toNext := new(big.Int).Set(amount)
		if toBal, ok := l.balances[to]; ok {
			toNext.Add(toNext, toBal)
		}
		if err := l.balanceStore.Set(ctx, from, fromNext); err != nil {
			l.mu.Unlock()
			l.unwindVaultMove(ctx, from, to, amount)
			return fmt.Errorf("ledger: transfer persist %q: %w", from, err)
		}
		if err := l.balanceStore.Set(ctx, to, toNext); err != nil {
			// The debit is already durable; put it back before failing so
			// a restart does not observe a half-applied transfer.
			if restoreErr := l.balanceStore.Set(ctx, from, fromPrev); restoreErr != nil {
				l.logger.ErrorContext(ctx, "ledger: transfer debit restore failed, manual reconciliation required",
					slog.String("holder", from),
					slog.String("amount", amount.String()),
					slog.String("error", restoreErr.Error()),
				)
			}
			l.mu.Unlock()
			l.unwindVaultMove(ctx, from, to, amount)
			return fmt.Errorf("ledger: transfer persist %q: %w", to, err)
		}
		l.balances[from] = fromNext
		l.balances[to] = toNext
		l.mu.Unlock()
	}

	l.emitLedger(ctx, domain.EventTransfer, map[string]any{
		"from":   from,
		"to":     to,
		"amount": amount.String(),
	})
	l.logger.InfoContext(ctx, "transferred",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("amount", amount.String()),
	)
	return nil
}

// unwindVaultMove reverses a vault move whose paired balance write failed.
// Best-effort: a failed reversal is logged for reconciliation.
func (l *Ledger) unwindVaultMove(ctx context.Context, from, to string, amount *big.Int) {
	if err := l.registry.MoveBetweenVaults(ctx, to, from, amount); err != nil {
		l.logger.ErrorContext(ctx, "ledger: vault move reversal failed, manual reconciliation required",
			slog.String("from", from),
			slog.String("to", to),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (l *Ledger) setAllowance(ctx context.Context, owner, spender string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.allowanceStore.Set(ctx, owner, spender, amount); err != nil {
		return fmt.Errorf("ledger: persist allowance: %w", err)
	}
	byOwner, ok := l.allowances[owner]
	if !ok {
		byOwner = make(map[string]*big.Int)
		l.allowances[owner] = byOwner
	}
	byOwner[spender] = new(big.Int).Set(amount)
	return nil
}
