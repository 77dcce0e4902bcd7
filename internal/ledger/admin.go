package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Pause trips the circuit breaker: every state-changing entry point fails
// with ErrPaused until Unpause. Owner-gated.
func (l *Ledger) Pause(ctx context.Context, caller string) error {
	return l.setPaused(ctx, caller, true)
}

// Unpause restores normal operation. Owner-gated.
func (l *Ledger) Unpause(ctx context.Context, caller string) error {
	return l.setPaused(ctx, caller, false)
}

func (l *Ledger) setPaused(ctx context.Context, caller string, paused bool) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.end()

	l.mu.Lock()
	if caller != l.meta.Owner {
		l.mu.Unlock()
		return domain.ErrNotOwner
	}
	meta := l.meta
	meta.Paused = paused
	meta.UpdatedAt = l.now()
	if err := l.metaStore.Put(ctx, meta); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: persist paused flag: %w", err)
	}
	l.meta = meta
	l.mu.Unlock()

	event := domain.EventPaused
	if !paused {
		event = domain.EventUnpaused
	}
	l.emitAdmin(ctx, event, map[string]any{"caller": caller})
	l.logger.InfoContext(ctx, "pause flag changed",
		slog.Bool("paused", paused),
		slog.String("caller", caller),
	)
	return nil
}

// UpdateTokenName renames the wrapped token's display name. Pure metadata:
// accounting is unaffected, and the operation works regardless of the pause
// flag. Owner-gated; an empty or blank name is rejected.
func (l *Ledger) UpdateTokenName(ctx context.Context, caller, name string) error {
	if err := l.begin(); err != nil {
		return err
	}
	defer l.end()

	if strings.TrimSpace(name) == "" {
		return domain.ErrEmptyName
	}

	l.mu.Lock()
	if caller != l.meta.Owner {
		l.mu.Unlock()
		return domain.ErrNotOwner
	}
	meta := l.meta
	old := meta.Name
	meta.Name = name
	meta.UpdatedAt = l.now()
	if err := l.metaStore.Put(ctx, meta); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: persist token name: %w", err)
	}
	l.meta = meta
	l.mu.Unlock()

	l.emitAdmin(ctx, domain.EventNameChanged, map[string]any{
		"caller": caller,
		"old":    old,
		"new":    name,
	})
	return nil
}
