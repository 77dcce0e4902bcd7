package ledger

import (
	"context"
	"fmt"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// ExpiryState derives the option's current lifecycle phase from the
// protocol's reported timestamps and the ledger clock. Nothing is cached:
// the phase is a pure function of time, recomputed on every call.
func (l *Ledger) ExpiryState(ctx context.Context) (domain.ExpiryState, error) {
	expiry, err := l.protocol.ExpiryTimestamp(ctx)
	if err != nil {
		return domain.ExpiryState{}, fmt.Errorf("ledger: expiry timestamp: %w", err)
	}
	window, err := l.protocol.ExerciseWindow(ctx)
	if err != nil {
		return domain.ExpiryState{}, fmt.Errorf("ledger: exercise window: %w", err)
	}
	return domain.DeriveExpiryState(l.now(), expiry, window), nil
}

// requireNotExpired gates the pre-expiry withdraw paths.
func (l *Ledger) requireNotExpired(ctx context.Context) error {
	state, err := l.ExpiryState(ctx)
	if err != nil {
		return err
	}
	if state.Expired() {
		return domain.ErrOptionExpired
	}
	return nil
}

// requireExercisable gates exercise to the bounded post-expiry window.
func (l *Ledger) requireExercisable(ctx context.Context) error {
	state, err := l.ExpiryState(ctx)
	if err != nil {
		return err
	}
	if !state.WithinExerciseWindow() {
		return domain.ErrOutsideExerciseWindow
	}
	return nil
}
