package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

func TestExpiryStateDerivedFromClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.ledger.ExpiryState(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseActive, state.Phase)
	require.False(t, state.Expired())
	require.False(t, state.WithinExerciseWindow())

	// Land exactly on expiry: the boundary belongs to the window.
	f.clock.Advance(30 * 24 * time.Hour)
	state, err = f.ledger.ExpiryState(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseExercisable, state.Phase)
	require.True(t, state.Expired())
	require.True(t, state.WithinExerciseWindow())

	// Past the window end.
	f.clock.Advance(14 * 24 * time.Hour)
	state, err = f.ledger.ExpiryState(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseExpired, state.Phase)
	require.True(t, state.Expired())
	require.False(t, state.WithinExerciseWindow())
}

func TestExpiryStateNeverCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Advance(31 * 24 * time.Hour)
	state, err := f.ledger.ExpiryState(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseExercisable, state.Phase)

	// Moving the protocol's expiry re-derives the phase on the next read.
	f.protocol.SetExpiry(f.clock.Now().Add(24 * time.Hour))
	state, err = f.ledger.ExpiryState(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseActive, state.Phase)
}

// reentrantVenue wraps the fixture AMM and calls back into the ledger from
// inside AcquireOption, the way a malicious token callback would on-chain.
type reentrantVenue struct {
	domain.OptionVenue
	ledger *Ledger
	seen   error
}

func (v *reentrantVenue) AcquireOption(ctx context.Context, amount, maxStableSpend *big.Int) (*big.Int, error) {
	v.seen = v.ledger.Transfer(ctx, alice, bob, big.NewInt(1))
	return v.OptionVenue.AcquireOption(ctx, amount, maxStableSpend)
}

func TestReentrantCallRejected(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 1_000_000)

	venue := &reentrantVenue{OptionVenue: f.ledger.option, ledger: f.ledger}
	f.ledger.option = venue

	res, err := f.ledger.Mint(context.Background(), alice, big.NewInt(100), nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.Minted.Cmp(big.NewInt(100)))
	// The nested call was rejected, not queued; the outer mint completed.
	require.ErrorIs(t, venue.seen, domain.ErrReentrant)
}
