package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

func TestPauseUnpause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.Pause(ctx, operator))
	require.True(t, f.ledger.Paused())

	require.NoError(t, f.ledger.Unpause(ctx, operator))
	require.False(t, f.ledger.Paused())
}

func TestPauseOwnerGated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.ledger.Pause(ctx, alice), domain.ErrNotOwner)
	require.False(t, f.ledger.Paused())

	require.NoError(t, f.ledger.Pause(ctx, operator))
	require.ErrorIs(t, f.ledger.Unpause(ctx, alice), domain.ErrNotOwner)
	require.True(t, f.ledger.Paused())
}

func TestPausePublishesAdminEvent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Pause(context.Background(), operator))

	published := f.bus.Published()
	require.NotEmpty(t, published)
	last := published[len(published)-1]
	require.Equal(t, domain.ChannelAdmin, last.Channel)
	require.Contains(t, string(last.Payload), domain.EventPaused)
}

func TestUpdateTokenName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.UpdateTokenName(ctx, operator, "saveDAI v2"))
	require.Equal(t, "saveDAI v2", f.ledger.Name())
	// Symbol and accounting are untouched by a rename.
	require.Equal(t, "SVDAI", f.ledger.Symbol())
}

func TestUpdateTokenNameRejectsBlank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.ledger.UpdateTokenName(ctx, operator, ""), domain.ErrEmptyName)
	require.ErrorIs(t, f.ledger.UpdateTokenName(ctx, operator, "   "), domain.ErrEmptyName)
	require.Equal(t, "saveDAI", f.ledger.Name())
}

func TestUpdateTokenNameOwnerGated(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.ledger.UpdateTokenName(context.Background(), alice, "hijacked"), domain.ErrNotOwner)
	require.Equal(t, "saveDAI", f.ledger.Name())
}

func TestUpdateTokenNameWorksWhilePaused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.Pause(ctx, operator))
	require.NoError(t, f.ledger.UpdateTokenName(ctx, operator, "renamed"))
	require.Equal(t, "renamed", f.ledger.Name())
}
