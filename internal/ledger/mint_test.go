package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/venue/fake"
)

func TestMint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)

	premium, err := f.ledger.GetCostOfOToken(ctx, big.NewInt(100))
	require.NoError(t, err)

	res := f.mint(t, alice, 100)

	require.Equal(t, 0, res.Minted.Cmp(big.NewInt(100)))
	require.Equal(t, 0, res.PremiumPaid.Cmp(premium))
	require.Equal(t, 0, res.InterestUnits.Cmp(big.NewInt(100)))

	// All-in pull at a 1:1 rate is premium + 100.
	spent := new(big.Int).Sub(big.NewInt(1_000_000), f.bank.Balance(fake.AssetStable, alice))
	require.Equal(t, 0, spent.Cmp(new(big.Int).Add(premium, big.NewInt(100))))

	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(100)))
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Cmp(big.NewInt(100)))
	require.Equal(t, 0, f.ledger.TotalSupply().Cmp(big.NewInt(100)))
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Cmp(big.NewInt(100)))
	requireConservation(t, f, alice)
}

func TestMintZeroIsNoop(t *testing.T) {
	f := newFixture(t)

	res, err := f.ledger.Mint(context.Background(), alice, new(big.Int), nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.Minted.Sign())
	require.Equal(t, 0, f.ledger.TotalSupply().Sign())
	// No vault is provisioned and the bank never saw a pull.
	require.Equal(t, 0, f.registry.Count())
	require.Empty(t, f.bus.Published())
}

func TestMintCreditsRealizedDelta(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 1_000_000)

	// The lending market delivers 1% less than the deposit implies. The
	// holder must be credited what actually landed in custody, not the
	// nominal request.
	f.lending.ShaveNextMint(100)

	res := f.mint(t, alice, 100)

	require.Equal(t, 0, res.Minted.Cmp(big.NewInt(99)))
	require.Equal(t, 0, res.InterestUnits.Cmp(big.NewInt(99)))
	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(99)))
	require.Equal(t, 0, f.ledger.TotalSupply().Cmp(big.NewInt(99)))
	// The full option order still executed; custody covers more than supply.
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Cmp(big.NewInt(100)))
	requireConservation(t, f, alice)
}

func TestMintSlippageRejectedAndRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)

	premium, err := f.ledger.GetCostOfOToken(ctx, big.NewInt(100))
	require.NoError(t, err)

	ceiling := new(big.Int).Sub(premium, big.NewInt(1))
	_, err = f.ledger.Mint(ctx, alice, big.NewInt(100), ceiling)
	require.ErrorIs(t, err, domain.ErrSlippageExceeded)

	// The rejected mint leaves no trace: the pulled stable came back and
	// nothing was minted anywhere.
	require.Equal(t, 0, f.bank.Balance(fake.AssetStable, alice).Cmp(big.NewInt(1_000_000)))
	require.Equal(t, 0, f.ledger.BalanceOf(alice).Sign())
	require.Equal(t, 0, f.ledger.TotalSupply().Sign())
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Sign())
}

func TestMintRollsBackVaultOnPersistFailure(t *testing.T) {
	f := newFixtureWith(t, func(d *Deps) {
		d.Balances = &failingBalanceStore{BalanceStore: d.Balances, failFor: alice}
	})
	ctx := context.Background()
	f.fund(alice, 1_000_000)

	_, err := f.ledger.Mint(ctx, alice, big.NewInt(100), nil)
	require.Error(t, err)

	// No unbacked vault balance survives the failed mint.
	require.Equal(t, 0, f.ledger.BalanceOf(alice).Sign())
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Sign())
	require.Equal(t, 0, f.ledger.TotalSupply().Sign())
	requireConservation(t, f, alice)
}

func TestMintRequiresApproval(t *testing.T) {
	f := newFixture(t)
	f.bank.SetBalance(fake.AssetStable, alice, big.NewInt(1_000_000))

	_, err := f.ledger.Mint(context.Background(), alice, big.NewInt(100), nil)
	require.ErrorIs(t, err, domain.ErrInsufficientApproval)
}

func TestMintWhilePaused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	require.NoError(t, f.ledger.Pause(ctx, operator))

	_, err := f.ledger.Mint(ctx, alice, big.NewInt(100), nil)
	require.ErrorIs(t, err, domain.ErrPaused)
}

func TestMintRejectsInvalidAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Mint(ctx, alice, nil, nil)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.ledger.Mint(ctx, alice, big.NewInt(-5), nil)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestMintPublishesLedgerEvent(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 1_000_000)

	f.mint(t, alice, 100)

	published := f.bus.Published()
	require.NotEmpty(t, published)
	last := published[len(published)-1]
	require.Equal(t, domain.ChannelLedger, last.Channel)
	require.Contains(t, string(last.Payload), domain.EventMint)
	require.Contains(t, string(last.Payload), alice)
}

func TestMintAccumulates(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 1_000_000)

	f.mint(t, alice, 100)
	f.mint(t, alice, 50)

	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(150)))
	require.Equal(t, 0, f.ledger.TotalSupply().Cmp(big.NewInt(150)))
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Cmp(big.NewInt(150)))
	require.Equal(t, 1, f.registry.Count())
	requireConservation(t, f, alice)
}
