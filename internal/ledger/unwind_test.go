package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/venue/fake"
)

func TestRedeemForfeitsInsurance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)
	before := f.bank.Balance(fake.AssetStable, alice)

	stable, err := f.ledger.Redeem(ctx, alice, big.NewInt(40))
	require.NoError(t, err)
	// 1:1 rate: the interest leg alone comes back as 40 stable.
	require.Equal(t, 0, stable.Cmp(big.NewInt(40)))

	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(60)))
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Cmp(big.NewInt(60)))
	require.Equal(t, 0, f.ledger.TotalSupply().Cmp(big.NewInt(60)))
	// The matching option units stay pooled: redemption forfeits them.
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Cmp(big.NewInt(100)))

	got := new(big.Int).Sub(f.bank.Balance(fake.AssetStable, alice), before)
	require.Equal(t, 0, got.Cmp(stable))
	requireConservation(t, f, alice)
}

func TestMintRedeemRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := big.NewInt(1_000_000)
	f.fund(alice, start.Int64())

	res := f.mint(t, alice, 100)
	_, err := f.ledger.Redeem(ctx, alice, big.NewInt(100))
	require.NoError(t, err)

	// The full round trip returns the caller to the pre-mint stable
	// balance minus the forfeited premium, within one unit of rounding.
	want := new(big.Int).Sub(start, res.PremiumPaid)
	got := f.bank.Balance(fake.AssetStable, alice)
	diff := new(big.Int).Sub(want, got)
	require.True(t, diff.CmpAbs(big.NewInt(1)) <= 0,
		"round trip must cost only the premium, want %s got %s", want, got)

	require.Equal(t, 0, f.ledger.BalanceOf(alice).Sign())
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Sign())
	require.Equal(t, 0, f.ledger.TotalSupply().Sign())
	requireConservation(t, f, alice)
}

func TestRedeemInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	_, err := f.ledger.Redeem(ctx, alice, big.NewInt(101))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = f.ledger.Redeem(ctx, bob, big.NewInt(1))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestWithdrawAssetHedgesOptionProceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	res, err := f.ledger.Withdraw(ctx, alice, big.NewInt(30), domain.WithdrawAsset)
	require.NoError(t, err)

	// The option leg was sold and its proceeds hedged into extra
	// interest-bearing units on top of the nominal amount.
	require.True(t, res.InterestBearing.Cmp(big.NewInt(30)) > 0)
	require.Equal(t, 0, res.OptionUnits.Sign())
	require.Equal(t, 0, res.Stable.Sign())
	require.Equal(t, 0, f.bank.Balance(fake.AssetInterestBearing, alice).Cmp(res.InterestBearing))

	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(70)))
	require.Equal(t, 0, f.ledger.TotalSupply().Cmp(big.NewInt(70)))
	// This path releases the matching pooled option units.
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Cmp(big.NewInt(70)))
	requireConservation(t, f, alice)
}

func TestWithdrawAssetAndOTokensReturnsRawLegs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	res, err := f.ledger.Withdraw(ctx, alice, big.NewInt(25), domain.WithdrawAssetAndOTokens)
	require.NoError(t, err)

	require.Equal(t, 0, res.InterestBearing.Cmp(big.NewInt(25)))
	require.Equal(t, 0, res.OptionUnits.Cmp(big.NewInt(25)))
	require.Equal(t, 0, res.Stable.Sign())
	require.Equal(t, 0, f.bank.Balance(fake.AssetInterestBearing, alice).Cmp(big.NewInt(25)))
	require.Equal(t, 0, f.bank.Balance(fake.AssetOption, alice).Cmp(big.NewInt(25)))
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Cmp(big.NewInt(75)))
	requireConservation(t, f, alice)
}

func TestWithdrawUnderlyingSellsBothLegs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)
	before := f.bank.Balance(fake.AssetStable, alice)

	res, err := f.ledger.Withdraw(ctx, alice, big.NewInt(30), domain.WithdrawUnderlying)
	require.NoError(t, err)

	// 30 stable from the interest leg plus the realized option sale, which
	// loses a little to swap fees.
	require.True(t, res.Stable.Cmp(big.NewInt(30)) > 0)
	require.True(t, res.Stable.Cmp(big.NewInt(60)) <= 0)
	require.Equal(t, 0, res.InterestBearing.Sign())
	require.Equal(t, 0, res.OptionUnits.Sign())

	got := new(big.Int).Sub(f.bank.Balance(fake.AssetStable, alice), before)
	require.Equal(t, 0, got.Cmp(res.Stable))
	requireConservation(t, f, alice)
}

func TestWithdrawUnknownVariant(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	_, err := f.ledger.Withdraw(context.Background(), alice, big.NewInt(10), domain.WithdrawVariant("bogus"))
	require.Error(t, err)
	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(100)))
}

func TestWithdrawAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	f.clock.Advance(31 * 24 * time.Hour)

	for _, variant := range []domain.WithdrawVariant{
		domain.WithdrawAsset,
		domain.WithdrawAssetAndOTokens,
		domain.WithdrawUnderlying,
	} {
		_, err := f.ledger.Withdraw(ctx, alice, big.NewInt(10), variant)
		require.ErrorIs(t, err, domain.ErrOptionExpired, "variant %s", variant)
	}

	// Redemption of the interest leg has no expiry gate.
	_, err := f.ledger.Redeem(ctx, alice, big.NewInt(10))
	require.NoError(t, err)
}

func TestExerciseInsurance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	// Move into the exercise window.
	f.clock.Advance(30*24*time.Hour + time.Hour)

	payout, err := f.ledger.ExerciseInsurance(ctx, alice, big.NewInt(100), []string{"0xwriter"})
	require.NoError(t, err)
	// 1:1 settlement rate relays the full amount.
	require.Equal(t, 0, payout.Cmp(big.NewInt(100)))
	require.Equal(t, 0, f.bank.Balance(fake.AssetNative, alice).Cmp(big.NewInt(100)))

	require.Equal(t, 0, f.ledger.BalanceOf(alice).Sign())
	require.Equal(t, 0, f.ledger.TotalSupply().Sign())
	require.Equal(t, 0, f.ledger.PooledOptionCustody().Sign())
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Sign())
	require.Equal(t, 0, f.protocol.Surrendered().Cmp(big.NewInt(100)))
}

func TestExerciseOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	// Before expiry.
	_, err := f.ledger.ExerciseInsurance(ctx, alice, big.NewInt(10), nil)
	require.ErrorIs(t, err, domain.ErrOutsideExerciseWindow)

	// After the window closes.
	f.clock.Advance(45 * 24 * time.Hour)
	_, err = f.ledger.ExerciseInsurance(ctx, alice, big.NewInt(10), nil)
	require.ErrorIs(t, err, domain.ErrOutsideExerciseWindow)
	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(100)))
}

func TestHarvestRewards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(alice, 1_000_000)
	f.mint(t, alice, 100)

	v, err := f.registry.Lookup(alice)
	require.NoError(t, err)
	f.lending.AddReward(v.ID, big.NewInt(55))

	claimed, err := f.ledger.HarvestRewards(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 0, claimed.Cmp(big.NewInt(55)))
	require.Equal(t, 0, f.bank.Balance(fake.AssetReward, alice).Cmp(big.NewInt(55)))

	// Claiming drains the accrual; a second harvest finds nothing.
	claimed, err = f.ledger.HarvestRewards(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 0, claimed.Sign())

	// Wrapped accounting is untouched by harvesting.
	require.Equal(t, 0, f.ledger.BalanceOf(alice).Cmp(big.NewInt(100)))
	require.Equal(t, 0, f.ledger.VaultBalance(alice).Cmp(big.NewInt(100)))
}

func TestHarvestRequiresVault(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.HarvestRewards(context.Background(), bob)
	require.ErrorIs(t, err, domain.ErrNoVaultForHolder)
}
