package fake

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

func deepReserve() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
}

func oneE18() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func newTestAMM() *AMM {
	return NewAMM(deepReserve(), deepReserve(), deepReserve(), deepReserve())
}

func TestAMMQuoteMatchesAcquire(t *testing.T) {
	amm := newTestAMM()
	ctx := context.Background()
	amount := big.NewInt(1_000)

	quoted, err := amm.QuoteOptionCost(ctx, amount)
	require.NoError(t, err)
	require.Positive(t, quoted.Sign())

	spent, err := amm.AcquireOption(ctx, amount, nil)
	require.NoError(t, err)
	require.Equal(t, 0, spent.Cmp(quoted))
}

func TestAMMQuoteMonotonic(t *testing.T) {
	amm := newTestAMM()
	ctx := context.Background()

	small, err := amm.QuoteOptionCost(ctx, big.NewInt(100))
	require.NoError(t, err)
	large, err := amm.QuoteOptionCost(ctx, big.NewInt(10_000))
	require.NoError(t, err)
	require.True(t, large.Cmp(small) > 0)

	// Quoting does not move reserves.
	again, err := amm.QuoteOptionCost(ctx, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, again.Cmp(small))
}

func TestAMMAcquireMovesPrice(t *testing.T) {
	amm := newTestAMM()
	ctx := context.Background()
	amount := big.NewInt(1_000_000)

	first, err := amm.AcquireOption(ctx, amount, nil)
	require.NoError(t, err)
	second, err := amm.AcquireOption(ctx, amount, nil)
	require.NoError(t, err)
	require.True(t, second.Cmp(first) > 0, "repeat buys must see worsening prices")
}

func TestAMMCeilingEnforced(t *testing.T) {
	amm := newTestAMM()
	ctx := context.Background()
	amount := big.NewInt(1_000)

	quoted, err := amm.QuoteOptionCost(ctx, amount)
	require.NoError(t, err)

	ceiling := new(big.Int).Sub(quoted, big.NewInt(1))
	_, err = amm.AcquireOption(ctx, amount, ceiling)
	require.ErrorIs(t, err, domain.ErrSlippageExceeded)

	// The rejected swap left reserves untouched.
	again, err := amm.QuoteOptionCost(ctx, amount)
	require.NoError(t, err)
	require.Equal(t, 0, again.Cmp(quoted))
}

func TestAMMZeroAmount(t *testing.T) {
	amm := newTestAMM()
	ctx := context.Background()

	quoted, err := amm.QuoteOptionCost(ctx, new(big.Int))
	require.NoError(t, err)
	require.Equal(t, 0, quoted.Sign())

	spent, err := amm.AcquireOption(ctx, new(big.Int), nil)
	require.NoError(t, err)
	require.Equal(t, 0, spent.Sign())
}

func TestAMMDrainedPool(t *testing.T) {
	amm := NewAMM(big.NewInt(1_000), big.NewInt(1_000), big.NewInt(1_000), big.NewInt(1_000))
	_, err := amm.QuoteOptionCost(context.Background(), big.NewInt(1_000))
	require.ErrorIs(t, err, domain.ErrQuoteStale)
}

func TestAMMSellRoundTripLosesFees(t *testing.T) {
	amm := newTestAMM()
	ctx := context.Background()
	amount := big.NewInt(10_000)

	spent, err := amm.AcquireOption(ctx, amount, nil)
	require.NoError(t, err)
	proceeds, err := amm.SellOptionLeg(ctx, amount)
	require.NoError(t, err)
	require.True(t, proceeds.Cmp(spent) < 0, "round trip must pay the swap fee")
	require.Positive(t, proceeds.Sign())
}

func TestLendingMintMeasuresDelta(t *testing.T) {
	m := NewLendingMarket(oneE18())
	ctx := context.Background()

	realized, err := m.MintInterestBearing(ctx, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, realized.Cmp(big.NewInt(100)))
	require.Equal(t, 0, m.Custodial().Cmp(big.NewInt(100)))

	// A one-shot shave drifts the next mint only.
	m.ShaveNextMint(100)
	realized, err = m.MintInterestBearing(ctx, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, realized.Cmp(big.NewInt(99)))

	realized, err = m.MintInterestBearing(ctx, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, realized.Cmp(big.NewInt(100)))
}

func TestLendingRateConversion(t *testing.T) {
	// rate 2e18: one interest-bearing unit is worth two stable.
	rate := new(big.Int).Mul(oneE18(), big.NewInt(2))
	m := NewLendingMarket(rate)
	ctx := context.Background()

	units, err := m.MintInterestBearing(ctx, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, units.Cmp(big.NewInt(50)))

	value, err := m.UnderlyingValue(ctx, units)
	require.NoError(t, err)
	require.Equal(t, 0, value.Cmp(big.NewInt(100)))

	stable, err := m.RedeemInterestBearing(ctx, units)
	require.NoError(t, err)
	require.Equal(t, 0, stable.Cmp(big.NewInt(100)))
	require.Equal(t, 0, m.Custodial().Sign())
}

func TestLendingRedeemBeyondCustody(t *testing.T) {
	m := NewLendingMarket(oneE18())
	_, err := m.RedeemInterestBearing(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestLendingRewardsAccrueAndDrain(t *testing.T) {
	m := NewLendingMarket(oneE18())
	ctx := context.Background()

	m.AddReward(7, big.NewInt(10))
	m.AddReward(7, big.NewInt(5))

	accrued, err := m.AccruedRewards(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 0, accrued.Cmp(big.NewInt(15)))

	claimed, err := m.ClaimRewards(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 0, claimed.Cmp(big.NewInt(15)))

	claimed, err = m.ClaimRewards(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 0, claimed.Sign())
}

func TestProtocolExercisePayout(t *testing.T) {
	expiry := time.Unix(1_700_000_000, 0)
	// 0.5e18 payout rate: half the exercised amount comes back.
	half := new(big.Int).Div(oneE18(), big.NewInt(2))
	p := NewOptionProtocol(expiry, 14*24*time.Hour, half)
	ctx := context.Background()

	payout, err := p.Exercise(ctx, big.NewInt(100), nil)
	require.NoError(t, err)
	require.Equal(t, 0, payout.Cmp(big.NewInt(50)))
	require.Equal(t, 0, p.Surrendered().Cmp(big.NewInt(100)))

	got, err := p.ExpiryTimestamp(ctx)
	require.NoError(t, err)
	require.True(t, got.Equal(expiry))
}

func TestBankPullChecksBalanceThenApproval(t *testing.T) {
	b := NewBank()
	ctx := context.Background()

	err := b.PullStable(ctx, "alice", big.NewInt(10))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	b.SetBalance(AssetStable, "alice", big.NewInt(100))
	err = b.PullStable(ctx, "alice", big.NewInt(10))
	require.ErrorIs(t, err, domain.ErrInsufficientApproval)

	b.Approve("alice", big.NewInt(50))
	require.NoError(t, b.PullStable(ctx, "alice", big.NewInt(10)))
	require.Equal(t, 0, b.Balance(AssetStable, "alice").Cmp(big.NewInt(90)))

	// The approval drew down with the pull.
	err = b.PullStable(ctx, "alice", big.NewInt(41))
	require.ErrorIs(t, err, domain.ErrInsufficientApproval)
}

func TestBankPayCredits(t *testing.T) {
	b := NewBank()
	ctx := context.Background()

	require.NoError(t, b.PayStable(ctx, "alice", big.NewInt(5)))
	require.NoError(t, b.PayNative(ctx, "alice", big.NewInt(7)))
	require.NoError(t, b.PayReward(ctx, "alice", big.NewInt(3)))

	require.Equal(t, 0, b.Balance(AssetStable, "alice").Cmp(big.NewInt(5)))
	require.Equal(t, 0, b.Balance(AssetNative, "alice").Cmp(big.NewInt(7)))
	require.Equal(t, 0, b.Balance(AssetReward, "alice").Cmp(big.NewInt(3)))
}
