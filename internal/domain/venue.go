package domain

import (
	"context"
	"math/big"
	"time"
)

// OptionVenue prices and executes the option leg against the external
// exchange venues. Quoting is a pure read of venue reserve state; acquiring
// and selling move real assets and must respect the caller's ceiling.
type OptionVenue interface {
	// QuoteOptionCost returns the stable-asset cost of amount option units
	// at current reserves. No side effects.
	QuoteOptionCost(ctx context.Context, amount *big.Int) (*big.Int, error)

	// AcquireOption executes the two-hop swap (stable -> native -> option)
	// for exactly amount option units and returns the realized stable spend.
	// Fails with ErrSlippageExceeded when the realized cost would exceed
	// maxStableSpend, or ErrQuoteStale when reserves drifted beyond the
	// adapter's accepted tolerance between quote and execution.
	AcquireOption(ctx context.Context, amount, maxStableSpend *big.Int) (*big.Int, error)

	// SellOptionLeg swaps amount option units back to stable asset and
	// returns the realized proceeds.
	SellOptionLeg(ctx context.Context, amount *big.Int) (*big.Int, error)
}

// LendingVenue converts stable asset to and from the interest-bearing asset
// through the external lending market.
//
// MintInterestBearing implementations must report the realized delta in the
// adapter's custodial balance, never the amount implied by a prior rate
// quote: the market's rate can move between quote and execution.
type LendingVenue interface {
	// ExchangeRate returns the current stable-per-interest-bearing-unit rate,
	// scaled by 1e18. Read-only.
	ExchangeRate(ctx context.Context) (*big.Int, error)

	// MintInterestBearing deposits stableAmount into the lending market and
	// returns the realized interest-bearing delta.
	MintInterestBearing(ctx context.Context, stableAmount *big.Int) (*big.Int, error)

	// RedeemInterestBearing redeems amount interest-bearing units and
	// returns the realized stable-asset proceeds.
	RedeemInterestBearing(ctx context.Context, amount *big.Int) (*big.Int, error)

	// UnderlyingValue returns the accrued-interest-inclusive stable value of
	// amount interest-bearing units. Read-only.
	UnderlyingValue(ctx context.Context, amount *big.Int) (*big.Int, error)

	// AccruedRewards returns the reward-asset balance a vault has farmed on
	// its interest-bearing position. Read-only.
	AccruedRewards(ctx context.Context, vaultID uint64) (*big.Int, error)

	// ClaimRewards claims a vault's farmed reward balance and returns the
	// amount released.
	ClaimRewards(ctx context.Context, vaultID uint64) (*big.Int, error)
}

// OptionProtocol is the option issuer's surface: expiry reporting and the
// exercise entry point whose settlement payout the ledger relays unmodified.
type OptionProtocol interface {
	ExpiryTimestamp(ctx context.Context) (time.Time, error)
	ExerciseWindow(ctx context.Context) (time.Duration, error)

	// Exercise surrenders amount option units plus the matching
	// interest-bearing collateral against the supplied counterparty vault
	// list and returns the settlement-asset payout.
	Exercise(ctx context.Context, amount *big.Int, counterpartyVaults []string) (*big.Int, error)
}

// AssetBank moves the external assets between holders and the contract's
// custody. Pulls fail before any other external call is issued when the
// holder's balance or approval is short.
type AssetBank interface {
	// PullStable draws amount stable asset from the holder into contract
	// custody. Fails with ErrInsufficientBalance or ErrInsufficientApproval.
	PullStable(ctx context.Context, from string, amount *big.Int) error

	PayStable(ctx context.Context, to string, amount *big.Int) error
	PayInterestBearing(ctx context.Context, to string, amount *big.Int) error
	PayOption(ctx context.Context, to string, amount *big.Int) error
	// PayNative relays an exercise settlement payout.
	PayNative(ctx context.Context, to string, amount *big.Int) error
	PayReward(ctx context.Context, to string, amount *big.Int) error
}
