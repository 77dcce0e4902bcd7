package domain

// Signal bus channels. The websocket hub subscribes to all of them and the
// notifier filters by its configured event list.
const (
	ChannelLedger = "ledger"
	ChannelAdmin  = "admin"
)

// Audit / bus event names.
const (
	EventMint         = "mint"
	EventTransfer     = "transfer"
	EventApprove      = "approve"
	EventRedeem       = "redeem"
	EventWithdraw     = "withdraw"
	EventExercise     = "exercise"
	EventHarvest      = "harvest"
	EventPaused       = "paused"
	EventUnpaused     = "unpaused"
	EventNameChanged  = "name_changed"
)

// WithdrawVariant selects what an unwind returns to the caller.
type WithdrawVariant string

const (
	// WithdrawAsset: interest-bearing asset only; the option leg is sold on
	// the market and the proceeds minted into additional interest-bearing
	// asset for the caller.
	WithdrawAsset WithdrawVariant = "asset"
	// WithdrawAssetAndOTokens: interest-bearing asset plus raw option units,
	// no market sale.
	WithdrawAssetAndOTokens WithdrawVariant = "asset_otokens"
	// WithdrawUnderlying: raw stable asset; both legs sold on the market.
	WithdrawUnderlying WithdrawVariant = "underlying"
)

// Valid reports whether v names a known withdraw variant.
func (v WithdrawVariant) Valid() bool {
	switch v {
	case WithdrawAsset, WithdrawAssetAndOTokens, WithdrawUnderlying:
		return true
	}
	return false
}
