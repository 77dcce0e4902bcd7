package domain

import (
	"math/big"
	"time"
)

// TokenMeta is the global metadata row for the wrapped-position token.
// Name is the only mutable field; Decimals matches the interest-bearing
// asset so one wrapped unit always corresponds to one vault-held unit.
type TokenMeta struct {
	Name      string
	Symbol    string
	Decimals  uint8
	Owner     string
	Paused    bool
	UpdatedAt time.Time
}

// Balance is a single holder row of the wrapped-token ledger.
type Balance struct {
	Holder string
	Amount *big.Int
}

// Allowance is a single (owner, spender) approval row.
type Allowance struct {
	Owner   string
	Spender string
	Amount  *big.Int
}

// PositionQuote is the ephemeral all-in cost of minting Amount wrapped
// units at current venue state. It is computed per call and never persisted.
type PositionQuote struct {
	Amount *big.Int
	// Premium is the stable-asset cost of Amount option units.
	Premium *big.Int
	// InterestCost is the stable-asset cost of the interest-bearing leg
	// at the current exchange rate.
	InterestCost *big.Int
	// ExchangeRate is the lending market rate the quote was computed with.
	ExchangeRate *big.Int
	QuotedAt     time.Time
}

// AllIn returns Premium + InterestCost.
func (q PositionQuote) AllIn() *big.Int {
	return new(big.Int).Add(q.Premium, q.InterestCost)
}

// MintResult reports the realized legs of a completed mint.
type MintResult struct {
	Holder string
	// Requested is the nominal amount the caller asked for.
	Requested *big.Int
	// Minted is min(option units acquired, interest-bearing units realized).
	Minted *big.Int
	// PremiumPaid is the realized stable-asset cost of the option leg.
	PremiumPaid *big.Int
	// InterestUnits is the realized interest-bearing delta deposited into
	// the holder's vault.
	InterestUnits *big.Int
	// ExchangeRate is the realized lending-market rate at execution.
	ExchangeRate *big.Int
}
