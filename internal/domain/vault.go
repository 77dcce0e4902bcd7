package domain

import (
	"math/big"
	"time"
)

// Vault is a per-holder custodial sub-account for the interest-bearing leg.
// Vaults are created lazily on first mint or first inbound transfer, are
// addressed by a stable integer id, and are never destroyed. Only the
// wrapped-position ledger moves funds in or out of a vault; holders never
// touch their vault directly.
type Vault struct {
	ID      uint64
	Holder  string
	Balance *big.Int
	// CreatedAt records first provisioning; the record persists at zero balance.
	CreatedAt time.Time
}

// Clone returns a deep copy so callers cannot alias the registry's big.Ints.
func (v Vault) Clone() Vault {
	c := v
	c.Balance = new(big.Int).Set(v.Balance)
	return c
}
