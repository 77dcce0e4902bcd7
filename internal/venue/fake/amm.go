// Package fake provides deterministic in-memory implementations of the
// venue capability interfaces. The ledger is exercised against these in
// tests and in dry-run mode; the chain package carries the live
// network-bound counterparts.
package fake

import (
	"context"
	"math/big"
	"sync"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// AMM models the two external constant-product venues used to price the
// option leg: a stable/native pool and a native/option pool. Quotes walk the
// two hops the way the live venue does; swaps mutate reserves so repeated
// acquisitions see worsening prices.
type AMM struct {
	mu sync.Mutex

	// stable/native pool reserves.
	stableReserve *big.Int
	nativeReserve *big.Int

	// native/option pool reserves.
	poolNative    *big.Int
	optionReserve *big.Int

	feeBps int64
}

// NewAMM creates an AMM with the given initial reserves and a 30 bps swap fee.
func NewAMM(stableReserve, nativeReserve, poolNative, optionReserve *big.Int) *AMM {
	return &AMM{
		stableReserve: new(big.Int).Set(stableReserve),
		nativeReserve: new(big.Int).Set(nativeReserve),
		poolNative:    new(big.Int).Set(poolNative),
		optionReserve: new(big.Int).Set(optionReserve),
		feeBps:        30,
	}
}

// inputForOutput returns the input required to draw out units from a
// constant-product pool with the given reserves, fee included.
func (a *AMM) inputForOutput(inReserve, outReserve, out *big.Int) (*big.Int, bool) {
	if out.Cmp(outReserve) >= 0 {
		return nil, false // pool cannot deliver the requested output
	}
	// in = inReserve*out*10000 / ((outReserve-out)*(10000-fee)) + 1
	num := new(big.Int).Mul(inReserve, out)
	num.Mul(num, big.NewInt(10_000))
	den := new(big.Int).Sub(outReserve, out)
	den.Mul(den, big.NewInt(10_000-a.feeBps))
	in := num.Div(num, den)
	return in.Add(in, big.NewInt(1)), true
}

// outputForInput returns the output delivered for in units of input.
func (a *AMM) outputForInput(inReserve, outReserve, in *big.Int) *big.Int {
	// out = in*(10000-fee)*outReserve / (inReserve*10000 + in*(10000-fee))
	inFee := new(big.Int).Mul(in, big.NewInt(10_000-a.feeBps))
	num := new(big.Int).Mul(inFee, outReserve)
	den := new(big.Int).Mul(inReserve, big.NewInt(10_000))
	den.Add(den, inFee)
	return num.Div(num, den)
}

// quoteLocked computes the stable cost of amount option units. Caller holds mu.
func (a *AMM) quoteLocked(amount *big.Int) (*big.Int, error) {
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	nativeNeeded, ok := a.inputForOutput(a.poolNative, a.optionReserve, amount)
	if !ok {
		return nil, domain.ErrQuoteStale
	}
	stableNeeded, ok := a.inputForOutput(a.stableReserve, a.nativeReserve, nativeNeeded)
	if !ok {
		return nil, domain.ErrQuoteStale
	}
	return stableNeeded, nil
}

// QuoteOptionCost returns the stable-asset cost of amount option units at
// current reserves without moving them.
func (a *AMM) QuoteOptionCost(_ context.Context, amount *big.Int) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quoteLocked(amount)
}

// AcquireOption executes the stable -> native -> option two-hop swap for
// exactly amount option units. The realized cost is checked against
// maxStableSpend before any reserve moves.
func (a *AMM) AcquireOption(_ context.Context, amount, maxStableSpend *big.Int) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	nativeNeeded, ok := a.inputForOutput(a.poolNative, a.optionReserve, amount)
	if !ok {
		return nil, domain.ErrQuoteStale
	}
	stableNeeded, ok := a.inputForOutput(a.stableReserve, a.nativeReserve, nativeNeeded)
	if !ok {
		return nil, domain.ErrQuoteStale
	}
	if maxStableSpend != nil && stableNeeded.Cmp(maxStableSpend) > 0 {
		return nil, domain.ErrSlippageExceeded
	}

	a.stableReserve.Add(a.stableReserve, stableNeeded)
	a.nativeReserve.Sub(a.nativeReserve, nativeNeeded)
	a.poolNative.Add(a.poolNative, nativeNeeded)
	a.optionReserve.Sub(a.optionReserve, amount)

	return stableNeeded, nil
}

// SellOptionLeg swaps amount option units back through the two pools and
// returns the realized stable proceeds.
func (a *AMM) SellOptionLeg(_ context.Context, amount *big.Int) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	nativeOut := a.outputForInput(a.optionReserve, a.poolNative, amount)
	stableOut := a.outputForInput(a.nativeReserve, a.stableReserve, nativeOut)

	a.optionReserve.Add(a.optionReserve, amount)
	a.poolNative.Sub(a.poolNative, nativeOut)
	a.nativeReserve.Add(a.nativeReserve, nativeOut)
	a.stableReserve.Sub(a.stableReserve, stableOut)

	return stableOut, nil
}

var _ domain.OptionVenue = (*AMM)(nil)
