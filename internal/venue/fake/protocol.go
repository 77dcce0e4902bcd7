package fake

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// OptionProtocol models the option issuer: a fixed expiry, a bounded
// post-expiry exercise window, and an exercise entry point that settles in
// native asset at a configurable payout per option unit.
type OptionProtocol struct {
	mu sync.Mutex

	expiry time.Time
	window time.Duration

	// payoutRate is native asset per option unit, 1e18-scaled.
	payoutRate *big.Int

	// surrendered accumulates option units consumed by exercise.
	surrendered *big.Int
}

// NewOptionProtocol creates a protocol with the given expiry, exercise
// window, and 1e18-scaled payout rate.
func NewOptionProtocol(expiry time.Time, window time.Duration, payoutRate *big.Int) *OptionProtocol {
	return &OptionProtocol{
		expiry:      expiry,
		window:      window,
		payoutRate:  new(big.Int).Set(payoutRate),
		surrendered: new(big.Int),
	}
}

// SetExpiry moves the reported expiry timestamp.
func (p *OptionProtocol) SetExpiry(expiry time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiry = expiry
}

// Surrendered returns the total option units consumed by exercise so far.
func (p *OptionProtocol) Surrendered() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.surrendered)
}

func (p *OptionProtocol) ExpiryTimestamp(_ context.Context) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expiry, nil
}

func (p *OptionProtocol) ExerciseWindow(_ context.Context) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window, nil
}

func (p *OptionProtocol) Exercise(_ context.Context, amount *big.Int, _ []string) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.surrendered.Add(p.surrendered, amount)
	payout := new(big.Int).Mul(amount, p.payoutRate)
	return payout.Div(payout, rateScale), nil
}

var _ domain.OptionProtocol = (*OptionProtocol)(nil)
