package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Protocol adapts the oToken issuer contract: expiry reporting and the
// exercise entry point. Exercise settles in the chain's native asset, so the
// payout is measured as the custody address's native balance delta.
type Protocol struct {
	client *Client
	oToken *bind.BoundContract
}

var _ domain.OptionProtocol = (*Protocol)(nil)

// NewProtocol binds the oToken issuer contract.
func NewProtocol(client *Client, cfg Config) (*Protocol, error) {
	oToken, err := client.bindContract(common.HexToAddress(cfg.OptionToken), oTokenABI)
	if err != nil {
		return nil, err
	}
	return &Protocol{client: client, oToken: oToken}, nil
}

// ExpiryTimestamp reads the option series' expiry from the issuer.
func (p *Protocol) ExpiryTimestamp(ctx context.Context) (time.Time, error) {
	ts, err := callBig(ctx, p.client, p.oToken, "expiry")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts.Int64(), 0).UTC(), nil
}

// ExerciseWindow reads the post-expiry exercise window length.
func (p *Protocol) ExerciseWindow(ctx context.Context) (time.Duration, error) {
	secs, err := callBig(ctx, p.client, p.oToken, "windowSize")
	if err != nil {
		return 0, err
	}
	return time.Duration(secs.Int64()) * time.Second, nil
}

// Exercise surrenders amount option units against the supplied counterparty
// vaults and returns the realized native-asset payout.
func (p *Protocol) Exercise(ctx context.Context, amount *big.Int, counterpartyVaults []string) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	vaults := make([]common.Address, len(counterpartyVaults))
	for i, v := range counterpartyVaults {
		vaults[i] = common.HexToAddress(v)
	}

	before, err := p.client.eth.BalanceAt(ctx, p.client.Operator(), nil)
	if err != nil {
		return nil, fmt.Errorf("chain: native balance: %w", err)
	}

	tx, err := p.oToken.Transact(p.client.transactOpts(ctx), "exercise", amount, vaults)
	if err != nil {
		return nil, fmt.Errorf("chain: exercise: %w", err)
	}
	if err := p.client.waitMined(ctx, tx); err != nil {
		return nil, err
	}

	after, err := p.client.eth.BalanceAt(ctx, p.client.Operator(), nil)
	if err != nil {
		return nil, fmt.Errorf("chain: native balance: %w", err)
	}

	// Gas spend also moves the native balance; a settlement larger than the
	// gas cost still nets positive. Clamp at zero for safety.
	payout := new(big.Int).Sub(after, before)
	if payout.Sign() < 0 {
		payout.SetInt64(0)
	}
	return payout, nil
}
