package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// AMM executes the option leg against Uniswap V1 exchange pairs. Token to
// token swaps route through the exchange's native reserve, so a quote
// composes two hops: stable -> native on the stable exchange, native ->
// option on the option exchange.
type AMM struct {
	client         *Client
	stableToken    *bind.BoundContract
	stableExchange *bind.BoundContract
	optionExchange *bind.BoundContract
	stableAddr     common.Address
	optionAddr     common.Address
	stableExAddr   common.Address
}

var _ domain.OptionVenue = (*AMM)(nil)

// NewAMM resolves the exchange pair addresses through the factory and binds
// the swap contracts.
func NewAMM(ctx context.Context, client *Client, cfg Config) (*AMM, error) {
	factory, err := client.bindContract(common.HexToAddress(cfg.ExchangeFactory), factoryABI)
	if err != nil {
		return nil, err
	}

	stableAddr := common.HexToAddress(cfg.StableToken)
	optionAddr := common.HexToAddress(cfg.OptionToken)

	stableExAddr, err := callAddress(ctx, client, factory, "getExchange", stableAddr)
	if err != nil {
		return nil, fmt.Errorf("chain: resolve stable exchange: %w", err)
	}
	optionExAddr, err := callAddress(ctx, client, factory, "getExchange", optionAddr)
	if err != nil {
		return nil, fmt.Errorf("chain: resolve option exchange: %w", err)
	}

	stableToken, err := client.bindContract(stableAddr, erc20ABI)
	if err != nil {
		return nil, err
	}
	stableExchange, err := client.bindContract(stableExAddr, exchangeABI)
	if err != nil {
		return nil, err
	}
	optionExchange, err := client.bindContract(optionExAddr, exchangeABI)
	if err != nil {
		return nil, err
	}

	return &AMM{
		client:         client,
		stableToken:    stableToken,
		stableExchange: stableExchange,
		optionExchange: optionExchange,
		stableAddr:     stableAddr,
		optionAddr:     optionAddr,
		stableExAddr:   stableExAddr,
	}, nil
}

// EnsureAllowance grants the stable exchange an unbounded allowance so swap
// transactions do not need a per-call approve. Call once at startup.
func (a *AMM) EnsureAllowance(ctx context.Context) error {
	current, err := callBig(ctx, a.client, a.stableToken, "allowance", a.client.Operator(), a.stableExAddr)
	if err != nil {
		return err
	}
	if current.Sign() > 0 {
		return nil
	}

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tx, err := a.stableToken.Transact(a.client.transactOpts(ctx), "approve", a.stableExAddr, max)
	if err != nil {
		return fmt.Errorf("chain: approve exchange: %w", err)
	}
	return a.client.waitMined(ctx, tx)
}

// QuoteOptionCost prices amount option units in stable asset at current
// reserves.
func (a *AMM) QuoteOptionCost(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	ethNeeded, err := callBig(ctx, a.client, a.optionExchange, "getEthToTokenOutputPrice", amount)
	if err != nil {
		return nil, err
	}
	stableNeeded, err := callBig(ctx, a.client, a.stableExchange, "getTokenToEthOutputPrice", ethNeeded)
	if err != nil {
		return nil, err
	}
	return stableNeeded, nil
}

// AcquireOption swaps stable asset for exactly amount option units and
// returns the realized stable spend, measured as the custody balance delta.
func (a *AMM) AcquireOption(ctx context.Context, amount, maxStableSpend *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	quote, err := a.QuoteOptionCost(ctx, amount)
	if err != nil {
		return nil, err
	}
	if maxStableSpend != nil && quote.Cmp(maxStableSpend) > 0 {
		return nil, fmt.Errorf("%w: quoted %s exceeds ceiling %s",
			domain.ErrSlippageExceeded, quote, maxStableSpend)
	}

	ceiling := maxStableSpend
	if ceiling == nil {
		ceiling = quote
	}

	before, err := callBig(ctx, a.client, a.stableToken, "balanceOf", a.client.Operator())
	if err != nil {
		return nil, err
	}

	maxEth := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tx, err := a.stableExchange.Transact(a.client.transactOpts(ctx), "tokenToTokenSwapOutput",
		amount, ceiling, maxEth, swapDeadline(), a.optionAddr)
	if err != nil {
		return nil, fmt.Errorf("chain: acquire option: %w", err)
	}
	if err := a.client.waitMined(ctx, tx); err != nil {
		return nil, err
	}

	after, err := callBig(ctx, a.client, a.stableToken, "balanceOf", a.client.Operator())
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(before, after), nil
}

// SellOptionLeg swaps amount option units back to stable asset and returns
// the realized proceeds, measured as the custody balance delta.
func (a *AMM) SellOptionLeg(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	before, err := callBig(ctx, a.client, a.stableToken, "balanceOf", a.client.Operator())
	if err != nil {
		return nil, err
	}

	one := big.NewInt(1)
	tx, err := a.optionExchange.Transact(a.client.transactOpts(ctx), "tokenToTokenSwapInput",
		amount, one, one, swapDeadline(), a.stableAddr)
	if err != nil {
		return nil, fmt.Errorf("chain: sell option leg: %w", err)
	}
	if err := a.client.waitMined(ctx, tx); err != nil {
		return nil, err
	}

	after, err := callBig(ctx, a.client, a.stableToken, "balanceOf", a.client.Operator())
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(after, before), nil
}
