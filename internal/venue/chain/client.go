// Package chain implements the venue interfaces against live on-chain
// contracts: a Uniswap-style exchange pair for the option leg, a Compound
// cToken market for the interest-bearing leg, and an oToken issuer for
// expiry and exercise. All custody sits at the operator address.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Config holds the RPC endpoint, operator key, and contract addresses the
// adapters bind to.
type Config struct {
	RPCURL        string
	ChainID       int64
	PrivateKeyHex string

	StableToken     string
	InterestToken   string
	OptionToken     string
	RewardToken     string
	ExchangeFactory string
	Comptroller     string
}

// Client wraps the Ethereum RPC connection plus the operator's signing
// identity shared by every adapter.
type Client struct {
	eth      *ethclient.Client
	key      *ecdsa.PrivateKey
	operator common.Address
	chainID  *big.Int
	opts     *bind.TransactOpts
}

// Dial connects to the RPC endpoint and derives the operator identity from
// the configured private key.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.RPCURL)
	if endpoint == "" {
		return nil, fmt.Errorf("chain: rpc endpoint required")
	}

	eth, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", endpoint, err)
	}

	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid operator key: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("chain: transactor: %w", err)
	}

	return &Client{
		eth:      eth,
		key:      key,
		operator: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		opts:     opts,
	}, nil
}

// Operator returns the custody address all adapters transact from.
func (c *Client) Operator() common.Address { return c.operator }

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.operator}
}

func (c *Client) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.opts
	opts.Context = ctx
	return &opts
}

// waitMined blocks until the transaction is included and fails if it
// reverted.
func (c *Client) waitMined(ctx context.Context, tx *gethtypes.Transaction) error {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return fmt.Errorf("chain: wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("chain: transaction %s reverted", tx.Hash().Hex())
	}
	return nil
}

// bindContract parses the ABI once and binds it at addr.
func (c *Client) bindContract(addr common.Address, rawABI string) (*bind.BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}
	return bind.NewBoundContract(addr, parsed, c.eth, c.eth, c.eth), nil
}

// callBig invokes a read-only method returning a single uint256.
func callBig(ctx context.Context, c *Client, contract *bind.BoundContract, method string, args ...any) (*big.Int, error) {
	var out []any
	if err := contract.Call(c.callOpts(ctx), &out, method, args...); err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// callAddress invokes a read-only method returning a single address.
func callAddress(ctx context.Context, c *Client, contract *bind.BoundContract, method string, args ...any) (common.Address, error) {
	var out []any
	if err := contract.Call(c.callOpts(ctx), &out, method, args...); err != nil {
		return common.Address{}, fmt.Errorf("chain: call %s: %w", method, err)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// swapDeadline gives pending swaps a short validity horizon.
func swapDeadline() *big.Int {
	return big.NewInt(time.Now().Add(5 * time.Minute).Unix())
}
