package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Bank moves the external ERC-20 assets between holders and the operator's
// custody, plus native-asset settlement relays.
type Bank struct {
	client   *Client
	stable   *bind.BoundContract
	interest *bind.BoundContract
	option   *bind.BoundContract
	reward   *bind.BoundContract
}

var _ domain.AssetBank = (*Bank)(nil)

// NewBank binds the asset token contracts.
func NewBank(client *Client, cfg Config) (*Bank, error) {
	stable, err := client.bindContract(common.HexToAddress(cfg.StableToken), erc20ABI)
	if err != nil {
		return nil, err
	}
	interest, err := client.bindContract(common.HexToAddress(cfg.InterestToken), erc20ABI)
	if err != nil {
		return nil, err
	}
	option, err := client.bindContract(common.HexToAddress(cfg.OptionToken), erc20ABI)
	if err != nil {
		return nil, err
	}

	var reward *bind.BoundContract
	if cfg.RewardToken != "" {
		if reward, err = client.bindContract(common.HexToAddress(cfg.RewardToken), erc20ABI); err != nil {
			return nil, err
		}
	}

	return &Bank{
		client:   client,
		stable:   stable,
		interest: interest,
		option:   option,
		reward:   reward,
	}, nil
}

// PullStable draws amount stable asset from the holder into custody. Balance
// and approval are checked first so a short holder fails before any other
// external call moves assets.
func (b *Bank) PullStable(ctx context.Context, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	holder := common.HexToAddress(from)

	balance, err := callBig(ctx, b.client, b.stable, "balanceOf", holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s has %s, needs %s",
			domain.ErrInsufficientBalance, from, balance, amount)
	}

	allowance, err := callBig(ctx, b.client, b.stable, "allowance", holder, b.client.Operator())
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s approved %s, needs %s",
			domain.ErrInsufficientApproval, from, allowance, amount)
	}

	tx, err := b.stable.Transact(b.client.transactOpts(ctx), "transferFrom",
		holder, b.client.Operator(), amount)
	if err != nil {
		return fmt.Errorf("chain: pull stable: %w", err)
	}
	return b.client.waitMined(ctx, tx)
}

// PayStable transfers stable asset from custody to the holder.
func (b *Bank) PayStable(ctx context.Context, to string, amount *big.Int) error {
	return b.payERC20(ctx, b.stable, "stable", to, amount)
}

// PayInterestBearing transfers interest-bearing units from custody.
func (b *Bank) PayInterestBearing(ctx context.Context, to string, amount *big.Int) error {
	return b.payERC20(ctx, b.interest, "interest-bearing", to, amount)
}

// PayOption transfers option units from custody.
func (b *Bank) PayOption(ctx context.Context, to string, amount *big.Int) error {
	return b.payERC20(ctx, b.option, "option", to, amount)
}

// PayReward transfers reward asset from custody.
func (b *Bank) PayReward(ctx context.Context, to string, amount *big.Int) error {
	if b.reward == nil {
		return fmt.Errorf("chain: reward token not configured")
	}
	return b.payERC20(ctx, b.reward, "reward", to, amount)
}

// PayNative relays an exercise settlement payout in the chain's native
// asset.
func (b *Bank) PayNative(ctx context.Context, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}

	nonce, err := b.client.eth.PendingNonceAt(ctx, b.client.Operator())
	if err != nil {
		return fmt.Errorf("chain: nonce: %w", err)
	}
	gasPrice, err := b.client.eth.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("chain: gas price: %w", err)
	}

	dest := common.HexToAddress(to)
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &dest,
		Value:    new(big.Int).Set(amount),
		Gas:      21_000,
		GasPrice: gasPrice,
	})

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(b.client.chainID), b.client.key)
	if err != nil {
		return fmt.Errorf("chain: sign native transfer: %w", err)
	}
	if err := b.client.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("chain: send native transfer: %w", err)
	}
	return b.client.waitMined(ctx, signed)
}

func (b *Bank) payERC20(ctx context.Context, token *bind.BoundContract, label, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	tx, err := token.Transact(b.client.transactOpts(ctx), "transfer", common.HexToAddress(to), amount)
	if err != nil {
		return fmt.Errorf("chain: pay %s: %w", label, err)
	}
	return b.client.waitMined(ctx, tx)
}
