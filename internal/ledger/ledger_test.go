package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/store/memory"
	"github.com/save-dai/savedai-contract-v1/internal/vault"
	"github.com/save-dai/savedai-contract-v1/internal/venue/fake"
)

const (
	operator = "0xop"
	alice    = "0xalice"
	bob      = "0xbob"
)

var baseTime = time.Unix(1_700_000_000, 0).UTC()

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	ledger   *Ledger
	amm      *fake.AMM
	lending  *fake.LendingMarket
	protocol *fake.OptionProtocol
	bank     *fake.Bank
	registry *vault.Registry
	bus      *memory.SignalBus
	clock    *testClock
}

// newFixture wires a ledger against deterministic fakes: deep AMM pools so
// quotes stay near-linear, a 1:1 lending rate so the interest leg costs
// exactly its nominal amount, expiry 30 days out with a 14 day window.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test swap individual dependencies, for example a
// balance store armed to fail, before the ledger is built.
func newFixtureWith(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{t: baseTime}

	deep := new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
	amm := fake.NewAMM(deep, deep, deep, deep)

	rate := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) // 1:1
	lending := fake.NewLendingMarket(rate)

	protocol := fake.NewOptionProtocol(
		baseTime.Add(30*24*time.Hour),
		14*24*time.Hour,
		new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), // 1:1 payout
	)

	bank := fake.NewBank()
	registry := vault.NewRegistry(memory.NewVaultStore(), logger)
	bus := memory.NewSignalBus()

	metaStore := memory.NewTokenMetaStore(domain.TokenMeta{
		Name:     "saveDAI",
		Symbol:   "SVDAI",
		Decimals: 8,
		Owner:    operator,
	})

	deps := Deps{
		Registry:   registry,
		Option:     amm,
		Lending:    lending,
		Protocol:   protocol,
		Bank:       bank,
		Balances:   memory.NewBalanceStore(),
		Allowances: memory.NewAllowanceStore(),
		Meta:       metaStore,
		Audit:      memory.NewAuditStore(),
		Bus:        bus,
		Logger:     logger,
		Now:        clock.Now,
	}
	if mutate != nil {
		mutate(&deps)
	}
	l := New(deps)
	require.NoError(t, l.Load(context.Background()))

	return &fixture{
		ledger:   l,
		amm:      amm,
		lending:  lending,
		protocol: protocol,
		bank:     bank,
		registry: registry,
		bus:      bus,
		clock:    clock,
	}
}

// failingBalanceStore rejects writes for one holder, standing in for a
// backend outage mid-operation.
type failingBalanceStore struct {
	domain.BalanceStore
	failFor string
}

func (s *failingBalanceStore) Set(ctx context.Context, holder string, amount *big.Int) error {
	if holder == s.failFor {
		return errors.New("balance backend unavailable")
	}
	return s.BalanceStore.Set(ctx, holder, amount)
}

// fund seeds and approves stable asset for a holder.
func (f *fixture) fund(holder string, amount int64) {
	a := big.NewInt(amount)
	f.bank.SetBalance(fake.AssetStable, holder, a)
	f.bank.Approve(holder, a)
}

// mint is a helper that mints and requires success.
func (f *fixture) mint(t *testing.T, holder string, amount int64) domain.MintResult {
	t.Helper()
	res, err := f.ledger.Mint(context.Background(), holder, big.NewInt(amount), nil)
	require.NoError(t, err)
	return res
}

// requireConservation checks the backing invariants over the given holders:
// totalSupply equals the sum of balances, every balance is non-negative and
// backed at least 1:1 by its vault, and the pooled option custody never
// falls below the total supply.
func requireConservation(t *testing.T, f *fixture, holders ...string) {
	t.Helper()

	sum := new(big.Int)
	for _, h := range holders {
		bal := f.ledger.BalanceOf(h)
		require.GreaterOrEqual(t, bal.Sign(), 0, "balance of %s must not be negative", h)
		require.True(t, f.ledger.VaultBalance(h).Cmp(bal) >= 0,
			"vault of %s must back its wrapped balance", h)
		sum.Add(sum, bal)
	}
	require.Equal(t, 0, f.ledger.TotalSupply().Cmp(sum), "total supply must equal sum of balances")
	require.GreaterOrEqual(t, f.ledger.TotalSupply().Sign(), 0)
	require.True(t, f.ledger.PooledOptionCustody().Cmp(f.ledger.TotalSupply()) >= 0,
		"pooled option custody must cover total supply")
}

func TestLoadSeedsMetadata(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, "saveDAI", f.ledger.Name())
	require.Equal(t, "SVDAI", f.ledger.Symbol())
	require.Equal(t, uint8(8), f.ledger.Decimals())
	require.False(t, f.ledger.Paused())
	require.Equal(t, 0, f.ledger.TotalSupply().Sign())
}

func TestQuotePositionComposesBothLegs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := big.NewInt(100)

	premium, err := f.ledger.GetCostOfOToken(ctx, amount)
	require.NoError(t, err)
	require.Positive(t, premium.Sign())

	quote, err := f.ledger.QuotePosition(ctx, amount)
	require.NoError(t, err)
	require.Equal(t, 0, quote.Premium.Cmp(premium))
	// 1:1 rate: the interest leg costs exactly the nominal amount.
	require.Equal(t, 0, quote.InterestCost.Cmp(amount))
	require.Equal(t, 0, quote.AllIn().Cmp(new(big.Int).Add(premium, amount)))
	require.Equal(t, baseTime, quote.QuotedAt)
}
