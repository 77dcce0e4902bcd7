package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/ledger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeToken implements TokenService with canned values and call recording.
type fakeToken struct {
	paused      bool
	balances    map[string]*big.Int
	transferErr error
	mintResult  domain.MintResult
	mintErr     error
}

func (f *fakeToken) Name() string         { return "saveDAI" }
func (f *fakeToken) Symbol() string       { return "SVDAI" }
func (f *fakeToken) Decimals() uint8      { return 8 }
func (f *fakeToken) Paused() bool         { return f.paused }
func (f *fakeToken) TotalSupply() *big.Int { return big.NewInt(1000) }
func (f *fakeToken) PooledOptionCustody() *big.Int { return big.NewInt(1000) }

func (f *fakeToken) BalanceOf(holder string) *big.Int {
	if b, ok := f.balances[holder]; ok {
		return b
	}
	return new(big.Int)
}

func (f *fakeToken) Allowance(owner, spender string) *big.Int { return big.NewInt(7) }

func (f *fakeToken) ExpiryState(ctx context.Context) (domain.ExpiryState, error) {
	now := time.Now().UTC()
	return domain.DeriveExpiryState(now, now.Add(24*time.Hour), time.Hour), nil
}

func (f *fakeToken) Transfer(ctx context.Context, from, to string, amount *big.Int) error {
	return f.transferErr
}

func (f *fakeToken) TransferFrom(ctx context.Context, spender, owner, to string, amount *big.Int) error {
	return f.transferErr
}

func (f *fakeToken) Approve(ctx context.Context, owner, spender string, amount *big.Int) error {
	return nil
}

func (f *fakeToken) Mint(ctx context.Context, holder string, amount, maxPremium *big.Int) (domain.MintResult, error) {
	return f.mintResult, f.mintErr
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTokenMeta(t *testing.T) {
	h := NewTokenHandler(&fakeToken{}, discardLogger())

	rec := httptest.NewRecorder()
	h.Meta(rec, httptest.NewRequest(http.MethodGet, "/api/token", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "saveDAI", body["name"])
	require.Equal(t, "1000", body["total_supply"])
	require.Equal(t, string(domain.PhaseActive), body["expiry_phase"])
}

func TestTokenBalance(t *testing.T) {
	h := NewTokenHandler(&fakeToken{
		balances: map[string]*big.Int{"0xalice": big.NewInt(42)},
	}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/token/balance/0xalice", nil)
	req.SetPathValue("holder", "0xalice")
	rec := httptest.NewRecorder()
	h.Balance(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "42", decode(t, rec)["balance"])
}

func TestTransferMapsDomainErrors(t *testing.T) {
	h := NewTokenHandler(&fakeToken{transferErr: domain.ErrInsufficientBalance}, discardLogger())

	body := `{"from":"0xalice","to":"0xbob","amount":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Transfer(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, decode(t, rec)["error"], "insufficient balance")
}

func TestTransferRejectsBadAmount(t *testing.T) {
	h := NewTokenHandler(&fakeToken{}, discardLogger())

	body := `{"from":"0xalice","to":"0xbob","amount":"ten"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Transfer(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMintReturnsRealizedLegs(t *testing.T) {
	h := NewTokenHandler(&fakeToken{
		mintResult: domain.MintResult{
			Holder:        "0xalice",
			Requested:     big.NewInt(100),
			Minted:        big.NewInt(100),
			PremiumPaid:   big.NewInt(3),
			InterestUnits: big.NewInt(100),
			ExchangeRate:  big.NewInt(1),
		},
	}, discardLogger())

	body := `{"holder":"0xalice","amount":"100","max_premium":"5"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/mint", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Mint(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, "100", resp["minted"])
	require.Equal(t, "3", resp["premium_paid"])
}

func TestMintSlippageIsConflict(t *testing.T) {
	h := NewTokenHandler(&fakeToken{mintErr: domain.ErrSlippageExceeded}, discardLogger())

	body := `{"holder":"0xalice","amount":"100","max_premium":"1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/mint", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Mint(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

// fakeUnwind implements UnwindService.
type fakeUnwind struct {
	withdrawResult ledger.WithdrawResult
	err            error
}

func (f *fakeUnwind) Redeem(ctx context.Context, holder string, amount *big.Int) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(amount), nil
}

func (f *fakeUnwind) Withdraw(ctx context.Context, holder string, amount *big.Int, variant domain.WithdrawVariant) (ledger.WithdrawResult, error) {
	return f.withdrawResult, f.err
}

func (f *fakeUnwind) ExerciseInsurance(ctx context.Context, holder string, amount *big.Int, counterpartyVaults []string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(amount), nil
}

func (f *fakeUnwind) HarvestRewards(ctx context.Context, holder string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return big.NewInt(5), nil
}

func TestRedeem(t *testing.T) {
	h := NewUnwindHandler(&fakeUnwind{}, discardLogger())

	body := `{"holder":"0xalice","amount":"40"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/redeem", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Redeem(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "40", decode(t, rec)["stable"])
}

func TestWithdrawRejectsUnknownVariant(t *testing.T) {
	h := NewUnwindHandler(&fakeUnwind{}, discardLogger())

	body := `{"holder":"0xalice","amount":"40","variant":"everything"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/withdraw", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExerciseOutsideWindowIsConflict(t *testing.T) {
	h := NewUnwindHandler(&fakeUnwind{err: domain.ErrOutsideExerciseWindow}, discardLogger())

	body := `{"holder":"0xalice","amount":"40"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token/exercise", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Exercise(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHarvest(t *testing.T) {
	h := NewUnwindHandler(&fakeUnwind{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vaults/0xalice/harvest", nil)
	req.SetPathValue("holder", "0xalice")
	rec := httptest.NewRecorder()
	h.Harvest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "5", decode(t, rec)["claimed"])
}

// fakeAdmin implements AdminService and AuditReader.
type fakeAdmin struct {
	err     error
	entries []domain.AuditEntry
}

func (f *fakeAdmin) Pause(ctx context.Context, caller string) error   { return f.err }
func (f *fakeAdmin) Unpause(ctx context.Context, caller string) error { return f.err }
func (f *fakeAdmin) UpdateTokenName(ctx context.Context, caller, name string) error {
	return f.err
}
func (f *fakeAdmin) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return f.entries, f.err
}

func TestPauseOwnerGateIsForbidden(t *testing.T) {
	fake := &fakeAdmin{err: domain.ErrNotOwner}
	h := NewAdminHandler(fake, fake, discardLogger())

	body := `{"caller":"0xalice"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/pause", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Pause(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRenameBlankNameIsBadRequest(t *testing.T) {
	fake := &fakeAdmin{err: domain.ErrEmptyName}
	h := NewAdminHandler(fake, fake, discardLogger())

	body := `{"caller":"0xop","name":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/name", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Rename(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditListEmptyIsArray(t *testing.T) {
	fake := &fakeAdmin{}
	h := NewAdminHandler(fake, fake, discardLogger())

	rec := httptest.NewRecorder()
	h.Audit(rec, httptest.NewRequest(http.MethodGet, "/api/admin/audit", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

// fakeQuotes implements QuoteService.
type fakeQuotes struct {
	err error
}

func (f *fakeQuotes) GetCostOfOToken(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return big.NewInt(3), nil
}

func (f *fakeQuotes) QuotePosition(ctx context.Context, amount *big.Int) (domain.PositionQuote, error) {
	if f.err != nil {
		return domain.PositionQuote{}, f.err
	}
	return domain.PositionQuote{
		Amount:       amount,
		Premium:      big.NewInt(3),
		InterestCost: big.NewInt(100),
		ExchangeRate: big.NewInt(1),
		QuotedAt:     time.Now().UTC(),
	}, nil
}

func TestQuoteComposesAllIn(t *testing.T) {
	h := NewQuoteHandler(&fakeQuotes{}, discardLogger())

	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodGet, "/api/quote?amount=100", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "103", decode(t, rec)["all_in"])
}

func TestQuoteRequiresAmount(t *testing.T) {
	h := NewQuoteHandler(&fakeQuotes{}, discardLogger())

	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteStaleIsConflict(t *testing.T) {
	h := NewQuoteHandler(&fakeQuotes{err: domain.ErrQuoteStale}, discardLogger())

	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodGet, "/api/quote?amount=100", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
}
