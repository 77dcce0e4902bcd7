package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/ledger"
)

// UnwindService defines the exit-path ledger methods the unwind handler
// requires.
type UnwindService interface {
	Redeem(ctx context.Context, holder string, amount *big.Int) (*big.Int, error)
	Withdraw(ctx context.Context, holder string, amount *big.Int, variant domain.WithdrawVariant) (ledger.WithdrawResult, error)
	ExerciseInsurance(ctx context.Context, holder string, amount *big.Int, counterpartyVaults []string) (*big.Int, error)
	HarvestRewards(ctx context.Context, holder string) (*big.Int, error)
}

// UnwindHandler serves the redeem, withdraw, exercise, and harvest endpoints.
type UnwindHandler struct {
	unwind UnwindService
	logger *slog.Logger
}

// NewUnwindHandler creates an UnwindHandler with the given service and logger.
func NewUnwindHandler(unwind UnwindService, logger *slog.Logger) *UnwindHandler {
	return &UnwindHandler{
		unwind: unwind,
		logger: logger,
	}
}

type burnRequest struct {
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

// Redeem burns wrapped units for the interest-bearing proceeds alone. The
// option leg stays in pooled custody; insurance on the amount is forfeited.
// POST /api/token/redeem
func (h *UnwindHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := h.decodeBurn(w, r)
	if !ok {
		return
	}

	paid, err := h.unwind.Redeem(r.Context(), req.Holder, amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: redeem rejected",
			slog.String("holder", req.Holder),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder": req.Holder,
		"burned": amount.String(),
		"stable": bigString(paid),
	})
}

type withdrawRequest struct {
	Holder  string `json:"holder"`
	Amount  string `json:"amount"`
	Variant string `json:"variant"`
}

// Withdraw burns wrapped units and releases the matching pooled options,
// paying out per the requested variant: "asset", "asset_otokens", or
// "underlying".
// POST /api/token/withdraw
func (h *UnwindHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	variant := domain.WithdrawVariant(req.Variant)
	if !variant.Valid() {
		writeError(w, http.StatusBadRequest, "variant must be one of asset, asset_otokens, underlying")
		return
	}

	result, err := h.unwind.Withdraw(r.Context(), req.Holder, amount, variant)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: withdraw rejected",
			slog.String("holder", req.Holder),
			slog.String("variant", string(variant)),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder":           result.Holder,
		"burned":           bigString(result.Burned),
		"variant":          string(result.Variant),
		"interest_bearing": bigString(result.InterestBearing),
		"option_units":     bigString(result.OptionUnits),
		"stable":           bigString(result.Stable),
	})
}

type exerciseRequest struct {
	Holder string `json:"holder"`
	Amount string `json:"amount"`
	// CounterpartyVaults names the vault owners whose custody backs the
	// exercised units.
	CounterpartyVaults []string `json:"counterparty_vaults,omitempty"`
}

// Exercise claims the insurance payout for wrapped units during the
// exercise window.
// POST /api/token/exercise
func (h *UnwindHandler) Exercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payout, err := h.unwind.ExerciseInsurance(r.Context(), req.Holder, amount, req.CounterpartyVaults)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: exercise rejected",
			slog.String("holder", req.Holder),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder": req.Holder,
		"burned": amount.String(),
		"payout": bigString(payout),
	})
}

// Harvest claims accrued lending-market rewards for the holder's vault.
// POST /api/vaults/{holder}/harvest
func (h *UnwindHandler) Harvest(w http.ResponseWriter, r *http.Request) {
	holder := pathParam(r, "holder")
	if holder == "" {
		writeError(w, http.StatusBadRequest, "missing holder")
		return
	}

	claimed, err := h.unwind.HarvestRewards(r.Context(), holder)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder":  holder,
		"claimed": bigString(claimed),
	})
}

func (h *UnwindHandler) decodeBurn(w http.ResponseWriter, r *http.Request) (burnRequest, *big.Int, bool) {
	var req burnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, nil, false
	}
	if req.Holder == "" {
		writeError(w, http.StatusBadRequest, "holder is required")
		return req, nil, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, nil, false
	}
	return req, amount, true
}
