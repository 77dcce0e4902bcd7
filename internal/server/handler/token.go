package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// TokenService defines the ledger methods the token handler requires.
// *ledger.Ledger satisfies it.
type TokenService interface {
	Name() string
	Symbol() string
	Decimals() uint8
	Paused() bool
	TotalSupply() *big.Int
	PooledOptionCustody() *big.Int
	BalanceOf(holder string) *big.Int
	Allowance(owner, spender string) *big.Int
	ExpiryState(ctx context.Context) (domain.ExpiryState, error)
	Transfer(ctx context.Context, from, to string, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, owner, to string, amount *big.Int) error
	Approve(ctx context.Context, owner, spender string, amount *big.Int) error
	Mint(ctx context.Context, holder string, amount, maxPremium *big.Int) (domain.MintResult, error)
}

// TokenHandler serves the ERC-20 style token surface plus mint.
type TokenHandler struct {
	token  TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler with the given service and logger.
func NewTokenHandler(token TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		token:  token,
		logger: logger,
	}
}

// Meta returns the token metadata, supply, and current expiry phase.
// GET /api/token
func (h *TokenHandler) Meta(w http.ResponseWriter, r *http.Request) {
	state, err := h.token.ExpiryState(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: expiry state failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read expiry state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":           h.token.Name(),
		"symbol":         h.token.Symbol(),
		"decimals":       h.token.Decimals(),
		"paused":         h.token.Paused(),
		"total_supply":   bigString(h.token.TotalSupply()),
		"pooled_options": bigString(h.token.PooledOptionCustody()),
		"expiry_phase":   string(state.Phase),
		"expiry":         state.Expiry,
		"window_end":     state.WindowEnd,
	})
}

// Balance returns a holder's wrapped-token balance.
// GET /api/token/balance/{holder}
func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	holder := pathParam(r, "holder")
	if holder == "" {
		writeError(w, http.StatusBadRequest, "missing holder")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder":  holder,
		"balance": bigString(h.token.BalanceOf(holder)),
	})
}

// Allowance returns the remaining allowance for an (owner, spender) pair.
// GET /api/token/allowance?owner=0x...&spender=0x...
func (h *TokenHandler) Allowance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, spender := q.Get("owner"), q.Get("spender")
	if owner == "" || spender == "" {
		writeError(w, http.StatusBadRequest, "owner and spender query parameters required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"owner":     owner,
		"spender":   spender,
		"allowance": bigString(h.token.Allowance(owner, spender)),
	})
}

type transferRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount"`
}

// Transfer moves wrapped units between holders. With a spender set, the
// transfer draws down the (from, spender) allowance.
// POST /api/token/transfer
func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Spender != "" {
		err = h.token.TransferFrom(r.Context(), req.Spender, req.From, req.To, amount)
	} else {
		err = h.token.Transfer(r.Context(), req.From, req.To, amount)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: transfer rejected",
			slog.String("from", req.From),
			slog.String("to", req.To),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "transferred",
		"from":   req.From,
		"to":     req.To,
		"amount": amount.String(),
	})
}

type approveRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// Approve sets the (owner, spender) allowance, overwriting any prior value.
// POST /api/token/approve
func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Owner == "" || req.Spender == "" {
		writeError(w, http.StatusBadRequest, "owner and spender are required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.token.Approve(r.Context(), req.Owner, req.Spender, amount); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "approved",
		"owner":     req.Owner,
		"spender":   req.Spender,
		"allowance": amount.String(),
	})
}

type mintRequest struct {
	Holder string `json:"holder"`
	Amount string `json:"amount"`
	// MaxPremium caps the stable-asset cost of the option leg; empty means
	// no ceiling.
	MaxPremium string `json:"max_premium,omitempty"`
}

type mintResponse struct {
	Holder        string `json:"holder"`
	Requested     string `json:"requested"`
	Minted        string `json:"minted"`
	PremiumPaid   string `json:"premium_paid"`
	InterestUnits string `json:"interest_units"`
	ExchangeRate  string `json:"exchange_rate"`
}

// Mint exchanges the holder's stable asset for wrapped units: the option leg
// is bought on the market, the rest is deposited into the lending market.
// POST /api/token/mint
func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
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

	var maxPremium *big.Int
	if req.MaxPremium != "" {
		if maxPremium, err = parseAmount(req.MaxPremium); err != nil {
			writeError(w, http.StatusBadRequest, "max_premium: "+err.Error())
			return
		}
	}

	result, err := h.token.Mint(r.Context(), req.Holder, amount, maxPremium)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: mint rejected",
			slog.String("holder", req.Holder),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mintResponse{
		Holder:        result.Holder,
		Requested:     bigString(result.Requested),
		Minted:        bigString(result.Minted),
		PremiumPaid:   bigString(result.PremiumPaid),
		InterestUnits: bigString(result.InterestUnits),
		ExchangeRate:  bigString(result.ExchangeRate),
	})
}
