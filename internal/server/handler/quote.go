package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// QuoteService defines the pricing views the quote handler requires.
type QuoteService interface {
	GetCostOfOToken(ctx context.Context, amount *big.Int) (*big.Int, error)
	QuotePosition(ctx context.Context, amount *big.Int) (domain.PositionQuote, error)
}

// QuoteHandler serves ephemeral mint-cost quotes. Quotes reflect venue state
// at call time and carry no execution guarantee.
type QuoteHandler struct {
	quotes QuoteService
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler with the given service and logger.
func NewQuoteHandler(quotes QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logger,
	}
}

// Quote prices a prospective mint of the given amount: the option premium,
// the interest-bearing leg cost, and the all-in total.
// GET /api/quote?amount=100
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.quotes.QuotePosition(r.Context(), amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: quote failed",
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"amount":        bigString(q.Amount),
		"premium":       bigString(q.Premium),
		"interest_cost": bigString(q.InterestCost),
		"all_in":        bigString(q.AllIn()),
		"exchange_rate": bigString(q.ExchangeRate),
		"quoted_at":     q.QuotedAt,
	})
}

// Premium prices the option leg alone.
// GET /api/quote/premium?amount=100
func (h *QuoteHandler) Premium(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	premium, err := h.quotes.GetCostOfOToken(r.Context(), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"amount":  amount.String(),
		"premium": bigString(premium),
	})
}
