package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// VaultService defines the vault views the handler requires.
type VaultService interface {
	VaultOf(ctx context.Context, holder string) (domain.Vault, error)
}

// VaultHandler serves per-holder vault inspection.
type VaultHandler struct {
	vaults VaultService
	logger *slog.Logger
}

// NewVaultHandler creates a VaultHandler with the given service and logger.
func NewVaultHandler(vaults VaultService, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vaults: vaults,
		logger: logger,
	}
}

// Get returns the holder's vault record, provisioning one if none exists.
// GET /api/vaults/{holder}
func (h *VaultHandler) Get(w http.ResponseWriter, r *http.Request) {
	holder := pathParam(r, "holder")
	if holder == "" {
		writeError(w, http.StatusBadRequest, "missing holder")
		return
	}

	v, err := h.vaults.VaultOf(r.Context(), holder)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: vault lookup failed",
			slog.String("holder", holder),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         v.ID,
		"holder":     v.Holder,
		"balance":    bigString(v.Balance),
		"created_at": v.CreatedAt,
	})
}
