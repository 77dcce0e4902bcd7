package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// AdminService defines the owner-gated ledger methods the admin handler
// requires.
type AdminService interface {
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
	UpdateTokenName(ctx context.Context, caller, name string) error
}

// AuditReader lists the append-only audit log.
type AuditReader interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// AdminHandler serves the owner-gated admin surface and the audit log.
type AdminHandler struct {
	admin  AdminService
	audit  AuditReader
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given services and logger.
func NewAdminHandler(admin AdminService, audit AuditReader, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		audit:  audit,
		logger: logger,
	}
}

type adminRequest struct {
	Caller string `json:"caller"`
	Name   string `json:"name,omitempty"`
}

// Pause engages the circuit breaker. Owner only.
// POST /api/admin/pause
func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause releases the circuit breaker. Owner only.
// POST /api/admin/unpause
func (h *AdminHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *AdminHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller is required")
		return
	}

	var err error
	if paused {
		err = h.admin.Pause(r.Context(), req.Caller)
	} else {
		err = h.admin.Unpause(r.Context(), req.Caller)
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: pause change rejected",
			slog.String("caller", req.Caller),
			slog.Bool("paused", paused),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	status := "unpaused"
	if paused {
		status = "paused"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// Rename updates the token's display name. Owner only; works while paused.
// POST /api/admin/name
func (h *AdminHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller is required")
		return
	}

	if err := h.admin.UpdateTokenName(r.Context(), req.Caller, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "renamed",
		"name":   req.Name,
	})
}

// Audit lists recent audit-log entries, newest first.
// GET /api/admin/audit?limit=50&offset=0
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: audit list failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}

	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
