// Package server exposes the token ledger over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/save-dai/savedai-contract-v1/internal/server/handler"
	"github.com/save-dai/savedai-contract-v1/internal/server/middleware"
	"github.com/save-dai/savedai-contract-v1/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Token  *handler.TokenHandler
	Unwind *handler.UnwindHandler
	Vaults *handler.VaultHandler
	Quotes *handler.QuoteHandler
	Admin  *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the token ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Token views.
	mux.HandleFunc("GET /api/token", handlers.Token.Meta)
	mux.HandleFunc("GET /api/token/balance/{holder}", handlers.Token.Balance)
	mux.HandleFunc("GET /api/token/allowance", handlers.Token.Allowance)

	// Token mutations.
	mux.HandleFunc("POST /api/token/transfer", handlers.Token.Transfer)
	mux.HandleFunc("POST /api/token/approve", handlers.Token.Approve)
	mux.HandleFunc("POST /api/token/mint", handlers.Token.Mint)
	mux.HandleFunc("POST /api/token/redeem", handlers.Unwind.Redeem)
	mux.HandleFunc("POST /api/token/withdraw", handlers.Unwind.Withdraw)
	mux.HandleFunc("POST /api/token/exercise", handlers.Unwind.Exercise)

	// Vault endpoints.
	mux.HandleFunc("GET /api/vaults/{holder}", handlers.Vaults.Get)
	mux.HandleFunc("POST /api/vaults/{holder}/harvest", handlers.Unwind.Harvest)

	// Quote endpoints.
	mux.HandleFunc("GET /api/quote", handlers.Quotes.Quote)
	mux.HandleFunc("GET /api/quote/premium", handlers.Quotes.Premium)

	// Admin endpoints.
	mux.HandleFunc("POST /api/admin/pause", handlers.Admin.Pause)
	mux.HandleFunc("POST /api/admin/unpause", handlers.Admin.Unpause)
	mux.HandleFunc("POST /api/admin/name", handlers.Admin.Rename)
	mux.HandleFunc("GET /api/admin/audit", handlers.Admin.Audit)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
