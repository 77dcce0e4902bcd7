package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/save-dai/savedai-contract-v1/internal/notify"
	"github.com/save-dai/savedai-contract-v1/internal/server"
	"github.com/save-dai/savedai-contract-v1/internal/server/handler"
	"github.com/save-dai/savedai-contract-v1/internal/server/ws"
)

// quoteRefreshInterval matches the quote cache TTL so a cached entry is
// always at most one refresh stale.
const quoteRefreshInterval = 30 * time.Second

// quoteReferenceAmount is the notional the quote refresher prices: one whole
// wrapped unit at 8 decimals.
var quoteReferenceAmount = big.NewInt(100_000_000)

// ServeMode runs the full daemon: HTTP API, websocket hub, notification
// watcher, quote refresher, and the periodic audit archiver when enabled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if deps.Subscriber != nil {
		hub = ws.NewHub(deps.Subscriber, a.logger, ws.Config{
			TokenName: deps.Ledger.Name(),
		})
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && err != context.Canceled {
				return fmt.Errorf("app: ws hub: %w", err)
			}
			return nil
		})

		watcher := notify.NewWatcher(deps.Subscriber, deps.Notifier, a.logger)
		g.Go(func() error {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				return fmt.Errorf("app: notify watcher: %w", err)
			}
			return nil
		})
	}

	if deps.QuoteCache != nil {
		g.Go(func() error {
			a.refreshQuotes(ctx, deps)
			return nil
		})
	}

	if deps.Archiver != nil && a.cfg.Archive.Interval.Duration > 0 {
		g.Go(func() error {
			a.archiveLoop(ctx, deps)
			return nil
		})
	}

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, server.Handlers{
			Health: handler.NewHealthHandler(a.logger),
			Token:  handler.NewTokenHandler(deps.Ledger, a.logger),
			Unwind: handler.NewUnwindHandler(deps.Ledger, a.logger),
			Vaults: handler.NewVaultHandler(deps.Ledger, a.logger),
			Quotes: handler.NewQuoteHandler(deps.Ledger, a.logger),
			Admin:  handler.NewAdminHandler(deps.Ledger, deps.AuditStore, a.logger),
		}, hub, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	}

	return g.Wait()
}

// ArchiveMode runs a single archival pass over audit entries older than the
// retention horizon, then exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires archive.enabled")
	}
	return a.archiveOnce(ctx, deps)
}

// QuoteMode runs only the quote refresher: it keeps the premium and exchange
// rate for the reference amount warm in the cache until cancelled.
func (a *App) QuoteMode(ctx context.Context, deps *Dependencies) error {
	if deps.QuoteCache == nil {
		return fmt.Errorf("app: quote mode requires redis")
	}
	a.refreshQuotes(ctx, deps)
	return nil
}

// refreshQuotes periodically re-prices the reference mint and writes the
// result to the quote cache.
func (a *App) refreshQuotes(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(quoteRefreshInterval)
	defer ticker.Stop()

	refresh := func() {
		q, err := deps.Ledger.QuotePosition(ctx, quoteReferenceAmount)
		if err != nil {
			a.logger.WarnContext(ctx, "quote refresh failed",
				slog.String("error", err.Error()),
			)
			return
		}
		if err := deps.QuoteCache.SetPremium(ctx, q.Amount, q.Premium, q.QuotedAt); err != nil {
			a.logger.WarnContext(ctx, "quote cache write failed",
				slog.String("error", err.Error()),
			)
		}
		if err := deps.QuoteCache.SetExchangeRate(ctx, q.ExchangeRate, q.QuotedAt); err != nil {
			a.logger.WarnContext(ctx, "rate cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// archiveLoop drains old audit entries to blob storage on the configured
// interval.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.archiveOnce(ctx, deps); err != nil {
				a.logger.ErrorContext(ctx, "audit archival failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (a *App) archiveOnce(ctx context.Context, deps *Dependencies) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	count, err := deps.Archiver.Run(ctx, cutoff)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "audit archival complete",
		slog.Int64("entries", count),
		slog.Time("cutoff", cutoff),
	)
	return nil
}
