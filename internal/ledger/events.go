package ledger

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// emit appends an audit row and publishes the event on the signal bus.
// Both are best-effort: the operation has already committed, so failures
// are logged and swallowed rather than unwinding state.
func (l *Ledger) emit(ctx context.Context, channel, event string, detail map[string]any) {
	if auditErr := l.audit.Log(ctx, event, detail); auditErr != nil {
		l.logger.WarnContext(ctx, "ledger: audit log failed",
			slog.String("event", event),
			slog.String("error", auditErr.Error()),
		)
	}

	payload := map[string]any{"event": event, "ts": l.now().Unix()}
	for k, v := range detail {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		l.logger.WarnContext(ctx, "ledger: marshal event failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	if pubErr := l.bus.Publish(ctx, channel, raw); pubErr != nil {
		l.logger.WarnContext(ctx, "ledger: publish event failed",
			slog.String("event", event),
			slog.String("error", pubErr.Error()),
		)
	}
}

func (l *Ledger) emitLedger(ctx context.Context, event string, detail map[string]any) {
	l.emit(ctx, domain.ChannelLedger, event, detail)
}

func (l *Ledger) emitAdmin(ctx context.Context, event string, detail map[string]any) {
	l.emit(ctx, domain.ChannelAdmin, event, detail)
}
