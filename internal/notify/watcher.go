package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// Subscriber is the bus-side capability the watcher needs. The redis signal
// bus satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan []byte, error)
}

// Watcher consumes ledger and admin events from the signal bus and turns
// the operator-relevant ones into notifications: pause toggles, renames,
// and insurance exercises.
type Watcher struct {
	bus      Subscriber
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher bridging the given bus to the notifier.
func NewWatcher(bus Subscriber, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run blocks consuming events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.bus.Subscribe(ctx, domain.ChannelLedger, domain.ChannelAdmin)
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			w.handle(ctx, payload)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, payload []byte) {
	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		w.logger.WarnContext(ctx, "malformed event payload",
			slog.String("error", err.Error()),
		)
		return
	}
	event, _ := envelope["event"].(string)
	if event == "" {
		return
	}

	title, message, ok := render(event, envelope)
	if !ok {
		return
	}
	if err := w.notifier.Notify(ctx, event, title, message); err != nil {
		w.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// render maps an event envelope to a notification; ok is false for events
// operators are not alerted on.
func render(event string, detail map[string]any) (title, message string, ok bool) {
	str := func(key string) string {
		s, _ := detail[key].(string)
		return s
	}
	switch event {
	case domain.EventPaused:
		return "Contract paused", fmt.Sprintf("Paused by %s", str("caller")), true
	case domain.EventUnpaused:
		return "Contract unpaused", fmt.Sprintf("Unpaused by %s", str("caller")), true
	case domain.EventNameChanged:
		return "Token renamed", fmt.Sprintf("%q is now %q", str("old"), str("new")), true
	case domain.EventExercise:
		return "Insurance exercised", fmt.Sprintf("%s exercised %s units, payout %s", str("holder"), str("amount"), str("payout")), true
	default:
		return "", "", false
	}
}
