package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) Send(_ context.Context, title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, title+": "+message)
	return nil
}

func (c *captureSender) Name() string { return "capture" }

func (c *captureSender) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

type channelBus struct {
	ch chan []byte
}

func (b *channelBus) Subscribe(context.Context, ...string) (<-chan []byte, error) {
	return b.ch, nil
}

func TestWatcherForwardsAdminEvents(t *testing.T) {
	sender := &captureSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := NewNotifier([]Sender{sender}, []string{domain.EventPaused, domain.EventExercise}, logger)
	bus := &channelBus{ch: make(chan []byte, 4)}

	w := NewWatcher(bus, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	bus.ch <- []byte(`{"event":"paused","caller":"0xop"}`)
	bus.ch <- []byte(`{"event":"mint","holder":"0xalice"}`)     // not alerted
	bus.ch <- []byte(`{"event":"exercise","holder":"0xalice","amount":"100","payout":"100"}`)
	bus.ch <- []byte(`not json`) // ignored

	require.Eventually(t, func() bool {
		return len(sender.all()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	sent := sender.all()
	require.Contains(t, sent[0], "Contract paused")
	require.Contains(t, sent[0], "0xop")
	require.Contains(t, sent[1], "Insurance exercised")
}

func TestWatcherRespectsEventFilter(t *testing.T) {
	sender := &captureSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Only unpaused is allowed; paused must be filtered out.
	notifier := NewNotifier([]Sender{sender}, []string{domain.EventUnpaused}, logger)
	bus := &channelBus{ch: make(chan []byte, 2)}

	w := NewWatcher(bus, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	bus.ch <- []byte(`{"event":"paused","caller":"0xop"}`)
	bus.ch <- []byte(`{"event":"unpaused","caller":"0xop"}`)

	require.Eventually(t, func() bool {
		return len(sender.all()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	require.Contains(t, sender.all()[0], "Contract unpaused")
}

func TestRenderSkipsLedgerNoise(t *testing.T) {
	_, _, ok := render(domain.EventTransfer, map[string]any{"from": "0xalice"})
	require.False(t, ok)

	title, msg, ok := render(domain.EventNameChanged, map[string]any{"old": "saveDAI", "new": "saveDAI v2"})
	require.True(t, ok)
	require.Equal(t, "Token renamed", title)
	require.Contains(t, msg, `"saveDAI v2"`)
}
