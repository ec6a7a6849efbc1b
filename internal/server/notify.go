package server

import (
	"context"
	"log/slog"

	"github.com/vmunix/reelarr/internal/events"
)

// Subscriber hands out event subscriptions. *events.Bus implements it.
type Subscriber interface {
	Subscribe(bufferSize int) <-chan events.Event
	Unsubscribe(ch <-chan events.Event)
}

const notifyBuffer = 64

// Notifier reports finished downloads and scrape runs as they are published.
type Notifier struct {
	bus    Subscriber
	logger *slog.Logger
}

// NewNotifier creates a notifier reading from bus.
func NewNotifier(bus Subscriber, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{bus: bus, logger: logger.With("component", "notify")}
}

// Run consumes events until ctx is cancelled or the bus closes.
func (n *Notifier) Run(ctx context.Context) error {
	ch := n.bus.Subscribe(notifyBuffer)
	defer n.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			n.notify(e)
		}
	}
}

func (n *Notifier) notify(e events.Event) {
	msg := events.Describe(e)
	switch e := e.(type) {
	case *events.DownloadCompleted:
		n.logger.Info("movie ready", "code", e.Code, "detail", msg)
	case *events.ScrapeFinished:
		if !e.Success {
			n.logger.Warn("scrape finished with failures", "scrape_id", e.ScrapeID, "failures", len(e.Failures), "detail", msg)
			return
		}
		n.logger.Info("scrape finished", "scrape_id", e.ScrapeID, "detail", msg)
	default:
		n.logger.Debug("event", "type", e.EventType(), "detail", msg)
	}
}
