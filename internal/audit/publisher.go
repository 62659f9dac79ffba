package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is the audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByGSTIN(ctx context.Context, gstin string) ([]Event, error)
}

// Publisher hands events to the worker without blocking the request path.
// A full inbox drops the event with a log line; audit is best effort by
// contract.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"gstin", event.GSTIN,
		)
	}
}
