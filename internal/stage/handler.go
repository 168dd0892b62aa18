package stage

import (
	"context"
	"log/slog"

	"clipto/internal/queue"
)

// Handler is one step of a delivery. Prepare sets progress fields before the
// delivery is persisted in its running status; Execute performs the remote
// work and records its jobs. Neither may change item.Status.
type Handler interface {
	Prepare(ctx context.Context, item *queue.Item) error
	Execute(ctx context.Context, item *queue.Item) error
	HealthCheck(ctx context.Context) Health
}

// LoggerAware is implemented by handlers that log into the delivery's own
// log file. SetLogger is called before every Prepare.
type LoggerAware interface {
	SetLogger(logger *slog.Logger)
}

// Settler is implemented by handlers that announce a finished step. Settled
// runs only after the delivery was saved in its done status.
type Settler interface {
	Settled(ctx context.Context, item *queue.Item)
}
