package workflow

import (
	"context"
	"log/slog"
	"time"

	"clipto/internal/logging"
	"clipto/internal/queue"
)

// heartbeat keeps the last_heartbeat column of running stages fresh and
// returns deliveries whose stage stopped reporting to their stage entry.
type heartbeat struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// keepAlive refreshes the heartbeat of id until the returned stop function is
// called. stop waits for the refresher to exit.
func (h *heartbeat) keepAlive(ctx context.Context, id int64) (stop func()) {
	if h.interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	exited := make(chan struct{})
	logger := logging.WithContext(ctx, h.logger)
	go func() {
		defer close(exited)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := h.store.UpdateHeartbeat(ctx, id); err != nil && ctx.Err() == nil {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}()
	return func() {
		cancel()
		<-exited
	}
}

// reclaim rolls back deliveries whose heartbeat is older than the timeout. The
// store fails a stale mint instead so its transaction is never sent twice.
func (h *heartbeat) reclaim(ctx context.Context) {
	if h.timeout <= 0 {
		return
	}
	n, err := h.store.ReclaimStaleProcessing(ctx, time.Now().Add(-h.timeout))
	switch {
	case err != nil && ctx.Err() == nil:
		logging.WarnWithContext(h.logger, "could not reclaim stale deliveries", "heartbeat_reclaim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "deliveries whose stage died stay in their running status"),
		)
	case n > 0:
		h.logger.Info("reclaimed stale deliveries",
			logging.Int64("count", n),
			logging.String(logging.FieldEventType, "heartbeat_reclaimed"),
		)
	}
}
