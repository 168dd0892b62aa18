package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
)

// queueRun tracks one busy period of the daemon: from the first delivery
// entering a stage until nothing is left that can advance without the
// creator.
type queueRun struct {
	mu      sync.Mutex
	active  bool
	started time.Time
}

func (r *queueRun) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return false
	}
	r.active, r.started = true, time.Now()
	return true
}

func (r *queueRun) end() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return 0, false
	}
	r.active = false
	return time.Since(r.started), true
}

func (m *Manager) queueStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, ok := m.statsFor(ctx, "start")
	if !ok || !m.run.begin() {
		return
	}
	m.publish(ctx, notifications.EventQueueStarted, notifications.Payload{"count": countActiveItems(stats)})
}

func (m *Manager) queueSettled(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, ok := m.statsFor(ctx, "completion")
	if !ok || countActiveItems(stats) > 0 {
		return
	}
	took, ended := m.run.end()
	if !ended {
		return
	}
	m.publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": stats[queue.StatusDone],
		"failed":    stats[queue.StatusFailed],
		"duration":  took,
	})
}

func (m *Manager) statsFor(ctx context.Context, purpose string) (map[queue.Status]int, bool) {
	stats, err := m.store.Stats(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return nil, false
	case err != nil:
		logging.WarnWithContext(m.logger, "queue stats unavailable; "+purpose+" notification skipped", "queue_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, purpose+" notification will not be sent"),
		)
		return nil, false
	}
	return stats, true
}

// countActiveItems counts deliveries the daemon can still advance on its own.
// One parked in metadata_ready waits for the creator and does not count.
func countActiveItems(stats map[queue.Status]int) int {
	total := 0
	for status, count := range stats {
		switch status {
		case queue.StatusDone, queue.StatusFailed, queue.StatusMetadataReady:
		default:
			total += count
		}
	}
	return total
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
