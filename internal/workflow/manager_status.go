package workflow

import (
	"context"

	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/stage"
)

// StatusSummary is the manager's view for `clipto status`.
type StatusSummary struct {
	Running     bool
	Lanes       []queue.ProcessingLane
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status reports lanes, queue counts and the health of every stage handler.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.last != nil {
		copied := *m.last
		summary.LastItem = &copied
	}
	var specs []stageSpec
	for _, l := range m.lanes {
		summary.Lanes = append(summary.Lanes, l.kind)
		specs = append(specs, l.stages...)
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "queue stats unavailable; status incomplete", "queue_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	summary.QueueStats = stats

	summary.StageHealth = make(map[string]stage.Health, len(specs))
	for _, spec := range specs {
		summary.StageHealth[spec.name] = spec.handler.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// remember keeps a copy of the last delivery a lane touched.
func (m *Manager) remember(item *queue.Item) {
	var copied *queue.Item
	if item != nil {
		snapshot := *item
		copied = &snapshot
	}
	m.mu.Lock()
	m.last = copied
	m.mu.Unlock()
}
