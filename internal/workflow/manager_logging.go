package workflow

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/services"
)

var titleCaser = cases.Title(language.English)

// stageLogger returns the logger for one stage run. Output goes to the
// delivery's own log file when that file can be opened, and to base otherwise.
func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger, item *queue.Item) *slog.Logger {
	if base == nil {
		base = m.logger
	}
	if item != nil {
		handler, path, err := m.itemLogs.Handler(item)
		if err != nil {
			base.Debug("delivery log unavailable", logging.Error(err))
		} else if handler != nil {
			base.Debug("stage output routed to delivery log", logging.String("log_file", path))
			base = slog.New(handler).With(logging.Int64(logging.FieldItemID, item.ID))
		}
	}
	return logging.WithContext(ctx, base)
}

// stageContext tags ctx with the delivery, stage, lane and run id so every
// log line of the run can be correlated.
func stageContext(ctx context.Context, l *lane, stageName string, item *queue.Item, runID string) context.Context {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithStage(ctx, stageName)
	ctx = services.WithLane(ctx, string(l.kind))
	return services.WithRequestID(ctx, runID)
}

// deriveStageLabel renders a status as a progress stage, e.g. "Metadata Ready".
func deriveStageLabel(status queue.Status) string {
	return titleCaser.String(strings.ReplaceAll(string(status), "_", " "))
}
