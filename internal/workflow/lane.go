package workflow

import (
	"context"
	"errors"
	"log/slog"

	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/stage"
)

// stageSpec ties a handler to the statuses it consumes and produces: a
// delivery waiting in from is moved to running, handed to the handler, then
// moved to done.
type stageSpec struct {
	name    string
	handler stage.Handler
	from    queue.Status
	running queue.Status
	done    queue.Status
}

type lane struct {
	kind     queue.ProcessingLane
	stages   []stageSpec
	waiting  []queue.Status
	reclaims bool
	logger   *slog.Logger
}

func newLane(kind queue.ProcessingLane, specs ...stageSpec) *lane {
	l := &lane{kind: kind}
	for _, spec := range specs {
		if spec.handler == nil {
			continue
		}
		l.stages = append(l.stages, spec)
		l.waiting = append(l.waiting, spec.from)
	}
	return l
}

func (l *lane) stageFor(status queue.Status) (stageSpec, bool) {
	for _, spec := range l.stages {
		if spec.from == status {
			return spec, true
		}
	}
	return stageSpec{}, false
}

// runLane claims the oldest delivery waiting for one of the lane's stages and
// runs that stage, until ctx ends.
func (m *Manager) runLane(ctx context.Context, l *lane) {
	for ctx.Err() == nil {
		if l.reclaims {
			m.heartbeat.reclaim(ctx)
		}

		item, err := m.store.NextForStatuses(ctx, l.waiting...)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			m.recordError(err)
			logging.ErrorWithContext(l.logger, "could not fetch next delivery", "queue_fetch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			if !sleep(ctx, m.errorWait) {
				return
			}
		case item == nil:
			if !sleep(ctx, m.idleWait) {
				return
			}
		default:
			if err := m.processItem(ctx, l, item); errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}
