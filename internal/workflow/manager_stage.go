package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/stage"
)

// processItem runs the stage that item waits for. The entry guard is checked
// against persisted state before the delivery enters the running status, and
// the exit edge is checked again before it leaves.
func (m *Manager) processItem(ctx context.Context, l *lane, item *queue.Item) error {
	spec, ok := l.stageFor(item.Status)
	if !ok {
		l.logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		sleep(ctx, m.idleWait)
		return nil
	}

	ctx = stageContext(ctx, l, spec.name, item, uuid.NewString())
	logger := m.stageLogger(ctx, l.logger, item)
	if aware, ok := spec.handler.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}

	if err := m.checkEntry(ctx, spec, item); err != nil {
		return m.fail(ctx, spec.name, item, err)
	}
	if err := m.enter(ctx, spec.running, item); err != nil {
		logger.Error("could not move delivery into stage", logging.Error(err))
		m.recordError(err)
		return err
	}
	return m.runStage(ctx, logger, spec, item)
}

func (m *Manager) checkEntry(ctx context.Context, spec stageSpec, item *queue.Item) error {
	jobs, err := m.store.JobsForWorkflow(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	return m.machine.Check(item.Status, spec.running, FactsFor(item, jobs))
}

// enter moves item into its running status with a fresh heartbeat and clears
// the error of any earlier attempt.
func (m *Manager) enter(ctx context.Context, running queue.Status, item *queue.Item) error {
	now := time.Now().UTC()
	label := deriveStageLabel(running)
	item.Status = running
	item.ProgressStage = nonEmpty(item.ProgressStage, label)
	item.ProgressMessage = nonEmpty(item.ProgressMessage, label+" started")
	item.ErrorKind, item.ErrorMessage = "", ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.remember(item)
	m.queueStarted(ctx)
	return nil
}

func (m *Manager) runStage(ctx context.Context, logger *slog.Logger, spec stageSpec, item *queue.Item) error {
	began := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(spec.running)),
		logging.String("title", item.Title),
	)

	if err := spec.handler.Prepare(ctx, item); err != nil {
		return m.fail(ctx, spec.name, item, err)
	}
	if err := m.persist(ctx, logger, item, "stage preparation"); err != nil {
		return err
	}

	stop := m.heartbeat.keepAlive(ctx, item.ID)
	err := spec.handler.Execute(ctx, item)
	stop()
	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug("stage interrupted by shutdown")
		return err
	case err != nil:
		return m.fail(ctx, spec.name, item, err)
	}

	if !m.machine.Allowed(spec.running, spec.done) {
		return m.fail(ctx, spec.name, item, fmt.Errorf("stage %s cannot finish in %s", spec.name, spec.done))
	}
	item.Status = spec.done
	item.LastHeartbeat = nil
	if spec.done == queue.StatusDone {
		label := deriveStageLabel(queue.StatusDone)
		item.SetProgressComplete(label, nonEmpty(item.ProgressMessage, label))
	}
	if err := m.persist(ctx, logger, item, "stage result"); err != nil {
		return err
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String("progress_message", item.ProgressMessage),
		logging.Duration("stage_duration", time.Since(began)),
	)
	m.remember(item)
	if settler, ok := spec.handler.(stage.Settler); ok {
		settler.Settled(ctx, item)
	}
	m.queueSettled(ctx)
	return nil
}

func (m *Manager) persist(ctx context.Context, logger *slog.Logger, item *queue.Item, what string) error {
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist %s: %w", what, err)
		logger.Error("could not persist "+what, logging.Error(wrapped))
		m.recordError(wrapped)
		return wrapped
	}
	return nil
}

func nonEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
