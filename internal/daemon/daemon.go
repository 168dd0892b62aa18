package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/workflow"
)

// Daemon owns the single-instance lock and the delivery lanes, and answers
// the queries the IPC service forwards.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	hub      *notifications.Hub
	lock     *flock.Flock

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// Delivery is one workflow with its remote jobs and mint guard.
type Delivery struct {
	Item        *queue.Item
	Jobs        []*queue.Job
	MintEnabled bool
}

// New constructs a daemon. hub may be nil, in which case Events always
// returns nothing.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, hub *notifications.Hub) (*Daemon, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("daemon: config is required")
	case store == nil:
		return nil, errors.New("daemon: queue store is required")
	case wf == nil:
		return nil, errors.New("daemon: workflow manager is required")
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		hub:      hub,
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start takes the instance lock, returns deliveries orphaned by a previous
// run to their stage entry and launches the lanes.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	locked, err := d.lock.TryLock()
	switch {
	case err != nil:
		return fmt.Errorf("acquire lock %s: %w", d.lock.Path(), err)
	case !locked:
		return errors.New("another clipto daemon instance is already running")
	}

	d.recover(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.logger.Info("clipto daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lock.Path()),
	)
	return nil
}

// recover resets deliveries a crashed run left mid-stage. Failure here is
// logged and tolerated so the lanes still pick up fresh work.
func (d *Daemon) recover(ctx context.Context) {
	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "could not reset in-flight deliveries", "stuck_reset_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "deliveries interrupted by a crash stay in their processing state"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return
	}
	if reset > 0 {
		d.logger.Info("reset in-flight deliveries from previous run",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "stuck_reset"),
		)
	}
}

// Stop halts the lanes and releases the instance lock. It is a no-op when
// the daemon is not running.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.cancel = nil
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("clipto daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Close stops the daemon and closes the queue database.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// List returns deliveries filtered by optional statuses.
func (d *Daemon) List(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	return d.store.List(ctx, statuses...)
}

// Describe returns one delivery with its remote jobs.
func (d *Daemon) Describe(ctx context.Context, id int64) (Delivery, error) {
	state, err := d.workflow.MintState(ctx, id)
	if err != nil {
		return Delivery{}, err
	}
	jobs, err := d.store.JobsForWorkflow(ctx, id)
	if err != nil {
		return Delivery{}, fmt.Errorf("load jobs: %w", err)
	}
	return Delivery{Item: state.Item, Jobs: jobs, MintEnabled: state.Enabled}, nil
}

// Submit queues a new delivery.
func (d *Daemon) Submit(ctx context.Context, form workflow.Form) (*queue.Item, error) {
	item, err := d.workflow.Submit(ctx, form)
	if err != nil {
		return nil, err
	}
	d.logger.Info("delivery queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldRequestID, item.RequestID),
		logging.String("source", item.SourcePath),
	)
	return item, nil
}

// RequestMint records the creator's mint confirmation.
func (d *Daemon) RequestMint(ctx context.Context, id int64) (string, error) {
	return d.workflow.RequestMint(ctx, id)
}

// Retry returns a failed delivery to its last stage entry.
func (d *Daemon) Retry(ctx context.Context, id int64) (*queue.Item, error) {
	return d.workflow.Retry(ctx, id)
}

// Remove deletes an idle delivery.
func (d *Daemon) Remove(ctx context.Context, id int64) error {
	return d.workflow.Remove(ctx, id)
}

// RecordShare stores the Lens post of a delivered delivery.
func (d *Daemon) RecordShare(ctx context.Context, id int64, txHash, handle string) (*queue.Item, error) {
	return d.workflow.RecordShare(ctx, id, txHash, handle)
}

// Events returns hub records newer than since, optionally for one delivery.
func (d *Daemon) Events(since, workflowID int64) []notifications.Record {
	if d.hub == nil {
		return nil
	}
	return d.hub.Since(since, workflowID)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lock.Path(),
	}
}
