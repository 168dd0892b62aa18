package delivery

import (
	"context"
	"errors"
	"log/slog"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/poller"
	"clipto/internal/progress"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/upload"
	"clipto/internal/workflow"
)

// Signer signs with the creator's wallet account.
type Signer interface {
	Account() (string, error)
	Sign(ctx context.Context, message string) (account, signature string, err error)
}

// Chain sends contract transactions and tracks their receipts.
type Chain interface {
	Transact(ctx context.Context, account, contract, method string, args ...any) (string, error)
	ReceiptTracker(hash string, opts poller.Options) *poller.Tracker[*chain.Receipt]
}

// Deps are the collaborators shared by the delivery stages.
type Deps struct {
	Config   *config.Config
	Store    *queue.Store
	Backend  *backend.Client
	Uploader *upload.Uploader
	Chain    Chain
	Signer   Signer
	Notifier notifications.Service
	Logger   *slog.Logger

	// Poll bounds the transcode status loop.
	Poll poller.Options
	// ReceiptPoll bounds the wait for a transaction receipt.
	ReceiptPoll poller.Options
}

// Stages builds the four delivery handlers from deps.
func Stages(deps Deps) workflow.StageSet {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Poll.Interval == 0 && deps.Config != nil {
		deps.Poll = poller.FromConfig(deps.Config, deps.Logger)
	}
	if deps.ReceiptPoll.Interval == 0 && deps.Config != nil {
		deps.ReceiptPoll = poller.ForReceipts(deps.Config, deps.Logger)
	}
	return workflow.StageSet{
		Uploader:   NewUploader(deps),
		Transcoder: NewTranscoder(deps),
		Minter:     NewMinter(deps),
		Indexer:    NewIndexer(deps),
	}
}

type base struct {
	deps    Deps
	machine *workflow.Machine
	logger  *slog.Logger
}

func newBase(deps Deps, component string) base {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return base{deps: deps, machine: workflow.NewMachine(), logger: logging.NewComponentLogger(logger, component)}
}

func (b *base) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

func (b *base) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if b.deps.Notifier == nil {
		return
	}
	if err := b.deps.Notifier.Publish(ctx, event, payload); err != nil {
		b.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// reporter persists progress snapshots into item and announces them. It
// resumes from the phase already stored on item.
func (b *base) reporter(item *queue.Item) *progress.Reporter {
	reporter := progress.NewReporter(func(ctx context.Context, snap progress.Snapshot) {
		item.SetProgress(snap.Phase.String(), snap.Message, float64(snap.Percent))
		if err := b.deps.Store.UpdateProgress(ctx, item); err != nil {
			b.logger.Debug("progress update failed", logging.Error(err))
		}
		b.notify(ctx, notifications.EventProgress, notifications.Payload{
			"id":      item.ID,
			"status":  string(item.Status),
			"message": snap.Message,
			"percent": float64(snap.Percent),
		})
	}, b.logger)
	if phase, ok := progress.ParsePhase(item.ProgressStage); ok {
		reporter.Resume(progress.Snapshot{Phase: phase, Percent: progress.Round(item.ProgressPercent), Message: item.ProgressMessage})
	}
	return reporter
}

// trackJob records every observation of a remote job.
func trackJob[T any](ctx context.Context, b *base, job *queue.Job, tracker *poller.Tracker[T]) *poller.Tracker[T] {
	update := func(status queue.JobStatus, detail string) {
		if _, err := b.deps.Store.UpdateJobStatus(ctx, job.ID, status, detail); err != nil {
			b.logger.Warn("job status not persisted",
				logging.Int64("job", job.ID),
				logging.String(logging.FieldJobID, job.RemoteID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_status_persist_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	}
	return tracker.
		OnObserve(func(obs poller.Observation[T]) {
			if !obs.Status.IsTerminal() {
				update(obs.Status, obs.Detail)
			}
		}).
		OnTerminal(func(obs poller.Observation[T], err error) {
			status := obs.Status
			detail := obs.Detail
			if err != nil && status != queue.JobFailed {
				status = queue.JobFailed
				detail = err.Error()
			}
			update(status, detail)
			b.logger.Info("remote job finished",
				logging.String(logging.FieldEventType, "job_terminal"),
				logging.String(logging.FieldJobID, job.RemoteID),
				logging.String("kind", string(job.Kind)),
				logging.String("status", string(status)),
				logging.Int("queries", tracker.Queries()),
			)
		})
}

// pollFailure classifies the error that ended a status loop.
func pollFailure(stageName, operation, message string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, poller.ErrJobFailed):
		return services.Wrap(services.ErrProvider, stageName, operation, message, err)
	case errors.Is(err, services.ErrTimeout):
		return services.Wrap(services.ErrTimeout, stageName, operation, message, err)
	default:
		return services.Wrap(services.ErrTransient, stageName, operation, message, err)
	}
}
