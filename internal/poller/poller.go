package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/services"
)

var (
	// ErrJobFailed is returned when the remote job reported failure.
	ErrJobFailed = errors.New("remote job failed")
	// ErrTimeout is returned when the job did not finish before Options.Timeout.
	ErrTimeout = fmt.Errorf("%w: remote job did not finish in time", services.ErrTimeout)
	// ErrTooManyErrors is returned after Options.MaxErrors consecutive query errors.
	ErrTooManyErrors = fmt.Errorf("%w: too many consecutive status query errors", services.ErrTransient)
)

const (
	defaultInterval   = 5 * time.Second
	defaultMaxErrors  = 5
	defaultMaxBackoff = time.Minute
)

// Options bounds a polling loop.
type Options struct {
	// Interval is the delay between queries while the job makes progress.
	Interval time.Duration
	// MaxErrors is the number of consecutive query errors tolerated.
	MaxErrors int
	// MaxBackoff caps the delay applied after query errors.
	MaxBackoff time.Duration
	// Timeout is the overall deadline for Run. Zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = defaultMaxErrors
	}
	if o.MaxBackoff < o.Interval {
		o.MaxBackoff = defaultMaxBackoff
		if o.MaxBackoff < o.Interval {
			o.MaxBackoff = o.Interval
		}
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// FromConfig builds Options from the poll section of cfg.
func FromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Interval:   cfg.PollInterval(),
		MaxErrors:  cfg.Poll.MaxErrors,
		MaxBackoff: cfg.PollMaxBackoff(),
		Timeout:    cfg.PollTimeout(),
		Logger:     logger,
	}
}

// ForReceipts is FromConfig bounded by the receipt timeout instead.
func ForReceipts(cfg *config.Config, logger *slog.Logger) Options {
	opts := FromConfig(cfg, logger)
	if timeout := cfg.ReceiptTimeout(); timeout > 0 {
		opts.Timeout = timeout
	}
	return opts
}

// Observation is one status payload returned by a query.
type Observation[T any] struct {
	Status queue.JobStatus
	Value  T
	Detail string
}

// QueryFunc issues one status query.
type QueryFunc[T any] func(ctx context.Context) (Observation[T], error)

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks a query error that must end polling immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Tracker polls one remote job.
type Tracker[T any] struct {
	query QueryFunc[T]
	opts  Options

	mu          sync.Mutex
	done        bool
	last        Observation[T]
	err         error
	errorStreak int
	queries     int
	onObserve   func(Observation[T])
	onTerminal  func(Observation[T], error)
}

// New returns a Tracker for query bounded by opts.
func New[T any](query QueryFunc[T], opts Options) *Tracker[T] {
	return &Tracker[T]{query: query, opts: opts.withDefaults()}
}

// OnObserve registers a callback fired for every successful non-terminal query.
func (t *Tracker[T]) OnObserve(fn func(Observation[T])) *Tracker[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onObserve = fn
	return t
}

// OnTerminal registers a callback fired exactly once when the tracker reaches
// a terminal outcome.
func (t *Tracker[T]) OnTerminal(fn func(Observation[T], error)) *Tracker[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTerminal = fn
	return t
}

// Queries reports how many status queries were issued.
func (t *Tracker[T]) Queries() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queries
}

// Done reports whether a terminal outcome was reached.
func (t *Tracker[T]) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Step issues at most one status query. It returns the latest observation and
// whether the outcome is terminal. After a terminal outcome Step returns the
// cached outcome and never queries again.
func (t *Tracker[T]) Step(ctx context.Context) (Observation[T], bool, error) {
	t.mu.Lock()
	if t.done {
		defer t.mu.Unlock()
		return t.last, true, t.err
	}
	t.queries++
	t.mu.Unlock()

	obs, err := t.query(ctx)

	t.mu.Lock()
	if t.done {
		defer t.mu.Unlock()
		return t.last, true, t.err
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			t.mu.Unlock()
			return t.last, false, ctxErr
		}
		var permanent permanentError
		if errors.As(err, &permanent) {
			return t.finishLocked(t.last, permanent.err)
		}
		t.errorStreak++
		if t.errorStreak >= t.opts.MaxErrors {
			return t.finishLocked(t.last, fmt.Errorf("%w: %w", ErrTooManyErrors, err))
		}
		t.mu.Unlock()
		return t.last, false, err
	}

	t.errorStreak = 0
	t.last = obs
	switch obs.Status {
	case queue.JobSucceeded:
		return t.finishLocked(obs, nil)
	case queue.JobFailed:
		return t.finishLocked(obs, fmt.Errorf("%w: %s", ErrJobFailed, obs.Detail))
	}
	observe := t.onObserve
	t.mu.Unlock()
	if observe != nil {
		observe(obs)
	}
	return obs, false, nil
}

// finishLocked records the terminal outcome, releases the lock, and fires the
// terminal callback once.
func (t *Tracker[T]) finishLocked(obs Observation[T], err error) (Observation[T], bool, error) {
	t.done = true
	t.last = obs
	t.err = err
	terminal := t.onTerminal
	t.mu.Unlock()
	if terminal != nil {
		terminal(obs, err)
	}
	return obs, true, err
}

// Run polls until a terminal outcome, the timeout, or cancellation of ctx.
// Cancellation returns the context error and leaves the tracker resumable; a
// timeout is terminal.
func (t *Tracker[T]) Run(ctx context.Context) (Observation[T], error) {
	parent := ctx
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	delay := t.opts.Interval
	for {
		obs, terminal, err := t.Step(ctx)
		if terminal {
			return obs, err
		}
		switch {
		case err == nil:
			delay = t.opts.Interval
		case ctx.Err() != nil:
			return t.interrupted(parent, ctx)
		default:
			delay = t.backoff()
			logging.WarnWithContext(logging.WithContext(ctx, t.opts.Logger), "status query failed; backing off", "poll_backoff",
				logging.Error(err),
				logging.Duration("retry_in", delay),
				logging.String(logging.FieldErrorHint, "check backend connectivity"),
				logging.String(logging.FieldImpact, "job status refresh delayed"),
			)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return t.interrupted(parent, ctx)
		case <-timer.C:
		}
	}
}

func (t *Tracker[T]) interrupted(parent, ctx context.Context) (Observation[T], error) {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.mu.Lock()
		if t.done {
			defer t.mu.Unlock()
			return t.last, t.err
		}
		obs, _, err := t.finishLocked(t.last, ErrTimeout)
		return obs, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, parent.Err()
}

// backoff returns the delay after the current error streak: the interval
// doubled per consecutive error, capped at MaxBackoff.
func (t *Tracker[T]) backoff() time.Duration {
	t.mu.Lock()
	streak := t.errorStreak
	t.mu.Unlock()
	return Backoff(t.opts.Interval, t.opts.MaxBackoff, streak)
}

// Backoff returns base doubled attempt times, capped at limit.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}
