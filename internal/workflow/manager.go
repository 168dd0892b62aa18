package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/stage"
)

// Manager runs deliveries through their stages. The media lane uploads and
// transcodes; the chain lane mints and indexes. Each lane works one delivery
// at a time, so the two never contend for the same workflow.
type Manager struct {
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	machine  *Machine

	idleWait  time.Duration
	errorWait time.Duration

	heartbeat *heartbeat
	itemLogs  *ItemLogger
	run       queueRun

	mu      sync.RWMutex
	lanes   []*lane
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	last    *queue.Item
}

// NewManager returns a Manager notifying through ntfy.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier returns a Manager publishing through notifier, which
// may be nil.
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return &Manager{
		store:     store,
		logger:    logger,
		notifier:  notifier,
		machine:   NewMachine(),
		idleWait:  max(seconds(cfg.Workflow.QueuePollInterval), minIdleWait),
		errorWait: max(seconds(cfg.Workflow.ErrorRetryInterval), minIdleWait),
		heartbeat: &heartbeat{
			store:    store,
			logger:   logging.NewComponentLogger(logger, "workflow-heartbeat"),
			interval: seconds(cfg.Workflow.HeartbeatInterval),
			timeout:  seconds(cfg.Workflow.HeartbeatTimeout),
		},
		itemLogs: NewItemLogger(cfg),
	}
}

const minIdleWait = 50 * time.Millisecond

// Store returns the queue the manager works on.
func (m *Manager) Store() *queue.Store {
	return m.store
}

// StageSet holds the handlers for the four stages. A nil handler leaves its
// stage out, and deliveries waiting for it stay queued.
type StageSet struct {
	Uploader   stage.Handler
	Transcoder stage.Handler
	Minter     stage.Handler
	Indexer    stage.Handler
}

// ConfigureStages builds the lanes from set. It must be called before Start.
func (m *Manager) ConfigureStages(set StageSet) {
	media := newLane(queue.LaneMedia,
		stageSpec{"uploader", set.Uploader, queue.StatusFormEntry, queue.StatusUploading, queue.StatusUploaded},
		stageSpec{"transcoder", set.Transcoder, queue.StatusUploaded, queue.StatusTranscoding, queue.StatusMetadataReady},
	)
	chain := newLane(queue.LaneChain,
		stageSpec{"minter", set.Minter, queue.StatusMetadataReady, queue.StatusMinting, queue.StatusMinted},
		stageSpec{"indexer", set.Indexer, queue.StatusMinted, queue.StatusIndexing, queue.StatusDone},
	)

	var lanes []*lane
	for _, l := range []*lane{media, chain} {
		if len(l.stages) > 0 {
			lanes = append(lanes, l)
		}
	}
	// The first lane reclaims stale work for every processing status.
	if len(lanes) > 0 {
		lanes[0].reclaims = true
	}

	m.mu.Lock()
	m.lanes = lanes
	m.mu.Unlock()
}

// Start launches one goroutine per configured lane.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.lanes) == 0 {
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, l := range m.lanes {
		l.logger = logging.NewComponentLogger(m.logger, "workflow-"+string(l.kind)+"-runner").
			With(logging.String(logging.FieldLane, string(l.kind)))
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runLane(runCtx, l)
		}()
	}
	return nil
}

// Stop cancels the lanes and waits for the stage in flight to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running, m.cancel = false, nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// sleep waits for d or until ctx ends, reporting whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
