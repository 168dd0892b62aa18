package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/stage"
	"clipto/internal/testsupport"
	"clipto/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Item)
	executeHook func(context.Context, *queue.Item) error
	prepareErr  error
	executeErr  error
	health      stage.Health

	mu    sync.Mutex
	calls int
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, item *queue.Item) error {
	if s.prepareHook != nil {
		s.prepareHook(item)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(ctx context.Context, item *queue.Item) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.executeHook != nil {
		if err := s.executeHook(ctx, item); err != nil {
			return err
		}
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubStage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// succeedJob records a succeeded remote job of kind for item.
func succeedJob(ctx context.Context, store *queue.Store, item *queue.Item, kind queue.JobKind, remoteID string) error {
	job, err := store.CreateJob(ctx, item.ID, kind, remoteID)
	if err != nil {
		return err
	}
	_, err = store.UpdateJobStatus(ctx, job.ID, queue.JobSucceeded, "")
	return err
}

// happyStages returns stub stages that record the jobs and fields the entry
// guards of the following stages require.
func happyStages(store *queue.Store) (up, tc, mint, index *stubStage) {
	up = newStubStage("uploader")
	up.executeHook = func(ctx context.Context, item *queue.Item) error {
		item.UploadUUID = "upload-1"
		return succeedJob(ctx, store, item, queue.JobUpload, "upload-1")
	}
	tc = newStubStage("transcoder")
	tc.executeHook = func(ctx context.Context, item *queue.Item) error {
		item.TokenURI = "meta-1"
		return succeedJob(ctx, store, item, queue.JobTranscode, "upload-1")
	}
	mint = newStubStage("minter")
	mint.executeHook = func(ctx context.Context, item *queue.Item) error {
		item.TxHash = "0xfeed"
		item.NFTTokenID = "42"
		return succeedJob(ctx, store, item, queue.JobTransaction, "0xfeed")
	}
	index = newStubStage("indexer")
	return up, tc, mint, index
}

func newManager(t *testing.T, notifier notifications.Service) (*workflow.Manager, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)
	return workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier), store, cfg
}

func startManager(t *testing.T, mgr *workflow.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := mgr.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		mgr.Stop()
	})
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, status queue.Status) *queue.Item {
	t.Helper()
	var item *queue.Item
	testsupport.WaitFor(t, 10*time.Second, "status "+string(status), func() bool {
		got, err := store.GetByID(context.Background(), id)
		if err != nil || got == nil {
			return false
		}
		item = got
		return got.Status == status
	})
	return item
}
