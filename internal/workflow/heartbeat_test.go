package workflow

import (
	"context"
	"testing"
	"time"

	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/testsupport"
)

func TestHeartbeatKeepAliveRefreshesUntilStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewWorkflow(t, store, "req-hb", "/tmp/clip.mp4")
	testsupport.SetStatus(t, store, item, queue.StatusUploading)

	hb := &heartbeat{store: store, logger: logging.NewNop(), interval: 20 * time.Millisecond}
	stop := hb.keepAlive(context.Background(), item.ID)
	testsupport.WaitFor(t, 5*time.Second, "heartbeat written", func() bool {
		got, err := store.GetByID(context.Background(), item.ID)
		return err == nil && got != nil && got.LastHeartbeat != nil
	})
	stop()
}

func TestHeartbeatDisabledIntervalIsNoop(t *testing.T) {
	hb := &heartbeat{logger: logging.NewNop()}
	hb.keepAlive(context.Background(), 1)()
	hb.reclaim(context.Background())
}

func TestHeartbeatReclaimReturnsStaleUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewWorkflow(t, store, "req-stale", "/tmp/clip.mp4")
	stale := time.Now().Add(-time.Hour).UTC()
	item.LastHeartbeat = &stale
	testsupport.SetStatus(t, store, item, queue.StatusUploading)

	hb := &heartbeat{store: store, logger: logging.NewNop(), timeout: time.Minute}
	hb.reclaim(context.Background())

	got, err := store.GetByID(context.Background(), item.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFormEntry {
		t.Fatalf("expected stale upload back in form_entry, got %s", got.Status)
	}
}
