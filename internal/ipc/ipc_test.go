package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"clipto/internal/daemon"
	"clipto/internal/ipc"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/stage"
	"clipto/internal/testsupport"
	"clipto/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

type fixture struct {
	store  *queue.Store
	client *ipc.Client
	media  string
}

func startServer(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := notifications.NewHub(64)
	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, hub)
	// Only the minter is wired so queued deliveries stay put.
	mgr.ConfigureStages(workflow.StageSet{Minter: noopStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return fixture{store: store, client: client, media: cfg.Paths.MediaDir}
}

func (f fixture) submit(t *testing.T, requestID string) *ipc.Delivery {
	t.Helper()
	path := filepath.Join(f.media, requestID+".mp4")
	testsupport.WriteFile(t, path, 1024)
	delivery, err := f.client.Submit(ipc.SubmitRequest{
		RequestID:   requestID,
		Creator:     "0x2222222222222222222222222222222222222222",
		Version:     "1",
		Title:       "Birthday shoutout",
		Description: "A short video for the booking",
		SourcePath:  path,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return delivery
}

func TestIPCStatusAndSubmit(t *testing.T) {
	f := startServer(t)

	status, err := f.client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if len(status.StageHealth) != 1 || status.StageHealth[0].Name != "minter" {
		t.Fatalf("unexpected stage health %+v", status.StageHealth)
	}

	delivery := f.submit(t, "req-1-a")
	if delivery.Status != string(queue.StatusFormEntry) {
		t.Fatalf("expected form_entry, got %s", delivery.Status)
	}

	list, err := f.client.List([]string{string(queue.StatusFormEntry)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != delivery.ID {
		t.Fatalf("expected the queued delivery, got %+v", list)
	}
	if _, err := f.client.List([]string{"bogus"}); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	events, err := f.client.Events(0, delivery.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].Message != "Delivery queued" {
		t.Fatalf("expected queued event, got %+v", events.Events)
	}
	again, err := f.client.Events(events.Next, delivery.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(again.Events) != 0 || again.Next != events.Next {
		t.Fatalf("expected empty page at cursor %d, got %+v", events.Next, again)
	}
}

func TestIPCSubmitReportsUserMessage(t *testing.T) {
	f := startServer(t)

	_, err := f.client.Submit(ipc.SubmitRequest{RequestID: "req-1-a"})
	if err == nil {
		t.Fatal("expected empty form to be rejected")
	}
	if got := err.Error(); got != "validation: "+workflow.MsgAddTitleAndDescription {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestIPCMintRefusedOutsideMetadataReady(t *testing.T) {
	f := startServer(t)
	delivery := f.submit(t, "req-1-b")

	item, err := f.store.GetByID(context.Background(), delivery.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	item.TokenURI = "meta-1"
	testsupport.SetStatus(t, f.store, item, queue.StatusFailed)

	if _, err := f.client.Mint(delivery.ID); err == nil {
		t.Fatal("expected mint to be refused outside metadata_ready")
	} else if !strings.Contains(err.Error(), "Minting is not available") {
		t.Fatalf("unexpected mint error %q", err.Error())
	}

	shown, err := f.client.Show(delivery.ID)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if shown.MintEnabled || shown.TokenURI != "meta-1" {
		t.Fatalf("unexpected delivery %+v", shown)
	}
}

func TestIPCRemoveAndMissing(t *testing.T) {
	f := startServer(t)
	delivery := f.submit(t, "req-1-c")

	if err := f.client.Remove(delivery.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := f.client.Show(delivery.ID); err == nil {
		t.Fatal("expected removed delivery to be missing")
	}
	if _, err := f.client.Retry(delivery.ID); err == nil {
		t.Fatal("expected retry of a missing delivery to fail")
	}

	health, err := f.client.Health()
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 0 || !health.IntegrityCheck {
		t.Fatalf("expected an empty healthy store, got %+v", health)
	}
}
