package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipto/internal/config"
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

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "clipto", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := notifications.NewHub(64)
	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, hub)
	// Only the minter is wired so queued deliveries stay where tests put them.
	mgr.ConfigureStages(workflow.StageSet{Minter: noopStage{}})

	d, err := daemon.New(cfg, store, logger, mgr, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	socketPath := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
media_dir = %q

[backend]
base_url = %q
metadata_gateway = %q

[wallet]
account = %q
rpc_url = %q

[chain]
contract_v0 = %q
contract_v1 = %q

[workflow]
queue_poll_interval = %d
heartbeat_interval = %d
heartbeat_timeout = %d
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.MediaDir,
		cfg.Backend.BaseURL,
		cfg.Backend.MetadataGateway,
		cfg.Wallet.Account,
		cfg.Wallet.RPCURL,
		cfg.Chain.ContractV0,
		cfg.Chain.ContractV1,
		cfg.Workflow.QueuePollInterval,
		cfg.Workflow.HeartbeatInterval,
		cfg.Workflow.HeartbeatTimeout,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeVideo(t *testing.T, env *cliTestEnv, name string) string {
	t.Helper()
	path := filepath.Join(env.cfg.Paths.MediaDir, name)
	testsupport.WriteFile(t, path, 2048)
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
