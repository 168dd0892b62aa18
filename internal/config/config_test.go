package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clipto/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPTO_BACKEND_TOKEN", "env-token")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "clipto")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.QueueDBPath() != filepath.Join(wantState, "queue.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}
	if cfg.Backend.Token != "env-token" {
		t.Fatalf("expected backend token from env, got %q", cfg.Backend.Token)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %s", cfg.PollInterval())
	}
	if cfg.ChunkSizeBytes() != 5120*1024 {
		t.Fatalf("unexpected chunk size: %d", cfg.ChunkSizeBytes())
	}
	if cfg.MaxFileSizeBytes() != 50*1024*1024 {
		t.Fatalf("unexpected max file size: %d", cfg.MaxFileSizeBytes())
	}
	if cfg.Chain.DeliveredEvent != "DeliveredRequest(address,uint256,uint256)" {
		t.Fatalf("unexpected delivered event: %q", cfg.Chain.DeliveredEvent)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Paths.StateDir = "~/custom-state"
	cfg.Backend.BaseURL = "http://localhost:8080/"
	cfg.Wallet.Account = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	cfg.Wallet.Connector = " WalletConnect "
	cfg.Storage.Backend = "MINIO"
	cfg.Storage.Endpoint = "minio.local:9000"
	cfg.Storage.AccessKey = "access"
	cfg.Storage.SecretKey = "secret"
	cfg.Poll.Interval = 2
	cfg.Poll.MaxBackoff = 8

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if loaded.Paths.StateDir != filepath.Join(tempHome, "custom-state") {
		t.Fatalf("unexpected state dir: %q", loaded.Paths.StateDir)
	}
	if loaded.Backend.BaseURL != "http://localhost:8080" {
		t.Fatalf("expected trailing slash trimmed, got %q", loaded.Backend.BaseURL)
	}
	if loaded.Wallet.Account != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("expected lowercased account, got %q", loaded.Wallet.Account)
	}
	if loaded.Wallet.Connector != "walletconnect" {
		t.Fatalf("unexpected connector: %q", loaded.Wallet.Connector)
	}
	if loaded.Storage.Backend != "minio" {
		t.Fatalf("unexpected storage backend: %q", loaded.Storage.Backend)
	}
	if loaded.PollMaxBackoff() != 8*time.Second {
		t.Fatalf("unexpected max backoff: %s", loaded.PollMaxBackoff())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero poll interval", func(c *config.Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"backoff below interval", func(c *config.Config) { c.Poll.MaxBackoff = 1; c.Poll.Interval = 5 }, "poll.max_backoff"},
		{"chunk above max", func(c *config.Config) { c.Upload.ChunkSizeKB = c.Upload.MaxFileSizeKB + 1 }, "upload.chunk_size_kb"},
		{"bad connector", func(c *config.Config) { c.Wallet.Connector = "ledger" }, "wallet.connector"},
		{"bad account", func(c *config.Config) { c.Wallet.Account = "0x123" }, "wallet.account"},
		{"bad storage", func(c *config.Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"minio without endpoint", func(c *config.Config) { c.Storage.Backend = "minio" }, "storage.endpoint"},
		{"relative backend url", func(c *config.Config) { c.Backend.BaseURL = "api.clipto.io" }, "backend.base_url"},
		{"event without types", func(c *config.Config) { c.Chain.DeliveredEvent = "DeliveredRequest" }, "chain.delivered_event"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"heartbeat timeout", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }, "workflow.heartbeat_timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Upload.ChunkSizeKB != 5120 {
		t.Fatalf("unexpected chunk size in sample: %d", cfg.Upload.ChunkSizeKB)
	}
}

func TestEnsureDirectoriesCreatesStateAndLogs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.MediaDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
