package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "clipto.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsSubjectAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithItemID(context.Background(), 42)
	ctx = services.WithStage(ctx, "transcoder")
	ctx = services.WithLane(ctx, "media")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "workflow")).Info("transcode polled",
		logging.String("status", "in_progress"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"[workflow]", "Media · Delivery #42 (transcoder)", "transcode polled", "- status: in_progress"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output, got %q", want, text)
		}
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
}

func TestJSONLoggerUsesLowercaseLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("suppressed")
	logging.WarnWithContext(logger, "poll backing off", "poll_backoff", logging.Duration("delay", 10*time.Second))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, "suppressed") {
		t.Fatalf("expected info line filtered at warn level, got %q", text)
	}
	for _, want := range []string{`"level":"warn"`, `"event_type":"poll_backoff"`, `"error_hint":"check logs for details"`, `"impact"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in output, got %q", want, text)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCleanupOldLogsKeepsActiveFile(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "clipto-old.log")
	active := filepath.Join(dir, "clipto.log")
	for _, path := range []string{old, active} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if pruned := logging.CleanupOldLogs(logging.NewNop(), 5, dir, "clipto*.log", active); pruned != 1 {
		t.Fatalf("expected one file pruned, got %d", pruned)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err=%v", err)
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatalf("expected active log kept: %v", err)
	}
}
