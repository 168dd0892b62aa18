package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsShowsTrailingDaemonLines(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.LogDir, "clipto.log")
	if err := os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
	requireContains(t, out, "second\nthird\n")
}
