package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := filepath.Join(home, "clipto.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, filepath.Join(home, "none.sock"), "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, filepath.Join(home, "none.sock"), ""); err == nil {
		t.Fatal("expected existing file to be refused without --overwrite")
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, err := runCLI(t, []string{"config", "validate"}, filepath.Join(home, "none.sock"), path)
	if err == nil {
		t.Fatal("expected invalid log level to fail validation")
	}
	requireContains(t, err.Error(), "logging.level")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "clipto.toml")
	content := "[backend]\ntoken = \"s3cret-token\"\n\n[wallet]\naccount = \"0x1111111111111111111111111111111111111111\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "show"}, filepath.Join(home, "none.sock"), path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[backend]")
	requireContains(t, out, "********")
	if strings.Contains(out, "s3cret-token") {
		t.Fatalf("expected token masked, got %q", out)
	}
}
