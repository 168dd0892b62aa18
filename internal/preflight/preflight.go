package preflight

import (
	"context"
	"os"
	"strings"

	"clipto/internal/config"
)

// Result reports the outcome of a single preflight check. Optional results
// describe features that are off rather than broken.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll runs the local checks for cfg and, when online is set, the network
// checks as well.
func RunAll(ctx context.Context, cfg *config.Config, online bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		checkSecret("Backend token", cfg.Backend.Token, "CLIPTO_BACKEND_TOKEN"),
		checkWalletSession(cfg),
		checkNotifications(cfg),
	}
	if !online {
		return results
	}
	return append(results,
		CheckHTTP(ctx, "Backend API", cfg.Backend.BaseURL),
		CheckRPC(ctx, cfg),
		CheckHTTP(ctx, "Lens API", cfg.Social.LensAPIURL),
	)
}

func checkSecret(name, value, envName string) Result {
	if strings.TrimSpace(value) == "" {
		return Result{Name: name, Detail: "not set (export " + envName + ")"}
	}
	return Result{Name: name, Passed: true, Detail: "set"}
}

func checkWalletSession(cfg *config.Config) Result {
	const name = "Wallet"
	if _, err := os.Stat(cfg.WalletSessionPath()); err == nil {
		return Result{Name: name, Passed: true, Detail: "session saved"}
	}
	if account := strings.TrimSpace(cfg.Wallet.Account); account != "" {
		return Result{Name: name, Passed: true, Detail: "configured account " + account}
	}
	return Result{Name: name, Detail: "not connected; run clipto login"}
}

func checkNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Optional: true, Detail: "ntfy topic not configured"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy enabled"}
}
