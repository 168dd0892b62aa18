package daemonrun

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
)

// openRunLog starts a log file for this daemon run, points clipto.log at it
// and prunes runs and delivery logs past the retention window.
func openRunLog(cfg *config.Config, opts Options) (*slog.Logger, error) {
	runLog := filepath.Join(cfg.Paths.LogDir, "clipto-"+time.Now().UTC().Format("20060102T150405.000Z")+".log")
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", runLog},
		Development: opts.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	if err := pointCurrentLog(cfg.Paths.LogDir, runLog); err != nil {
		logging.WarnWithContext(logger, "could not update clipto.log link", "log_pointer_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "clipto logs may show a previous run"),
		)
	}
	keep := cfg.Logging.RetentionDays
	logging.CleanupOldLogs(logger, keep, cfg.Paths.LogDir, "clipto-*.log", runLog)
	logging.CleanupOldLogs(logger, keep, filepath.Join(cfg.Paths.LogDir, "deliveries"), "*.log", "")
	return logger, nil
}

// pointCurrentLog makes <logDir>/clipto.log name target, as a symlink where
// the filesystem allows and a hard link otherwise.
func pointCurrentLog(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "clipto.log")
	if err := os.Remove(current); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if os.Symlink(target, current) == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

// logConfigSnapshot records the settings that explain most support questions.
// Secrets are reported only as present or absent.
func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("backend_url", cfg.Backend.BaseURL),
		logging.Bool("backend_token_present", cfg.Backend.Token != ""),
		logging.String("rpc_url", cfg.Wallet.RPCURL),
		logging.Int64("chain_id", cfg.Chain.ChainID),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Duration("poll_interval", cfg.PollInterval()),
		logging.Duration("poll_timeout", cfg.PollTimeout()),
	)
}
