package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// CleanupOldLogs prunes files in dir whose names match pattern and whose
// modification time is more than retentionDays old. keep names the live log
// file, which survives regardless of age. It returns how many files went.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, dir, pattern, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	if keep != "" {
		keep, _ = filepath.Abs(keep)
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	pruned := 0
	for _, path := range matches {
		abs, err := filepath.Abs(path)
		if err != nil || abs == keep {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(abs); err != nil {
			WarnWithContext(logger, "could not prune old log", "log_retention_failed",
				String("path", abs),
				Error(err),
				String(FieldErrorHint, "check ownership of the log directory"),
				String(FieldImpact, "old log file stays on disk"),
			)
			continue
		}
		pruned++
		if logger != nil {
			logger.Debug("log pruned", String("path", abs), String(FieldEventType, "log_pruned"))
		}
	}
	return pruned
}
