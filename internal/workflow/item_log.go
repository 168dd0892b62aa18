package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/queue"
)

// ItemLogger keeps one log file per delivery under <log_dir>/deliveries. The
// file name is derived from the workflow, so no path is persisted.
type ItemLogger struct {
	baseDir string
	cfg     *config.Config

	mu       sync.Mutex
	handlers map[int64]slog.Handler
}

// NewItemLogger returns an ItemLogger, or one that opens nothing when no log
// directory is configured.
func NewItemLogger(cfg *config.Config) *ItemLogger {
	dir := ""
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "deliveries")
	}
	return &ItemLogger{baseDir: dir, cfg: cfg, handlers: make(map[int64]slog.Handler)}
}

// Path returns the log file of item, or "" when item logs are disabled.
func (l *ItemLogger) Path(item *queue.Item) string {
	if l == nil || l.baseDir == "" || item == nil {
		return ""
	}
	return filepath.Join(l.baseDir, l.filename(item))
}

// Handler returns a handler writing to the delivery log of item. It returns a
// nil handler without error when item logs are disabled.
func (l *ItemLogger) Handler(item *queue.Item) (slog.Handler, string, error) {
	path := l.Path(item)
	if path == "" {
		return nil, "", nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if handler, ok := l.handlers[item.ID]; ok {
		return handler, path, nil
	}
	if err := os.MkdirAll(l.baseDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("ensure delivery log directory: %w", err)
	}
	level, format := "info", "json"
	if l.cfg != nil {
		if strings.TrimSpace(l.cfg.Logging.Level) != "" {
			level = l.cfg.Logging.Level
		}
		if strings.TrimSpace(l.cfg.Logging.Format) != "" {
			format = l.cfg.Logging.Format
		}
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, OutputPaths: []string{path}})
	if err != nil {
		return nil, "", err
	}
	l.handlers[item.ID] = logger.Handler()
	return l.handlers[item.ID], path, nil
}

func (l *ItemLogger) filename(item *queue.Item) string {
	title := sanitizeSlug(item.Title)
	if title == "" {
		title = "untitled"
	}
	return fmt.Sprintf("delivery-%d-%s.log", item.ID, title)
}

func sanitizeSlug(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}
