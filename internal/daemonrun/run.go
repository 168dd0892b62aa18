package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"clipto/internal/config"
	"clipto/internal/daemon"
	"clipto/internal/delivery"
	"clipto/internal/ipc"
	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/workflow"
)

// hubCapacity bounds how many workflow events deliver watch can replay.
const hubCapacity = 1024

// Options are the `clipto daemon run` flags that override configuration.
type Options struct {
	LogLevel    string
	SocketPath  string
	Development bool
}

// Run starts the daemon in the foreground and blocks until ctx is canceled or
// the process receives SIGINT or SIGTERM. Shutdown releases resources in
// reverse order: IPC socket, lanes, lock, database, pid file.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := openRunLog(cfg, opts)
	if err != nil {
		return err
	}

	pidPath := cfg.PIDPath()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "could not open queue database", "queue_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or run clipto config validate"))
		return err
	}

	hub := notifications.NewHub(hubCapacity)
	notifier := notifications.Fanout(notifications.NewService(cfg), hub)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	manager.ConfigureStages(delivery.Stages(BuildDeps(cfg, store, notifier, logger)))

	d, err := daemon.New(cfg, store, logger, manager, hub)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	server, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Close()
	server.Serve()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	<-ctx.Done()
	logger.Info("clipto daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}
