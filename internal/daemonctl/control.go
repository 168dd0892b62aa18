package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"clipto/internal/config"
	"clipto/internal/ipc"
	"clipto/internal/queue"
)

// ErrDaemonNotRunning reports that nothing answers on the daemon socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions are forwarded as flags to the detached "clipto daemon run".
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
}

func (o LaunchOptions) args() []string {
	args := []string{"daemon", "run"}
	for _, flag := range [][2]string{
		{"--socket", o.SocketPath},
		{"--config", o.ConfigPath},
		{"--log-level", o.LogLevel},
	} {
		if v := strings.TrimSpace(flag[1]); v != "" {
			args = append(args, flag[0], v)
		}
	}
	return args
}

// StartResult reports whether EnsureStarted had to launch a process.
type StartResult struct {
	Launched bool
	PID      int
}

// StopResult reports which process was stopped and whether it needed SIGKILL.
type StopResult struct {
	PID        int
	ForcedKill bool
}

const pollStep = 200 * time.Millisecond

// Launch starts the daemon in its own session so it outlives the CLI.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	proc := exec.Command(executablePath, opts.args()...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient dials socketPath until it answers or timeout passes.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	var client *ipc.Client
	lastErr := errors.New("timeout waiting for daemon")
	ok := pollUntil(timeout, func() bool {
		c, err := ipc.Dial(socketPath)
		if err != nil {
			lastErr = err
			return false
		}
		client = c
		return true
	})
	if !ok {
		return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
	}
	return client, nil
}

// EnsureStarted launches the daemon unless one already answers on socketPath,
// then confirms its lanes are running.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	var result StartResult
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if err := Launch(executablePath, opts); err != nil {
			return result, err
		}
		result.Launched = true
		if client, err = WaitForClient(socketPath, waitTimeout); err != nil {
			return result, err
		}
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return result, err
	}
	result.PID = status.PID
	if !status.Running {
		return result, errors.New("daemon is up but its lanes are not running; see clipto.log")
	}
	return result, nil
}

// WaitForShutdown returns once nothing listens on socketPath.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	gone := pollUntil(timeout, func() bool {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			return isDaemonUnavailable(err)
		}
		_ = client.Close()
		return false
	})
	if !gone {
		return fmt.Errorf("daemon did not stop within %s", timeout)
	}
	return nil
}

// Stop sends SIGTERM to the daemon and escalates to SIGKILL after
// gracePeriod. A delivery interrupted mid-stage is reset by the next start.
func Stop(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	status, statusErr := client.Status()
	_ = client.Close()

	pidPath := cfg.PIDPath()
	pid := 0
	if statusErr == nil {
		pid = status.PID
	}
	if pid <= 0 {
		pid = readPID(pidPath)
	}
	switch {
	case pid <= 0:
		return StopResult{}, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	case pid == os.Getpid():
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if WaitForShutdown(socketPath, gracePeriod) == nil {
		return result, nil
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	// A killed daemon cannot remove its own files.
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	return result, nil
}

// BuildStatusSnapshot asks the daemon for its status. When no daemon
// answers, it reads the queue counts straight from the database.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	if client, err := ipc.Dial(socketPath); err == nil {
		resp, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && resp != nil {
			return resp, nil
		}
	}

	snapshot := &ipc.StatusResponse{QueueDBPath: cfg.QueueDBPath(), LockPath: cfg.LockPath()}
	if _, err := os.Stat(snapshot.QueueDBPath); err != nil {
		return snapshot, nil
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return snapshot, err
	}
	defer store.Close()

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	stats, err := store.Stats(queryCtx)
	if err != nil {
		return snapshot, err
	}
	snapshot.QueueStats = make(map[string]int, len(stats))
	for status, count := range stats {
		snapshot.QueueStats[string(status)] = count
	}
	return snapshot, nil
}

// pollUntil calls done every pollStep until it returns true or timeout
// passes. It always calls done at least once.
func pollUntil(timeout time.Duration, done func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if done() {
			return true
		}
		if time.Now().Add(pollStep).After(deadline) {
			return false
		}
		time.Sleep(pollStep)
	}
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED)
}
