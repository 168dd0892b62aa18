package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipto/internal/daemonctl"
	"clipto/internal/daemonrun"
	"clipto/internal/ipc"
	"clipto/internal/preflight"
	"clipto/internal/queue"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the clipto daemon",
	}

	var development bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.logLevel(),
				SocketPath:  ctx.socketPath(),
				Development: development,
			})
		},
	}
	runCmd.Flags().BoolVar(&development, "development", false, "Use development log output")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), 10*time.Second)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			return nil
		},
	}

	var grace time.Duration
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.socketPath(), ctx.configValue(), grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit within %s; killed pid %d\n", grace, result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&grace, "grace", 10*time.Second, "How long to wait before killing the daemon")

	daemonCmd.AddCommand(runCmd, startCmd, stopCmd)
	return daemonCmd
}

type statusReport struct {
	Daemon *ipc.StatusResponse `json:"daemon"`
	Checks []preflight.Result  `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var online bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, readiness and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			report := statusReport{Daemon: statusResp, Checks: preflight.RunAll(cmd.Context(), cfg, online)}
			return ctx.emit(cmd, report, func() error {
				renderStatus(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "Also contact the backend, RPC node and Lens API")
	return cmd
}

func renderStatus(cmd *cobra.Command, report statusReport) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	status := report.Daemon

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Running {
		fmt.Fprintln(stdout, renderStatusLine("Clipto", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Clipto", statusError, "Not running", colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
	if len(status.Lanes) > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Lanes", statusInfo, strings.Join(status.Lanes, ", "), colorize))
	}
	if status.LastError != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
	}

	if len(status.StageHealth) > 0 {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Stages", colorize) {
			fmt.Fprintln(stdout, line)
		}
		for _, health := range status.StageHealth {
			kind, detail := statusOK, "Ready"
			if !health.Ready {
				kind, detail = statusError, "Not ready"
			}
			if health.Detail != "" {
				detail = health.Detail
			}
			fmt.Fprintln(stdout, renderStatusLine(statusLabel(health.Name), kind, detail, colorize))
		}
	}

	if len(report.Checks) > 0 {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("System", colorize) {
			fmt.Fprintln(stdout, line)
		}
		for _, check := range report.Checks {
			fmt.Fprintln(stdout, renderStatusLine(check.Name, checkKind(check), check.Detail, colorize))
		}
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Queue Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := buildQueueStatusRows(status.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
		return
	}
	fmt.Fprint(stdout, renderTable([]column{
		{header: "Status"},
		{header: "Count", rightAlign: true},
	}, rows))
}

func checkKind(check preflight.Result) statusKind {
	switch {
	case check.Passed:
		return statusOK
	case check.Optional:
		return statusWarn
	default:
		return statusError
	}
}

// buildQueueStatusRows orders counts by lifecycle position.
func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	rank := make(map[string]int)
	for i, status := range queue.AllStatuses() {
		rank[string(status)] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		return rank[keys[i]] < rank[keys[j]]
	})
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{statusLabel(key), strconv.Itoa(stats[key])})
	}
	return rows
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		SocketPath: ctx.socketPath(),
		ConfigPath: ctx.configPath(),
		LogLevel:   ctx.logLevel(),
	}
}
