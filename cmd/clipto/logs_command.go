package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"clipto/internal/ipc"
	"clipto/internal/logs"
	"clipto/internal/queue"
	"clipto/internal/workflow"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var deliveryID int64
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log or the log of one delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "clipto.log")
			if deliveryID > 0 {
				var delivery *ipc.Delivery
				if err := ctx.withClient(func(client *ipc.Client) error {
					delivery, err = client.Show(deliveryID)
					return err
				}); err != nil {
					return err
				}
				path = workflow.NewItemLogger(cfg).Path(&queue.Item{ID: delivery.ID, Title: delivery.Title})
			}

			out := cmd.OutOrStdout()
			recent, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().Int64Var(&deliveryID, "delivery", 0, "Show the log of this delivery instead of the daemon log")
	return cmd
}
