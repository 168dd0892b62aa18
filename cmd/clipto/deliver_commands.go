package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipto/internal/ipc"
	"clipto/internal/queue"
)

func newDeliverCommand(ctx *commandContext) *cobra.Command {
	deliverCmd := &cobra.Command{
		Use:   "deliver",
		Short: "Create and track video deliveries",
	}
	deliverCmd.AddCommand(
		newDeliverCreateCommand(ctx),
		newDeliverListCommand(ctx),
		newDeliverShowCommand(ctx),
		newDeliverMintCommand(ctx),
		newDeliverRetryCommand(ctx),
		newDeliverRemoveCommand(ctx),
		newDeliverWatchCommand(ctx),
	)
	return deliverCmd
}

func newDeliverCreateCommand(ctx *commandContext) *cobra.Command {
	var req ipc.SubmitRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue a video for delivery against a booking request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.SourcePath) != "" {
				abs, err := filepath.Abs(req.SourcePath)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", req.SourcePath, err)
				}
				req.SourcePath = abs
			}
			return ctx.withClient(func(client *ipc.Client) error {
				delivery, err := client.Submit(req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, delivery, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Delivery #%d queued for request %s\n", delivery.ID, delivery.RequestID)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.RequestID, "request", "", "Booking request id")
	cmd.Flags().StringVar(&req.Creator, "creator", "", "Creator wallet address")
	cmd.Flags().StringVar(&req.Title, "title", "", "Video title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Video description")
	cmd.Flags().StringVar(&req.SourcePath, "file", "", "Video file to upload")
	cmd.Flags().StringVar(&req.Version, "contract-version", "", "Booking contract version (0 or 1)")
	cmd.Flags().StringVar(&req.Account, "account", "", "Signing account (defaults to the logged in wallet)")
	return cmd
}

func newDeliverListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				deliveries, err := client.List(statuses)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, deliveries, func() error {
					out := cmd.OutOrStdout()
					if len(deliveries) == 0 {
						fmt.Fprintln(out, "No deliveries")
						return nil
					}
					fmt.Fprint(out, renderDeliveryTable(deliveries, shouldColorize(out)))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newDeliverShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one delivery with its remote jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeliveryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				delivery, err := client.Show(id)
				if err != nil {
					return err
				}
				report := deliveryReport{Delivery: delivery}
				if minted(delivery) {
					report.NFT, report.NFTError = ctx.lookupNFT(cmd.Context(), delivery)
				}
				return ctx.emit(cmd, report, func() error {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					renderDeliveryDetail(out, delivery, colorize)
					renderNFTDetails(out, report.NFT, report.NFTError, colorize)
					return nil
				})
			})
		},
	}
}

func newDeliverMintCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <id>",
		Short: "Confirm minting a delivery whose metadata is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeliveryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				key, err := client.Mint(id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, ipc.MintResponse{MintKey: key}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Mint confirmed for delivery #%d (key %s)\n", id, key)
					return nil
				})
			})
		},
	}
}

func newDeliverRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Resume a failed delivery from the stage that failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeliveryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				delivery, err := client.Retry(id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, delivery, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Delivery #%d reset to %s\n", delivery.ID, statusLabel(delivery.Status))
					return nil
				})
			})
		},
	}
}

func newDeliverRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a delivery that is not in flight",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeliveryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Remove(id); err != nil {
					return err
				}
				return ctx.emit(cmd, ipc.RemoveResponse{Removed: true}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Delivery #%d removed\n", id)
					return nil
				})
			})
		},
	}
}

func newDeliverWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow progress of a delivery until it finishes or waits for you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeliveryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				return watchDelivery(cmd, ctx, client, id, interval)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "How often to poll the daemon")
	return cmd
}

// watchDelivery prints daemon events for id until the delivery is done,
// failed, or waiting for the mint confirmation.
func watchDelivery(cmd *cobra.Command, ctx *commandContext, client *ipc.Client, id int64, interval time.Duration) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	delivery, err := client.Show(id)
	if err != nil {
		return err
	}
	if !ctx.jsonOutput() {
		fmt.Fprintf(out, "Watching delivery #%d (%s)\n", delivery.ID, colorStatus(delivery.Status, colorize))
	}
	if watchFinished(delivery.Status) {
		return nil
	}

	var since int64
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := client.Events(since, id)
		if err != nil {
			return err
		}
		since = resp.Next
		for _, record := range resp.Events {
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, record); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderEventLine(record, colorize))
			}
			if watchFinished(record.Status) {
				return nil
			}
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func watchFinished(status string) bool {
	switch queue.Status(status) {
	case queue.StatusDone, queue.StatusFailed, queue.StatusMetadataReady:
		return true
	default:
		return false
	}
}

func parseDeliveryID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("delivery id must be a positive number")
	}
	return id, nil
}
