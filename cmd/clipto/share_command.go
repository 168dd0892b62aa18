package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/ipc"
	"clipto/internal/queue"
	"clipto/internal/social"
	"clipto/internal/storage"
	"clipto/internal/wallet"
)

func newShareCommand(ctx *commandContext) *cobra.Command {
	var account string
	var again bool
	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Post a delivered video to your Lens profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeliveryID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				delivery, err := client.Show(id)
				if err != nil {
					return err
				}
				if delivery.Status != string(queue.StatusDone) {
					return fmt.Errorf("delivery #%d is %s; only delivered videos can be shared", id, statusLabel(delivery.Status))
				}
				if delivery.ShareTxHash != "" && !again {
					return fmt.Errorf("delivery #%d was already shared (tx %s); pass --again to post it again", id, delivery.ShareTxHash)
				}

				logger := ctx.localLogger()
				rpc := chain.New(cfg, chain.WithLogger(logger))
				if strings.TrimSpace(account) == "" {
					account, err = wallet.NewSession(cfg, rpc, logger).Account()
					if err != nil {
						return localError(err)
					}
				}
				store, err := storage.New(cfg, logger)
				if err != nil {
					return fmt.Errorf("open storage: %w", err)
				}
				sharer := social.NewSharer(cfg,
					social.NewClient(cfg, logger),
					backend.New(cfg, backend.WithLogger(logger)),
					store,
					rpc,
					logger,
				)

				if !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "Sharing delivery #%d; approve the signature requests in your wallet\n", id)
				}
				result, err := sharer.Share(cmd.Context(), social.ShareRequest{
					Account:  account,
					Creator:  delivery.Creator,
					TokenURI: delivery.TokenURI,
				})
				if err != nil {
					return localError(err)
				}
				if _, err := client.RecordShare(ipc.ShareRequest{ID: id, TxHash: result.TxHash, Handle: result.Profile.Handle}); err != nil {
					return errors.Join(fmt.Errorf("post %s is live but was not recorded", result.TxHash), err)
				}
				return ctx.emit(cmd, result, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Shared delivery #%d as @%s (tx %s)\n", id, result.Profile.Handle, result.TxHash)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Wallet account that owns the Lens profile")
	cmd.Flags().BoolVar(&again, "again", false, "Post even if the delivery was shared before")
	return cmd
}
