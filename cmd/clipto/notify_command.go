package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipto/internal/ipc"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "notify", Short: "Notification utilities"}
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Ask the daemon to publish a test notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if resp == nil {
					resp = &ipc.TestNotificationResponse{}
				}
				message := resp.Message
				if message == "" && err == nil {
					message = map[bool]string{true: "Test notification sent", false: "Notification not sent"}[resp.Sent]
				}
				if message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), message)
				}
				return err
			})
		},
	})
	return cmd
}
