package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipto/internal/chain"
	"clipto/internal/wallet"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var connectorFlag string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Connect a wallet and remember the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if connectorFlag == "" {
				connectorFlag = cfg.Wallet.Connector
			}
			connector, err := wallet.ParseConnector(connectorFlag)
			if err != nil {
				return err
			}
			logger := ctx.localLogger()
			session := wallet.NewSession(cfg, chain.New(cfg, chain.WithLogger(logger)), logger)
			state, err := session.Activate(cmd.Context(), connector)
			if err != nil {
				return localError(err)
			}
			return ctx.emit(cmd, state, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s via %s (chain %d)\n", state.Account, state.Connector, state.ChainID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&connectorFlag, "connector", "", "Wallet connector (metamask or walletconnect)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the connected wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := wallet.NewSession(cfg, nil, ctx.localLogger()).Deactivate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
