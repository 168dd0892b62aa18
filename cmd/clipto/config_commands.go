package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"clipto/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect and create configuration"}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx), newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var pathFlag string
	var overwrite bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(pathFlag)
			if err != nil {
				return err
			}
			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n"+
				"Set [backend] token (or CLIPTO_BACKEND_TOKEN) and [wallet] rpc_url before starting the daemon.\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flag string) (string, error) {
	if flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

// loadForInspection reads the configuration without the root hook so that
// an invalid file is reported by the command instead of aborting first.
func loadForInspection(ctx *commandContext) (*config.Config, string, bool, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", false, err
	}
	cfg, path, exists, err := config.Load(ctx.configPath())
	if err != nil {
		return nil, path, exists, fmt.Errorf("load config: %w", err)
	}
	return cfg, path, exists, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check the configuration file and create its directories",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, exists, err := loadForInspection(ctx)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			for _, line := range [][2]string{
				{"State directory", cfg.Paths.StateDir},
				{"Backend token set", yesNo(cfg.Backend.Token != "")},
				{"Wallet RPC", valueOr(cfg.Wallet.RPCURL, "not set")},
				{"Notifications enabled", yesNo(cfg.Notifications.NtfyTopic != "")},
			} {
				fmt.Fprintf(out, "%s: %s\n", line[0], line[1])
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration with secrets masked",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := loadForInspection(ctx)
			if err != nil {
				return err
			}
			masked := *cfg
			for _, secret := range []*string{&masked.Backend.Token, &masked.Storage.AccessKey, &masked.Storage.SecretKey} {
				if *secret != "" {
					*secret = "********"
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, masked)
			}
			data, err := toml.Marshal(masked)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
