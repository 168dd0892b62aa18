package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/config"
	"clipto/internal/profile"
	"clipto/internal/wallet"
)

type profileFlags struct {
	name         string
	bio          string
	picture      string
	deliveryDays string
	price        string
	tweet        string
	demos        []string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.bio, "bio", "", "Short bio")
	cmd.Flags().StringVar(&f.picture, "picture", "", "Profile picture URL")
	cmd.Flags().StringVar(&f.deliveryDays, "delivery-days", "", "Days to deliver a booking")
	cmd.Flags().StringVar(&f.price, "price", "", "Booking price")
	cmd.Flags().StringVar(&f.tweet, "tweet", "", "Tweet URL verifying the account")
	cmd.Flags().StringArrayVar(&f.demos, "demo", nil, "Demo video URL (up to 3)")
}

// apply copies the flags the user set onto form.
func (f *profileFlags) apply(cmd *cobra.Command, form *profile.Form) error {
	set := func(name string, dst *string, value string) {
		if cmd.Flags().Changed(name) {
			*dst = strings.TrimSpace(value)
		}
	}
	set("name", &form.UserName, f.name)
	set("bio", &form.Bio, f.bio)
	set("picture", &form.ProfilePicture, f.picture)
	set("delivery-days", &form.DeliveryTime, f.deliveryDays)
	set("price", &form.Price, f.price)
	set("tweet", &form.TweetURL, f.tweet)
	if cmd.Flags().Changed("demo") {
		if len(f.demos) > len(form.Demos) {
			return fmt.Errorf("at most %d demo links are allowed", len(form.Demos))
		}
		form.Demos = [3]string{}
		copy(form.Demos[:], f.demos)
	}
	return nil
}

type profileEnv struct {
	service *profile.Service
	account string
}

func newProfileEnv(cfg *config.Config, logger *slog.Logger) (profileEnv, error) {
	rpc := chain.New(cfg, chain.WithLogger(logger))
	session := wallet.NewSession(cfg, rpc, logger)
	account, err := session.Account()
	if err != nil {
		return profileEnv{}, localError(err)
	}
	api := backend.New(cfg, backend.WithLogger(logger))
	return profileEnv{
		service: profile.NewService(cfg, api, rpc, session, logger),
		account: account,
	}, nil
}

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your creator profile",
	}
	profileCmd.AddCommand(newProfileShowCommand(ctx), newProfileCreateCommand(ctx), newProfileUpdateCommand(ctx))
	return profileCmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [address]",
		Short: "Show a creator profile (defaults to your wallet)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			env, err := newProfileEnv(cfg, ctx.localLogger())
			if err != nil {
				return err
			}
			address := env.account
			if len(args) == 1 {
				address = args[0]
			}
			user, ok, err := env.service.Lookup(cmd.Context(), address)
			if err != nil {
				return localError(err)
			}
			if !ok {
				return fmt.Errorf("no creator profile for %s; create one with `clipto profile create`", address)
			}
			return ctx.emit(cmd, user, func() error {
				renderProfile(cmd, user)
				return nil
			})
		},
	}
}

func newProfileCreateCommand(ctx *commandContext) *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register as a creator and publish your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			env, err := newProfileEnv(cfg, ctx.localLogger())
			if err != nil {
				return err
			}
			form := profile.Form{Address: env.account}
			if err := flags.apply(cmd, &form); err != nil {
				return err
			}
			if err := profile.Validate(form, true); err != nil {
				return localError(err)
			}
			if !ctx.jsonOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), "Registering creator; approve the transaction and signature in your wallet")
			}
			user, err := env.service.Create(cmd.Context(), form)
			if err != nil {
				return localError(err)
			}
			return ctx.emit(cmd, user, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Profile created for %s\n", user.Address)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfileUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit your creator profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			env, err := newProfileEnv(cfg, ctx.localLogger())
			if err != nil {
				return err
			}
			current, ok, err := env.service.Lookup(cmd.Context(), env.account)
			if err != nil {
				return localError(err)
			}
			if !ok {
				return fmt.Errorf("no creator profile for %s; create one with `clipto profile create`", env.account)
			}
			form := profile.FormFromUser(current)
			if err := flags.apply(cmd, &form); err != nil {
				return err
			}
			user, err := env.service.Update(cmd.Context(), form)
			if err != nil {
				return localError(err)
			}
			return ctx.emit(cmd, user, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Profile updated for %s\n", user.Address)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func renderProfile(cmd *cobra.Command, user backend.User) {
	out := cmd.OutOrStdout()
	for _, line := range renderSectionHeader(user.UserName, shouldColorize(out)) {
		fmt.Fprintln(out, line)
	}
	field := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, label+":", value)
		}
	}
	field("Address", user.Address)
	field("Bio", user.Bio)
	field("Picture", user.ProfilePicture)
	if user.DeliveryTime > 0 {
		field("Delivery", strconv.Itoa(user.DeliveryTime)+" days")
	}
	if user.Price > 0 {
		field("Price", strconv.FormatFloat(user.Price, 'f', -1, 64))
	}
	field("Twitter", user.TwitterHandle)
	for i, demo := range user.Demos {
		field(fmt.Sprintf("Demo %d", i+1), demo)
	}
}
