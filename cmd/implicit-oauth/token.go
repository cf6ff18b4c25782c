package main

import (
	"fmt"

	"github.com/go-training/implicit-oauth/pkg/authorizer"
	"github.com/go-training/implicit-oauth/pkg/cookie"
	"github.com/go-training/implicit-oauth/pkg/logger"

	"github.com/spf13/cobra"
)

func newTokenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show the stored access token (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, vault, err := a.openVault()
			if err != nil {
				return err
			}
			defer a.closeStore(backend)

			token, ok, err := vault.Load(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no access token stored for client %q", a.cfg.OAuth.Client.ID)
			}
			fmt.Fprintln(cmd.OutOrStdout(), logger.Mask(token))
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, vault, err := a.openVault()
			if err != nil {
				return err
			}
			defer a.closeStore(backend)

			if err := vault.Clear(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("access token cleared", "namespace", vault.Namespace())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newURLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL without starting a login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := authorizer.New(a.cfg.OAuth,
				authorizer.WithCookieStorage(cookie.NewJar()),
				authorizer.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.AuthorizationURL().String())
			return nil
		},
	}
}
