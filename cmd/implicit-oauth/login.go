package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-training/implicit-oauth/pkg/authorizer"
	"github.com/go-training/implicit-oauth/pkg/logger"
	"github.com/go-training/implicit-oauth/pkg/loopback"

	"github.com/spf13/cobra"
)

func newLoginCommand(a *app) *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize the client in a browser and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.login(cmd, noBrowser)
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorization URL instead of opening a browser")
	return cmd
}

func (a *app) login(cmd *cobra.Command, noBrowser bool) error {
	ctx := cmd.Context()

	backend, vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer a.closeStore(backend)

	auth, err := authorizer.New(a.cfg.OAuth,
		authorizer.WithContext(ctx),
		authorizer.WithVault(vault),
		authorizer.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	log := a.logger.With("attempt_id", auth.AttemptID())

	var opts []loopback.Option
	opts = append(opts, loopback.WithLogger(log))
	if a.cfg.ListenAddr != "" {
		opts = append(opts, loopback.WithAddr(a.cfg.ListenAddr))
	}
	srv, err := loopback.New(auth.RedirectURL(), auth, opts...)
	if err != nil {
		return err
	}

	srvCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	srvErr := make(chan error, 1)
	go func() {
		err := srv.Run(srvCtx)
		if err != nil {
			auth.UserDidCancel()
		}
		srvErr <- err
	}()

	authURL := auth.AuthorizationURL().String()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Open the following URL to authorize %s:\n\n  %s\n\n", a.cfg.OAuth.Client.ID, authURL)
	fmt.Fprintf(out, "To abort, open %s\n", srv.CancelURL())
	if !noBrowser {
		openBrowser(authURL)
	}

	waitCtx := ctx
	if a.cfg.CallbackTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.cfg.CallbackTimeout)
		defer cancel()
	}
	token, err := auth.Wait(waitCtx)

	stopServer()
	if runErr := <-srvErr; runErr != nil {
		return runErr
	}
	if err != nil {
		if errors.Is(err, authorizer.ErrUserCancelled) && waitCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("no authorization callback within %s: %w", a.cfg.CallbackTimeout, err)
		}
		return err
	}

	log.Info("login finished")
	fmt.Fprintf(out, "Logged in. Access token %s saved.\n", logger.Mask(token))
	return nil
}
