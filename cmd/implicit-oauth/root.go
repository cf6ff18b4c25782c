package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-training/implicit-oauth/pkg/config"
	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/go-training/implicit-oauth/pkg/logger"
	"github.com/go-training/implicit-oauth/pkg/store"

	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	clientID    string
	redirectURL string
	storeType   string
	logLevel    string
	timeout     time.Duration
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "implicit-oauth",
		Short:        "Obtain and manage an OAuth 2.0 access token using the implicit grant",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.clientID, "client-id", "", "OAuth client id (env IMPLICIT_OAUTH_CLIENT_ID)")
	flags.StringVar(&a.redirectURL, "redirect-url", "", "registered redirect URL (env IMPLICIT_OAUTH_CLIENT_REDIRECT_URL)")
	flags.StringVar(&a.storeType, "store", "", "token store: memory, redis, file or sqlite (env IMPLICIT_OAUTH_STORE_TYPE)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN or ERROR (env IMPLICIT_OAUTH_LOG_LEVEL)")
	flags.DurationVar(&a.timeout, "timeout", 0, "how long to wait for the authorization callback (env IMPLICIT_OAUTH_CALLBACK_TIMEOUT)")

	root.AddCommand(
		newLoginCommand(a),
		newTokenCommand(a),
		newLogoutCommand(a),
		newURLCommand(a),
		newMCPCommand(a),
	)
	return root
}

// load reads the environment, applies explicitly set flags on top and
// installs the logger. Logs go to stderr so stdout stays usable for output.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("client-id") {
		cfg.OAuth.Client.ID = a.clientID
	}
	if flags.Changed("redirect-url") {
		cfg.OAuth.Client.RedirectURL = a.redirectURL
	}
	if flags.Changed("store") {
		cfg.Store.Type = a.storeType
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("timeout") {
		cfg.CallbackTimeout = a.timeout
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

// openVault creates the configured token store and binds it to the client id.
// Callers must release the returned store with store.Close.
func (a *app) openVault() (core.TokenStore, *store.Vault, error) {
	sc, err := a.cfg.StoreFactoryConfig()
	if err != nil {
		return nil, nil, err
	}
	backend, err := store.NewStore(sc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", sc.Type, err)
	}
	a.logger.Debug("token store opened", "type", sc.Type.String(), "sealed", len(sc.EncryptionKey) > 0)
	return backend, store.NewVault(backend, a.cfg.OAuth.Client.ID), nil
}

func (a *app) closeStore(backend core.TokenStore) {
	if err := store.Close(backend); err != nil {
		a.logger.Warn("failed to close token store", "error", err)
	}
}
