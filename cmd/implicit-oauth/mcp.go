package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-training/implicit-oauth/pkg/operation"

	"github.com/appleboy/graceful"
	ginslog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newMCPCommand(a *app) *cobra.Command {
	var addr string
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the access token tools over the Model Context Protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch transport {
			case "stdio":
				return a.serveStdio()
			case "http":
				return a.serveHTTP(cmd.Context(), addr)
			default:
				return fmt.Errorf("invalid transport type %q", transport)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "transport type (stdio or http)")
	return cmd
}

func (a *app) serveStdio() error {
	backend, vault, err := a.openVault()
	if err != nil {
		return err
	}
	defer a.closeStore(backend)

	mcpServer := operation.NewMCPServer(version, a.cfg.OAuth, vault)
	if err := mcpServer.ServeStdio(); err != nil {
		a.logger.Error("Server error", "err", err)
		return err
	}
	return nil
}

func (a *app) serveHTTP(ctx context.Context, addr string) error {
	backend, vault, err := a.openVault()
	if err != nil {
		return err
	}

	mcpServer := operation.NewMCPServer(version, a.cfg.OAuth, vault)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), ginslog.SetLogger(
		ginslog.WithLogger(func(*gin.Context, *slog.Logger) *slog.Logger {
			return a.logger
		}),
	))
	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
		router.Handle(method, "/mcp", gin.WrapH(mcpServer.ServeHTTP()))
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serveErr error
	m := graceful.NewManager(graceful.WithContext(ctx))
	m.AddRunningJob(func(context.Context) error {
		a.logger.Info("MCP HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Server error", "err", err)
			serveErr = err
			cancel()
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	m.AddShutdownJob(func() error {
		a.closeStore(backend)
		return nil
	})

	<-m.Done()
	if serveErr != nil {
		return serveErr
	}
	a.logger.Info("Server shutdown gracefully")
	return nil
}
