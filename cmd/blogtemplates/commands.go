package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/blogtemplates/internal/handler"
	"github.com/deppfellow/blogtemplates/internal/router"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "blogtemplates",
		Short:        "Blog templates store and admin API",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newInstallCmd(),
		newUninstallCmd(),
		newUpgradeCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	var skipInstall bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Install the schema if needed and serve the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !skipInstall {
				if err := a.services.Templates.Install(ctx); err != nil {
					a.shutdown()
					return fmt.Errorf("install failed: %w", err)
				}
			}

			handlers := handler.NewHandlers(a.server, a.services)
			a.server.SetupHTTPServer(router.NewRouter(a.server, handlers))

			serveErr := make(chan error, 1)
			go func() {
				if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					a.log.Error().Err(err).Msg("server stopped")
					a.shutdown()
					return err
				}
			case <-ctx.Done():
			}

			a.shutdown()
			a.log.Info().Msg("server exited properly")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "do not create or migrate the store tables on start")
	return cmd
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create or migrate the store tables and seed the default category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.services.Templates.Install(ctx)
			})
		},
	}
}

func newUninstallCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Drop every store table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("uninstall drops all templates and categories; pass --yes to confirm")
			}
			return runOnce(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.services.Templates.Uninstall(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping the tables")
	return cmd
}

func newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Rebuild categories: one default category holding every template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.services.Templates.Upgrade(ctx)
			})
		},
	}
}

// runOnce builds the app, runs fn and tears the app down again.
func runOnce(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("shutdown failed")
	}
}
