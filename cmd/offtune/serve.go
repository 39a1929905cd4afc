package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/offtune/internal/app"
)

var errAlreadyRunning = errors.New("offtune is already running on this database")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download engine and the control API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		lock := flock.New(cfg.EngineLockPath())
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", lock.Path(), err)
		}
		if !locked {
			return errAlreadyRunning
		}
		defer func() { _ = lock.Unlock() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mock, _ := cmd.Flags().GetBool("mock-engine")
		application, err := app.NewApplication(ctx, app.Config{Env: *cfg, UseMockEngine: mock})
		if err != nil {
			return err
		}
		defer func() {
			if err := application.Shutdown(); err != nil {
				application.Logger().Warn("shutdown failed", slog.Any("error", err))
			}
		}()

		if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("mock-engine", false, "Use an in-memory engine that never transfers anything")
}
