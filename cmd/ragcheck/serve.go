package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/notebooklab/ragcheck/internal/config"
	"github.com/notebooklab/ragcheck/internal/emulator"
	"github.com/notebooklab/ragcheck/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local emulation of the document service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port != 0 {
				cfg.Emulator.Port = port
			}

			log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			srv, err := emulator.NewServer(&cfg.Emulator, log)
			if err != nil {
				return fmt.Errorf("failed to build emulator: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("starting emulator",
				zap.Int("port", cfg.Emulator.Port),
				zap.String("progression", cfg.Emulator.ProgressionSchedule),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")

	return cmd
}
