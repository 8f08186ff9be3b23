// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/userhub/userhub/internal/config"
	"github.com/userhub/userhub/internal/directory/postgres"
	"github.com/userhub/userhub/internal/logging"
	"github.com/userhub/userhub/internal/notify"
	"github.com/userhub/userhub/internal/observability"
)

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the background worker",
		Long: `Start the background worker which consumes queued jobs:
transactional email delivery and last-visit stamps.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
	registerServiceFlags(cmd)
	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("worker", version, cfg.Env, cfg.LogFormat)
	logger := slog.Default()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := connectPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	nc, err := connectNATS(ctx, cfg.NATSURL)
	if err != nil {
		return err
	}
	defer drainNATS(nc)
	logger.Info("connected to nats", "url", cfg.NATSURL)

	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return nc.IsConnected() })
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	directory := postgres.NewUserDirectory(pool)
	mailer := notify.NewLogMailer(logger)
	worker, err := notify.NewWorker(nc, directory, mailer, metrics, logger)
	if err != nil {
		return err
	}
	if err := worker.Start(); err != nil {
		return err
	}

	logger.Info("worker ready", "env", cfg.Env)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	worker.Stop()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
