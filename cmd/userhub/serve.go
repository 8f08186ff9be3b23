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

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/internal/config"
	"github.com/userhub/userhub/internal/directory/postgres"
	"github.com/userhub/userhub/internal/httpapi"
	"github.com/userhub/userhub/internal/logging"
	"github.com/userhub/userhub/internal/notify"
	"github.com/userhub/userhub/internal/observability"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server handling login, token refresh, logout,
password recovery, and user account routes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	registerServiceFlags(cmd)
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("api", version, cfg.Env, cfg.LogFormat)
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

	codec, err := auth.NewTokenCodec(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		return err
	}

	directory := postgres.NewUserDirectory(pool)
	queue := notify.NewQueue(nc)
	service, err := auth.NewService(
		directory,
		codec,
		auth.NewArgon2idHasher(),
		auth.NewLengthPolicy(cfg.MinPasswordLength),
		queue,
		logger,
	)
	if err != nil {
		return err
	}

	// Observability server, when enabled, also owns the metrics registry.
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	authorizer := httpapi.NewAuthorizer(service, queue, logger)
	handlers := httpapi.NewHandlers(service, metrics, logger)
	apiServer := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(handlers, authorizer), logger)

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	logger.Info("api ready",
		"http_addr", apiServer.Addr(),
		"env", cfg.Env,
	)

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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	// Let in-flight last-visit stamps finish before the NATS drain.
	authorizer.Wait()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
