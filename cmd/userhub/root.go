package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/userhub/userhub/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Userhub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userhub",
		Short: "Userhub - authentication and session-token service",
		Long: `Userhub issues and verifies session tokens, manages password
recovery, and serves user account operations over HTTP.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCreateUserCmd())

	return cmd
}

// Default values for service flags.
const (
	defaultHTTPAddr        = ":8080"
	defaultMetricsAddr     = "127.0.0.1:9100"
	defaultLogFormat       = "json"
	defaultAccessTTLMins   = 5
	defaultRefreshTTLHours = 720
	defaultMinPasswordLen  = 8
)

// registerServiceFlags declares the flags shared by the serve and
// worker commands. Secrets default from the environment so they stay
// out of process listings.
func registerServiceFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("env", "development", "deployment environment name")
	flags.String("log-format", defaultLogFormat, "log format (json or text)")
	flags.String("http-addr", defaultHTTPAddr, "API listen address")
	flags.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL (default: DATABASE_URL env)")
	flags.String("nats-url", defaultNATSURL(), "NATS server URL (default: NATS_URL env)")
	flags.String("jwt-secret", os.Getenv("JWT_SECRET"), "token signing secret (default: JWT_SECRET env)")
	flags.Int("access-token-ttl-minutes", defaultAccessTTLMins, "access token lifetime in minutes")
	flags.Int("refresh-token-ttl-hours", defaultRefreshTTLHours, "refresh token lifetime in hours")
	flags.Int("min-password-length", defaultMinPasswordLen, "minimum accepted password length")
}

func defaultNATSURL() string {
	if url := os.Getenv("NATS_URL"); url != "" {
		return url
	}
	return nats.DefaultURL
}

// loadConfig merges the optional config file with the command's flags
// and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connectPool opens a pgx pool and verifies connectivity, retrying with
// backoff so a restarting database does not kill the process at boot.
func connectPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			slog.Warn("database not reachable yet, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping database").Wrap(err)
	}
	return pool, nil
}

// connectNATS establishes the NATS connection with the same startup
// backoff as the database.
func connectNATS(ctx context.Context, url string) (*nats.Conn, error) {
	var nc *nats.Conn
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		var connErr error
		nc, connErr = nats.Connect(url, nats.Name("userhub"))
		if connErr != nil {
			slog.Warn("nats not reachable yet, retrying", "error", connErr)
			return retry.RetryableError(connErr)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("NATS_CONNECT_FAILED").With("url", url).Wrap(err)
	}
	return nc, nil
}

// drainNATS flushes and closes the connection during shutdown.
func drainNATS(nc *nats.Conn) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		slog.Warn("failed to drain nats connection", "error", err)
	}
}

// monitorServerErrors watches a server's error channel and cancels the
// context on failure so the whole process shuts down together.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
