// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/config"
	"github.com/passgate/passgate/internal/logging"
	"github.com/passgate/passgate/internal/observability"
	"github.com/passgate/passgate/internal/web"
	"github.com/passgate/passgate/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Long: `Start the HTTP server exposing registration, login, session and
password reset endpoints, backed by PostgreSQL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, nil)
		},
	}

	flags := cmd.Flags()
	flags.String("http-addr", config.DefaultHTTPAddr, "API listen address")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("database-url", "", "PostgreSQL connection string")
	flags.String("log-format", config.DefaultLogFormat, "log format (json or text)")

	return cmd
}

// runServe starts the service with injectable dependencies. If deps is
// nil, default implementations are used.
func runServe(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.UserStoreFactory == nil {
		deps.UserStoreFactory = defaultUserStore
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("passgate", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	users, release, err := deps.UserStoreFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("SERVE_STORE_FAILED").With("operation", "open user store").Wrap(err)
	}
	defer release()

	logger.Info("connected to database")

	svc, err := auth.NewServiceWithLogger(users, auth.NewArgon2idHasher(), auth.NewRandomTokenGenerator(), logger)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		// Ready once we reach this point: the pool answered its ping.
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool { return true })
		metrics = obsServer.Metrics()

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_OBSERVABILITY_FAILED").With("addr", cfg.MetricsAddr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	api := web.NewServer(svc, metrics, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	apiErrChan := make(chan error, 1)
	go func() {
		apiErrChan <- api.Start(cfg.HTTPAddr)
	}()

	cmd.Println("Server started")
	logger.Info("passgate ready", "http_addr", cfg.HTTPAddr)

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-apiErrChan:
		if err != nil {
			serveErr = oops.Code("SERVE_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the run context when a background server
// reports a failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			errutil.LogError(slog.Default(), name+" server failed", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
