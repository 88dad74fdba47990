// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/duetrooms/duet/internal/auth"
	"github.com/duetrooms/duet/internal/config"
	"github.com/duetrooms/duet/internal/httpapi"
	"github.com/duetrooms/duet/internal/logging"
	"github.com/duetrooms/duet/internal/observability"
	"github.com/duetrooms/duet/internal/room"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API together with the metrics and health listener.
Settings come from defaults, the config file, DUET_* environment variables
and flags, in increasing precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the server until a signal arrives, ctx is cancelled,
// or a listener fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendOpener == nil {
		deps.BackendOpener = openBackend
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	logger, err := logging.SetDefault(logging.Options{
		Service: "duet",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	logger.Info("starting duet",
		"http_addr", cfg.HTTP.Addr,
		"store_driver", cfg.Store.Driver,
		"max_occupants", cfg.Rooms.MaxOccupants,
	)

	backend, err := deps.BackendOpener(ctx, cfg.Store, deps, logger)
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
	}
	defer backend.Close()

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), backend.Users)
	if err != nil {
		return err
	}
	accounts, err := auth.NewAuthServiceWithLogger(backend.Users, auth.NewArgon2idHasher(), tokens, logger)
	if err != nil {
		return err
	}
	manager, err := room.NewConnectionManager(backend.Rooms,
		room.WithMaxOccupants(cfg.Rooms.MaxOccupants),
		room.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			if !ready.Load() {
				return false
			}
			pingCtx, pingCancel := context.WithTimeout(ctx, time.Second)
			defer pingCancel()
			return backend.Ping(pingCtx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		metrics = obsServer.Metrics()
	}

	router, err := httpapi.NewRouter(httpapi.Deps{
		Accounts:       accounts,
		Tokens:         tokens,
		Rooms:          manager,
		Metrics:        metrics,
		Logger:         logger,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}

	apiServer := httpapi.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ReadHeaderTimeout, logger)
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api", logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	metricsAddr := ""
	if obsServer != nil {
		metricsAddr = obsServer.Addr()
	}
	cmd.Println("Duet server started")
	logger.Info("duet ready", "http_addr", apiServer.Addr(), "metrics_addr", metricsAddr)
	if deps.OnReady != nil {
		deps.OnReady(apiServer.Addr(), metricsAddr)
	}

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(server ObservabilityServer, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
