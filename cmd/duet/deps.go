// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/duetrooms/duet/internal/config"
	"github.com/duetrooms/duet/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendOpener opens the configured store.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg config.StoreConfig, deps *ServeDeps, logger *slog.Logger) (*Backend, error)

	// MigratorFactory creates the migrator used by auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// OnReady is called with the bound API and metrics addresses once both
	// listeners accept connections. The metrics address is "" when disabled.
	OnReady func(apiAddr, metricsAddr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
