// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/duetrooms/duet/internal/auth"
	authpg "github.com/duetrooms/duet/internal/auth/postgres"
	"github.com/duetrooms/duet/internal/config"
	"github.com/duetrooms/duet/internal/room"
	roompg "github.com/duetrooms/duet/internal/room/postgres"
	"github.com/duetrooms/duet/internal/store"
	"github.com/duetrooms/duet/internal/store/badgerdb"
	"github.com/duetrooms/duet/internal/xdg"
)

// Backend is an opened storage backend.
type Backend struct {
	Users auth.UserRepository
	Rooms room.Store
	Ping  func(ctx context.Context) error
	Close func()
}

// openBackend opens the store selected by cfg. For postgres it waits for the
// database, then applies migrations when auto_migrate is set.
func openBackend(ctx context.Context, cfg config.StoreConfig, deps *ServeDeps, logger *slog.Logger) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		if !cfg.BadgerInMemory {
			if err := xdg.EnsureDir(cfg.BadgerDir); err != nil {
				return nil, err
			}
		}
		db, err := badgerdb.Open(badgerdb.Options{
			Dir:      cfg.BadgerDir,
			InMemory: cfg.BadgerInMemory,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("opened badger store", "dir", cfg.BadgerDir, "in_memory", cfg.BadgerInMemory)
		return &Backend{
			Users: db.Users(),
			Rooms: db.Rooms(),
			Ping:  db.Ping,
			Close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("error closing badger store", "error", err)
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{
			Attempts:   cfg.ConnectAttempts,
			Backoff:    500 * time.Millisecond,
			MaxBackoff: 5 * time.Second,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to database")
		if cfg.AutoMigrate {
			if err := autoMigrate(cfg.DatabaseURL, deps.MigratorFactory, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Backend{
			Users: authpg.NewUserRepository(pool),
			Rooms: roompg.NewStore(pool),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil
	}
	return nil, oops.Code("CONFIG_INVALID").With("key", "store.driver").Errorf("unknown store driver %q", cfg.Driver)
}

// AutoMigrator is the part of store.Migrator used at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

func autoMigrate(databaseURL string, factory func(string) (AutoMigrator, error), logger *slog.Logger) error {
	if factory == nil {
		factory = func(url string) (AutoMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}
