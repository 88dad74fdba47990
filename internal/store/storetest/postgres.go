// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

//go:build integration

// Package storetest starts disposable PostgreSQL databases for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duetrooms/duet/internal/store"
)

// Database is a migrated PostgreSQL instance running in a container.
type Database struct {
	URL       string
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// StartPostgres runs a container, applies all migrations, and opens a pool.
func StartPostgres(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("duet_test"),
		postgres.WithUsername("duet"),
		postgres.WithPassword("duet"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start container").Wrap(err)
	}
	db := &Database{container: container}

	db.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		db.Terminate(ctx)
		return nil, oops.With("operation", "connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(db.URL)
	if err != nil {
		db.Terminate(ctx)
		return nil, err
	}
	defer migrator.Close() //nolint:errcheck // test setup
	if err := migrator.Up(); err != nil {
		db.Terminate(ctx)
		return nil, err
	}

	db.Pool, err = store.Connect(ctx, db.URL, store.ConnectOptions{Attempts: 5})
	if err != nil {
		db.Terminate(ctx)
		return nil, err
	}
	return db, nil
}

// Reset empties every table so specs start from a clean schema.
func (d *Database) Reset(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `TRUNCATE users, private_rooms, rooms RESTART IDENTITY CASCADE`)
	return err
}

// Terminate closes the pool and removes the container.
func (d *Database) Terminate(ctx context.Context) {
	if d.Pool != nil {
		d.Pool.Close()
	}
	_ = d.container.Terminate(ctx) //nolint:errcheck // best-effort cleanup
}
