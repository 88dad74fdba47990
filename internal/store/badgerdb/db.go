// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package badgerdb stores users and rooms in an embedded Badger database.
//
// Every write is a single serializable Badger transaction. Room transactions
// are additionally serialized within the process, since occupancy counts
// range over keys Badger cannot track for conflicts. A transaction that
// loses a race with a concurrent writer is re-run from the start, so
// uniqueness and conditional checks always see committed state.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/duetrooms/duet/internal/store"
)

const (
	conflictRetries = 16
	conflictBackoff = 2 * time.Millisecond
	conflictCeiling = 100 * time.Millisecond
	conflictJitter  = 50
)

// Options configures Open.
type Options struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   *slog.Logger
}

// DB is an open Badger database.
type DB struct {
	db     *badger.DB
	logger *slog.Logger
	roomMu sync.Mutex
}

// Open opens or creates the database described by opts.
func Open(opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.InMemory && opts.Dir == "" {
		return nil, oops.Code("STORE_OPEN_FAILED").Errorf("badger directory is required")
	}

	bopts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithLogger(slogAdapter{logger: logger.With("component", "badger")})
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").
			With("dir", opts.Dir).
			With("in_memory", opts.InMemory).
			Wrap(err)
	}
	return &DB{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Ping reports whether the database still accepts reads.
func (d *DB) Ping(_ context.Context) error {
	if d.db.IsClosed() {
		return oops.Code("STORE_CLOSED").Errorf("badger database is closed")
	}
	return nil
}

// Users returns the user repository backed by this database.
func (d *DB) Users() *UserRepository {
	return &UserRepository{db: d}
}

// Rooms returns the room store backed by this database.
func (d *DB) Rooms() *RoomStore {
	return &RoomStore{db: d}
}

func conflictBackoffPolicy() retry.Backoff {
	b := retry.NewExponential(conflictBackoff)
	b = retry.WithCappedDuration(conflictCeiling, b)
	b = retry.WithJitterPercent(conflictJitter, b)
	return retry.WithMaxRetries(conflictRetries, b)
}

// update runs fn in a read-write transaction, re-running it on conflicts.
// Errors returned by fn come back unchanged; running out of attempts yields
// store.ErrConflict.
func (d *DB) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	attempts := 0
	err := retry.Do(ctx, conflictBackoffPolicy(), func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++
		err := d.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			d.logger.DebugContext(ctx, "transaction conflict, retrying", "attempt", attempts)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, badger.ErrConflict) {
		return oops.Code(store.CodeConflict).
			With("attempts", attempts).
			Wrap(errors.Join(store.ErrConflict, err))
	}
	return err
}

// updateRooms is update with room transactions run one at a time.
func (d *DB) updateRooms(ctx context.Context, fn func(txn *badger.Txn) error) error {
	d.roomMu.Lock()
	defer d.roomMu.Unlock()
	return d.update(ctx, fn)
}

func (d *DB) view(fn func(txn *badger.Txn) error) error {
	return d.db.View(fn)
}

// slogAdapter routes Badger's internal logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(trim(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(trim(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(trim(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(trim(fmt.Sprintf(format, args...)))
}

func trim(s string) string {
	return strings.TrimRight(s, "\n")
}
