// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package postgres implements room.Store on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duetrooms/duet/internal/room"
	"github.com/duetrooms/duet/internal/store"
)

// Store implements room.Store. Each WithTx call is one database transaction.
type Store struct {
	pool store.Pool
}

var _ room.Store = (*Store)(nil)

// NewStore creates a Store over pool.
func NewStore(pool store.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx room.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("DB_TX_FAILED").With("operation", "begin").Wrap(err)
	}
	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // fn's error is the one worth reporting
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("DB_TX_FAILED").With("operation", "commit").Wrap(err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

// ConnectedRoom locks the user's row until the transaction ends.
func (t *pgTx) ConnectedRoom(ctx context.Context, userID ulid.ULID) (*int64, error) {
	var roomID *int64
	err := t.tx.QueryRow(ctx,
		`SELECT connected_room_id FROM users WHERE id = $1 FOR UPDATE`,
		userID.String(),
	).Scan(&roomID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("user_id", userID.String()).Wrap(room.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "select connected room").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return roomID, nil
}

func (t *pgTx) CreateRoom(ctx context.Context) (*room.Room, error) {
	var r room.Room
	err := t.tx.QueryRow(ctx,
		`INSERT INTO rooms DEFAULT VALUES RETURNING id, created_at`,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, oops.With("operation", "insert room").Wrap(err)
	}
	return &r, nil
}

func (t *pgTx) CreatePrivateRoom(ctx context.Context, pr *room.PrivateRoom) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO private_rooms (room_id, connection_key)
		VALUES ($1, $2)
		RETURNING created_at
	`, pr.RoomID, pr.ConnectionKey).Scan(&pr.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return oops.With("room_id", pr.RoomID).
				With("constraint", pgErr.ConstraintName).
				Wrap(room.ErrKeyCollision)
		case pgerrcode.ForeignKeyViolation:
			return oops.With("room_id", pr.RoomID).Wrap(room.ErrNotFound)
		}
	}
	if err != nil {
		return oops.With("operation", "insert private room").
			With("room_id", pr.RoomID).
			Wrap(err)
	}
	return nil
}

func (t *pgTx) PrivateRoomByKey(ctx context.Context, key string) (*room.PrivateRoom, error) {
	var pr room.PrivateRoom
	err := t.tx.QueryRow(ctx, `
		SELECT room_id, connection_key, created_at
		FROM private_rooms
		WHERE connection_key = $1
	`, key).Scan(&pr.RoomID, &pr.ConnectionKey, &pr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Wrap(room.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "select private room").Wrap(err)
	}
	return &pr, nil
}

// CountOccupants locks the room row first so concurrent joiners of the same
// room count one after another.
func (t *pgTx) CountOccupants(ctx context.Context, roomID int64) (int, error) {
	var locked int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.With("room_id", roomID).Wrap(room.ErrNotFound)
	}
	if err != nil {
		return 0, oops.With("operation", "lock room").With("room_id", roomID).Wrap(err)
	}

	var n int
	err = t.tx.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE connected_room_id = $1`, roomID,
	).Scan(&n)
	if err != nil {
		return 0, oops.With("operation", "count occupants").With("room_id", roomID).Wrap(err)
	}
	return n, nil
}

// Attach only writes while connected_room_id is still NULL.
func (t *pgTx) Attach(ctx context.Context, userID ulid.ULID, roomID int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE users
		SET connected_room_id = $2, updated_at = now()
		WHERE id = $1 AND connected_room_id IS NULL
	`, userID.String(), roomID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return oops.With("room_id", roomID).Wrap(room.ErrNotFound)
	}
	if err != nil {
		return oops.With("operation", "attach user").
			With("user_id", userID.String()).
			With("room_id", roomID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("user_id", userID.String()).Wrap(room.ErrAlreadyConnected)
	}
	return nil
}
