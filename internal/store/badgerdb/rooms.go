// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package badgerdb

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duetrooms/duet/internal/room"
)

// RoomStore implements room.Store.
type RoomStore struct {
	db *DB
}

var _ room.Store = (*RoomStore)(nil)

// WithTx runs fn in one Badger read-write transaction. Room transactions do
// not overlap within a process. On a commit conflict with a user write the
// whole of fn runs again against fresh state.
func (s *RoomStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx room.Tx) error) error {
	return s.db.updateRooms(ctx, func(txn *badger.Txn) error {
		return fn(ctx, &roomTx{txn: txn})
	})
}

type roomTx struct {
	txn *badger.Txn
}

func (t *roomTx) user(userID ulid.ULID) (*userRecord, error) {
	var rec userRecord
	err := getJSON(t.txn, userIDKey(userID), &rec)
	if errors.Is(err, errMissing) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(room.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.With("user_id", userID.String()).Wrap(err)
	}
	return &rec, nil
}

func (t *roomTx) ConnectedRoom(_ context.Context, userID ulid.ULID) (*int64, error) {
	rec, err := t.user(userID)
	if err != nil {
		return nil, err
	}
	return rec.ConnectedRoomID, nil
}

func (t *roomTx) CreateRoom(_ context.Context) (*room.Room, error) {
	id, err := nextRoomID(t.txn)
	if err != nil {
		return nil, oops.With("operation", "next room id").Wrap(err)
	}
	rec := roomRecord{ID: id, CreatedAt: time.Now().UTC()}
	if err := setJSON(t.txn, roomKey(id), rec); err != nil {
		return nil, oops.With("room_id", id).Wrap(err)
	}
	return &room.Room{ID: rec.ID, CreatedAt: rec.CreatedAt}, nil
}

func (t *roomTx) CreatePrivateRoom(_ context.Context, pr *room.PrivateRoom) error {
	ok, err := exists(t.txn, roomKey(pr.RoomID))
	if err != nil {
		return err
	}
	if !ok {
		return oops.With("room_id", pr.RoomID).Wrap(room.ErrNotFound)
	}
	for _, key := range [][]byte{privateKeyKey(pr.ConnectionKey), privateRoomKey(pr.RoomID)} {
		taken, err := exists(t.txn, key)
		if err != nil {
			return err
		}
		if taken {
			return oops.With("room_id", pr.RoomID).Wrap(room.ErrKeyCollision)
		}
	}

	rec := privateRecord{RoomID: pr.RoomID, ConnectionKey: pr.ConnectionKey, CreatedAt: pr.CreatedAt}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := setJSON(t.txn, privateKeyKey(pr.ConnectionKey), rec); err != nil {
		return err
	}
	return t.txn.Set(privateRoomKey(pr.RoomID), []byte(pr.ConnectionKey))
}

func (t *roomTx) PrivateRoomByKey(_ context.Context, key string) (*room.PrivateRoom, error) {
	var rec privateRecord
	err := getJSON(t.txn, privateKeyKey(key), &rec)
	if errors.Is(err, errMissing) {
		return nil, oops.Wrap(room.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &room.PrivateRoom{
		RoomID:        rec.RoomID,
		ConnectionKey: rec.ConnectionKey,
		CreatedAt:     rec.CreatedAt,
	}, nil
}

func (t *roomTx) CountOccupants(_ context.Context, roomID int64) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = memberPrefix(roomID)

	it := t.txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n, nil
}

func (t *roomTx) Attach(_ context.Context, userID ulid.ULID, roomID int64) error {
	rec, err := t.user(userID)
	if err != nil {
		return err
	}
	if rec.ConnectedRoomID != nil {
		return oops.With("user_id", userID.String()).Wrap(room.ErrAlreadyConnected)
	}
	ok, err := exists(t.txn, roomKey(roomID))
	if err != nil {
		return err
	}
	if !ok {
		return oops.With("room_id", roomID).Wrap(room.ErrNotFound)
	}

	id := roomID
	rec.ConnectedRoomID = &id
	rec.UpdatedAt = time.Now().UTC()
	if err := setJSON(t.txn, userIDKey(userID), rec); err != nil {
		return err
	}
	return t.txn.Set(memberKey(roomID, userID), nil)
}
