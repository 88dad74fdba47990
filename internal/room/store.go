// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Store persists rooms and the users' connected-room references.
type Store interface {
	// WithTx runs fn inside one transaction. If fn returns an error, none of
	// its writes are kept and the error is returned unchanged.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available inside a Store transaction.
type Tx interface {
	// ConnectedRoom returns the user's connected room, or nil when unconnected.
	// Implementations lock the user's record for the rest of the transaction
	// where the engine supports it. Returns ErrUserNotFound if the user does not exist.
	ConnectedRoom(ctx context.Context, userID ulid.ULID) (*int64, error)

	// CreateRoom allocates a room with a fresh, never reused ID.
	CreateRoom(ctx context.Context) (*Room, error)

	// CreatePrivateRoom stores pr. Returns ErrKeyCollision if the key or the
	// room is already bound, and ErrNotFound if the room does not exist.
	CreatePrivateRoom(ctx context.Context, pr *PrivateRoom) error

	// PrivateRoomByKey returns the private room holding key exactly.
	// Returns ErrNotFound if there is none.
	PrivateRoomByKey(ctx context.Context, key string) (*PrivateRoom, error)

	// CountOccupants returns how many users are connected to the room.
	CountOccupants(ctx context.Context, roomID int64) (int, error)

	// Attach sets the user's connected room. It only succeeds while the
	// reference is still unset and returns ErrAlreadyConnected otherwise.
	Attach(ctx context.Context, userID ulid.ULID, roomID int64) error
}
