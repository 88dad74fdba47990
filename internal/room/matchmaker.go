// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Matchmaker pairs a user with a stranger's room.
type Matchmaker interface {
	Search(ctx context.Context, userID ulid.ULID) (Attachment, error)
}

// LiveSession carries the realtime exchange between a room's occupants.
type LiveSession interface {
	Open(ctx context.Context, userID ulid.ULID, roomID int64) error
}

// Unsupported implements Matchmaker and LiveSession by refusing every call.
type Unsupported struct{}

var (
	_ Matchmaker  = Unsupported{}
	_ LiveSession = Unsupported{}
)

// Search always fails with ErrNotSupported.
func (Unsupported) Search(_ context.Context, userID ulid.ULID) (Attachment, error) {
	return Attachment{}, oops.Code(CodeNotSupported).
		With("operation", "search").
		With("user_id", userID.String()).
		Wrap(ErrNotSupported)
}

// Open always fails with ErrNotSupported.
func (Unsupported) Open(_ context.Context, userID ulid.ULID, roomID int64) error {
	return oops.Code(CodeNotSupported).
		With("operation", "open session").
		With("user_id", userID.String()).
		With("room_id", roomID).
		Wrap(ErrNotSupported)
}
