// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Registry creates rooms and resolves connection keys.
type Registry struct {
	store Store
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store) (*Registry, error) {
	if store == nil {
		return nil, oops.Code("ROOM_REGISTRY_INVALID").Errorf("store is required")
	}
	return &Registry{store: store}, nil
}

// CreateRoom allocates a new room.
func (r *Registry) CreateRoom(ctx context.Context) (*Room, error) {
	var created *Room
	err := r.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		created, err = createRoom(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreatePrivateRoom binds room to its default connection key.
func (r *Registry) CreatePrivateRoom(ctx context.Context, room *Room) (*PrivateRoom, error) {
	if room == nil {
		return nil, oops.Code("ROOM_CREATE_FAILED").Errorf("room is required")
	}
	var pr *PrivateRoom
	err := r.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		pr, err = createPrivateRoom(ctx, tx, room)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// ResolveByKey finds the private room whose key equals key exactly.
func (r *Registry) ResolveByKey(ctx context.Context, key string) (*PrivateRoom, error) {
	var pr *PrivateRoom
	err := r.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		pr, err = resolveByKey(ctx, tx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func createRoom(ctx context.Context, tx Tx) (*Room, error) {
	created, err := tx.CreateRoom(ctx)
	if err != nil {
		return nil, oops.Code("ROOM_CREATE_FAILED").
			With("operation", "create room").
			Wrap(err)
	}
	return created, nil
}

func createPrivateRoom(ctx context.Context, tx Tx, room *Room) (*PrivateRoom, error) {
	pr := &PrivateRoom{
		RoomID:        room.ID,
		ConnectionKey: DefaultConnectionKey(room.ID),
		CreatedAt:     room.CreatedAt,
	}
	if err := tx.CreatePrivateRoom(ctx, pr); err != nil {
		switch {
		case errors.Is(err, ErrKeyCollision):
			return nil, oops.Code(CodeKeyCollision).
				With("room_id", room.ID).
				Wrap(ErrKeyCollision)
		case errors.Is(err, ErrNotFound):
			return nil, oops.Code(CodeNotFound).
				With("room_id", room.ID).
				Wrap(ErrNotFound)
		}
		return nil, oops.Code("ROOM_CREATE_FAILED").
			With("operation", "create private room").
			With("room_id", room.ID).
			Wrap(err)
	}
	return pr, nil
}

func resolveByKey(ctx context.Context, tx Tx, key string) (*PrivateRoom, error) {
	if key == "" {
		return nil, oops.Code(CodeNotFound).Wrap(ErrNotFound)
	}
	pr, err := tx.PrivateRoomByKey(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeNotFound).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROOM_RESOLVE_FAILED").
			With("operation", "resolve connection key").
			Wrap(err)
	}
	return pr, nil
}
