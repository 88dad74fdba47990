// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/duetrooms/duet/internal/room")

// ConnectionManager attaches users to rooms. Operations for the same user are
// serialized in-process; the store's conditional write covers other processes.
type ConnectionManager struct {
	store        Store
	locks        *userLocks
	maxOccupants int
	logger       *slog.Logger
}

// ManagerOption configures a ConnectionManager.
type ManagerOption func(*ConnectionManager)

// WithMaxOccupants caps how many users a room accepts. Zero means no cap.
func WithMaxOccupants(n int) ManagerOption {
	return func(m *ConnectionManager) {
		if n > 0 {
			m.maxOccupants = n
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *ConnectionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewConnectionManager creates a ConnectionManager over store.
func NewConnectionManager(store Store, opts ...ManagerOption) (*ConnectionManager, error) {
	if store == nil {
		return nil, oops.Code("ROOM_MANAGER_INVALID").Errorf("store is required")
	}
	m := &ConnectionManager{
		store:  store,
		locks:  newUserLocks(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create makes a new private room and attaches the user to it. The returned
// key is what a second user passes to Connect.
func (m *ConnectionManager) Create(ctx context.Context, userID ulid.ULID) (Attachment, error) {
	ctx, span := tracer.Start(ctx, "room.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	unlock := m.locks.lock(userID)
	defer unlock()

	var att Attachment
	err := m.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireUnconnected(ctx, tx, userID); err != nil {
			return err
		}
		created, err := createRoom(ctx, tx)
		if err != nil {
			return err
		}
		pr, err := createPrivateRoom(ctx, tx, created)
		if err != nil {
			return err
		}
		if err := attach(ctx, tx, userID, created.ID); err != nil {
			return err
		}
		att = Attachment{RoomID: created.ID, ConnectKey: pr.ConnectionKey}
		return nil
	})
	if err != nil {
		return Attachment{}, err
	}

	span.SetAttributes(attribute.Int64("room_id", att.RoomID))
	m.logger.InfoContext(ctx, "private room created",
		"user_id", userID.String(), "room_id", att.RoomID)
	return att, nil
}

// Connect attaches the user to the private room holding key.
func (m *ConnectionManager) Connect(ctx context.Context, userID ulid.ULID, key string) (Attachment, error) {
	ctx, span := tracer.Start(ctx, "room.Connect")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	unlock := m.locks.lock(userID)
	defer unlock()

	var att Attachment
	err := m.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireUnconnected(ctx, tx, userID); err != nil {
			return err
		}
		pr, err := resolveByKey(ctx, tx, key)
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeInvalidKey).
				With("user_id", userID.String()).
				Wrap(ErrInvalidKey)
		}
		if err != nil {
			return err
		}
		if err := m.checkCapacity(ctx, tx, pr.RoomID); err != nil {
			return err
		}
		if err := attach(ctx, tx, userID, pr.RoomID); err != nil {
			return err
		}
		att = Attachment{RoomID: pr.RoomID, ConnectKey: pr.ConnectionKey}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			m.logger.InfoContext(ctx, "connect rejected",
				"user_id", userID.String(), "reason", "invalid key")
		}
		return Attachment{}, err
	}

	span.SetAttributes(attribute.Int64("room_id", att.RoomID))
	m.logger.InfoContext(ctx, "user connected to room",
		"user_id", userID.String(), "room_id", att.RoomID)
	return att, nil
}

// State reports whether the user is connected and to which room.
func (m *ConnectionManager) State(ctx context.Context, userID ulid.ULID) (State, error) {
	var state State
	err := m.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := connectedRoom(ctx, tx, userID)
		if err != nil {
			return err
		}
		state.RoomID = current
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return state, nil
}

func (m *ConnectionManager) checkCapacity(ctx context.Context, tx Tx, roomID int64) error {
	if m.maxOccupants == 0 {
		return nil
	}
	n, err := tx.CountOccupants(ctx, roomID)
	if err != nil {
		return oops.Code("ROOM_CONNECT_FAILED").
			With("operation", "count occupants").
			With("room_id", roomID).
			Wrap(err)
	}
	if n >= m.maxOccupants {
		return oops.Code(CodeRoomFull).
			With("room_id", roomID).
			With("occupants", n).
			Wrap(ErrRoomFull)
	}
	return nil
}

func connectedRoom(ctx context.Context, tx Tx, userID ulid.ULID) (*int64, error) {
	current, err := tx.ConnectedRoom(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, oops.Code(CodeUserNotFound).
			With("user_id", userID.String()).
			Wrap(ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROOM_STATE_FAILED").
			With("operation", "get connected room").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return current, nil
}

func requireUnconnected(ctx context.Context, tx Tx, userID ulid.ULID) error {
	current, err := connectedRoom(ctx, tx, userID)
	if err != nil {
		return err
	}
	if current != nil {
		return alreadyConnected(userID, *current)
	}
	return nil
}

func attach(ctx context.Context, tx Tx, userID ulid.ULID, roomID int64) error {
	err := tx.Attach(ctx, userID, roomID)
	if errors.Is(err, ErrAlreadyConnected) {
		return alreadyConnected(userID, roomID)
	}
	if err != nil {
		return oops.Code("ROOM_ATTACH_FAILED").
			With("user_id", userID.String()).
			With("room_id", roomID).
			Wrap(err)
	}
	return nil
}

func alreadyConnected(userID ulid.ULID, roomID int64) error {
	return oops.Code(CodeAlreadyConnected).
		With("user_id", userID.String()).
		With("room_id", roomID).
		Wrap(ErrAlreadyConnected)
}
