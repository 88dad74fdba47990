// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"strconv"
	"time"
)

// Room is a shared session context.
type Room struct {
	ID        int64
	CreatedAt time.Time
}

// PrivateRoom binds a Room to the connection key used to invite a second user.
type PrivateRoom struct {
	RoomID        int64
	ConnectionKey string
	CreatedAt     time.Time
}

// Attachment is what a user receives after joining a room.
type Attachment struct {
	RoomID     int64  `json:"room_id"`
	ConnectKey string `json:"connect_key"`
}

// State is a user's room membership. A nil RoomID means Unconnected.
type State struct {
	RoomID *int64
}

// Connected reports whether the state is Connected(room).
func (s State) Connected() bool {
	return s.RoomID != nil
}

func (s State) String() string {
	if s.RoomID == nil {
		return "unconnected"
	}
	return "connected(" + strconv.FormatInt(*s.RoomID, 10) + ")"
}

// DefaultConnectionKey renders a room ID as its connection key.
// The key is therefore as guessable as the room ID itself.
func DefaultConnectionKey(roomID int64) string {
	return strconv.FormatInt(roomID, 10)
}
