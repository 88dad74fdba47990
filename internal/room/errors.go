// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import "errors"

// Sentinel errors. Errors returned by this package and by Store
// implementations wrap one of these; match them with errors.Is.
var (
	ErrNotFound         = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyConnected = errors.New("already connected")
	ErrInvalidKey       = errors.New("invalid connect key")
	ErrKeyCollision     = errors.New("connection key already in use")
	ErrRoomFull         = errors.New("room is full")
	ErrNotSupported     = errors.New("not supported")
)

// Error codes attached to oops errors produced by this package.
const (
	CodeNotFound         = "ROOM_NOT_FOUND"
	CodeUserNotFound     = "ROOM_USER_NOT_FOUND"
	CodeAlreadyConnected = "ROOM_ALREADY_CONNECTED"
	CodeInvalidKey       = "ROOM_INVALID_KEY"
	CodeKeyCollision     = "ROOM_KEY_COLLISION"
	CodeRoomFull         = "ROOM_FULL"
	CodeNotSupported     = "NOT_SUPPORTED"
)
