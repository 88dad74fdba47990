// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when registration collides with an existing username.
var ErrUsernameTaken = errors.New("username taken")

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUnauthenticated is wrapped by every token verification failure.
var ErrUnauthenticated = errors.New("unauthenticated")

// Error codes attached to oops errors produced by this package.
const (
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"
	CodeUserNotFound       = "USER_NOT_FOUND"
)
