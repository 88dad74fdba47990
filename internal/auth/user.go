// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package auth

import (
	"context"
	"crypto/rand"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxUsernameLength bounds usernames in runes.
const MaxUsernameLength = 64

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewUserID generates a new monotonic ULID for a user.
func NewUserID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// User is a registered account.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	// ConnectedRoomID is nil while the user is not attached to any room.
	// Only the room package writes it.
	ConnectedRoomID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccountInfo is the public projection of a User. It never carries the digest.
type AccountInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Info returns the public projection of the user.
func (u *User) Info() AccountInfo {
	return AccountInfo{ID: u.ID.String(), Username: u.Username}
}

// NewUser creates a validated User with a fresh ID.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           NewUserID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername checks that a username is non-empty, at most
// MaxUsernameLength runes, valid UTF-8, and free of whitespace and control characters.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).Errorf("username cannot be empty")
	}
	if !utf8.ValidString(username) {
		return oops.Code(CodeInvalidUsername).Errorf("username must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(username); n > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return oops.Code(CodeInvalidUsername).
				Errorf("username cannot contain whitespace or control characters")
		}
	}
	return nil
}

// UserRepository is the credential store.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrUsernameTaken
	// if the username is already registered; the check and the insert are atomic.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by exact username. Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*User, error)
}
