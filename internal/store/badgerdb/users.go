// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package badgerdb

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duetrooms/duet/internal/auth"
)

// UserRepository implements auth.UserRepository.
type UserRepository struct {
	db *DB
}

var _ auth.UserRepository = (*UserRepository)(nil)

// Create stores a new user. The username index entry is written in the same
// transaction, so two concurrent registrations cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	rec := toUserRecord(user)
	err := r.db.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, userNameKey(user.Username))
		if err != nil {
			return err
		}
		if taken {
			return auth.ErrUsernameTaken
		}
		if err := txn.Set(userNameKey(user.Username), []byte(rec.ID)); err != nil {
			return err
		}
		return setJSON(txn, userIDKey(user.ID), rec)
	})
	if errors.Is(err, auth.ErrUsernameTaken) {
		return oops.Code("USER_CREATE_FAILED").
			With("username", user.Username).
			Wrap(auth.ErrUsernameTaken)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	var rec userRecord
	err := r.db.view(func(txn *badger.Txn) error {
		return getJSON(txn, userIDKey(id), &rec)
	})
	if errors.Is(err, errMissing) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return rec.toUser()
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	var rec userRecord
	err := r.db.view(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errMissing
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte("user:id:"+string(id)), &rec)
	})
	if errors.Is(err, errMissing) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("username", username).
			Wrap(err)
	}
	return rec.toUser()
}

func toUserRecord(u *auth.User) userRecord {
	return userRecord{
		ID:              u.ID.String(),
		Username:        u.Username,
		PasswordHash:    u.PasswordHash,
		ConnectedRoomID: u.ConnectedRoomID,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (rec userRecord) toUser() (*auth.User, error) {
	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("STORE_CORRUPT").
			With("id", rec.ID).
			Wrap(err)
	}
	return &auth.User{
		ID:              id,
		Username:        rec.Username,
		PasswordHash:    rec.PasswordHash,
		ConnectedRoomID: rec.ConnectedRoomID,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}
