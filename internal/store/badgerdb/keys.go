// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package badgerdb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Key layout:
//
//	user:id:<ulid>            userRecord
//	user:name:<username>      user id
//	room:<id>                 roomRecord
//	private:key:<key>         privateRecord
//	private:room:<id>         connection key
//	member:<room id>:<ulid>   empty
//	seq:room                  last room id, big-endian uint64
//
// Room ids are zero-padded so members of one room share a prefix.
var seqRoomKey = []byte("seq:room")

func userIDKey(id ulid.ULID) []byte { return []byte("user:id:" + id.String()) }

func userNameKey(username string) []byte { return []byte("user:name:" + username) }

func roomKey(id int64) []byte { return []byte(fmt.Sprintf("room:%020d", id)) }

func privateKeyKey(key string) []byte { return []byte("private:key:" + key) }

func privateRoomKey(id int64) []byte { return []byte(fmt.Sprintf("private:room:%020d", id)) }

func memberPrefix(roomID int64) []byte { return []byte(fmt.Sprintf("member:%020d:", roomID)) }

func memberKey(roomID int64, userID ulid.ULID) []byte {
	return append(memberPrefix(roomID), userID.String()...)
}

type userRecord struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"password_hash"`
	ConnectedRoomID *int64    `json:"connected_room_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type roomRecord struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type privateRecord struct {
	RoomID        int64     `json:"room_id"`
	ConnectionKey string    `json:"connection_key"`
	CreatedAt     time.Time `json:"created_at"`
}

// errMissing is returned by getJSON when the key does not exist.
var errMissing = errors.New("key not found")

func getJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errMissing
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func setJSON(txn *badger.Txn, key []byte, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// nextRoomID increments and returns the room sequence.
func nextRoomID(txn *badger.Txn) (int64, error) {
	var last uint64
	item, err := txn.Get(seqRoomKey)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return oops.Code("STORE_CORRUPT").With("bytes", len(val)).Errorf("corrupt room sequence")
			}
			last = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	next := last + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := txn.Set(seqRoomKey, buf); err != nil {
		return 0, err
	}
	return int64(next), nil //nolint:gosec // sequence never approaches MaxInt64
}
