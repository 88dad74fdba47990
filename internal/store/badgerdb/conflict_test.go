// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package badgerdb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetrooms/duet/internal/store"
	"github.com/duetrooms/duet/pkg/errutil"
)

func openInternal(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpdate_ExhaustedConflictsAreTyped(t *testing.T) {
	db := openInternal(t)
	key := []byte("contended")
	var runs atomic.Int32

	err := db.update(context.Background(), func(txn *badger.Txn) error {
		runs.Add(1)
		if _, err := txn.Get(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		// A competing writer commits between our read and our commit.
		if err := db.db.Update(func(other *badger.Txn) error {
			return other.Set(key, []byte("theirs"))
		}); err != nil {
			return err
		}
		return txn.Set(key, []byte("ours"))
	})

	require.ErrorIs(t, err, store.ErrConflict)
	require.ErrorIs(t, err, badger.ErrConflict)
	errutil.AssertErrorCode(t, err, store.CodeConflict)
	assert.Equal(t, int32(conflictRetries+1), runs.Load())
}

func TestUpdate_RetriesUntilCommit(t *testing.T) {
	db := openInternal(t)
	key := []byte("contended")
	var runs atomic.Int32

	err := db.update(context.Background(), func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if runs.Add(1) <= 3 {
			if err := db.db.Update(func(other *badger.Txn) error {
				return other.Set(key, []byte("theirs"))
			}); err != nil {
				return err
			}
		}
		return txn.Set(key, []byte("ours"))
	})

	require.NoError(t, err)
	assert.Equal(t, int32(4), runs.Load())
}

func TestUpdateRooms_RunsOneAtATime(t *testing.T) {
	db := openInternal(t)
	var (
		active  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.updateRooms(context.Background(), func(*badger.Txn) error {
				if active.Add(1) > 1 {
					overlap.Store(true)
				}
				defer active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load())
}
