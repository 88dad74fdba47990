// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestUserLocks_SerializesPerUser(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	locks := newUserLocks()
	id := ulid.Make()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(id)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.len(), "released locks are dropped")
}

func TestUserLocks_DistinctUsersDoNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	locks := newUserLocks()
	unlockA := locks.lock(ulid.Make())
	unlockB := locks.lock(ulid.Make())
	assert.Equal(t, 2, locks.len())
	unlockA()
	unlockB()
	assert.Zero(t, locks.len())
}
