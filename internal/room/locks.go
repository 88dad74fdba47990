// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// userLocks hands out one mutex per user. Entries are dropped once no
// goroutine holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[ulid.ULID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[ulid.ULID]*userLock)}
}

// lock blocks until the caller holds id's mutex and returns the unlock func.
func (l *userLocks) lock(id ulid.ULID) func() {
	l.mu.Lock()
	ul, ok := l.locks[id]
	if !ok {
		ul = &userLock{}
		l.locks[id] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
