// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package room_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duetrooms/duet/internal/auth"
	"github.com/duetrooms/duet/internal/room"
	"github.com/duetrooms/duet/internal/store/badgerdb"
)

type env struct {
	db       *badgerdb.DB
	manager  *room.ConnectionManager
	registry *room.Registry
}

func newEnv(t *testing.T, opts ...room.ManagerOption) *env {
	t.Helper()
	db, err := badgerdb.Open(badgerdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mgr, err := room.NewConnectionManager(db.Rooms(), opts...)
	require.NoError(t, err)
	reg, err := room.NewRegistry(db.Rooms())
	require.NoError(t, err)
	return &env{db: db, manager: mgr, registry: reg}
}

func (e *env) user(t *testing.T, username string) *auth.User {
	t.Helper()
	u, err := auth.NewUser(username, "$argon2id$stub")
	require.NoError(t, err)
	require.NoError(t, e.db.Users().Create(context.Background(), u))
	return u
}

func (e *env) state(t *testing.T, u *auth.User) room.State {
	t.Helper()
	s, err := e.manager.State(context.Background(), u.ID)
	require.NoError(t, err)
	return s
}
