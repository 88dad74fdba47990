// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package mocks holds testify mocks for the room package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/duetrooms/duet/internal/room"
)

// MockTx is a mock implementation of room.Tx.
type MockTx struct {
	mock.Mock
}

// NewMockTx creates a mock and asserts its expectations on cleanup.
func NewMockTx(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockTx {
	m := &MockTx{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ConnectedRoom provides a mock function.
func (_m *MockTx) ConnectedRoom(ctx context.Context, userID ulid.ULID) (*int64, error) {
	ret := _m.Called(ctx, userID)
	var id *int64
	if v, ok := ret.Get(0).(*int64); ok {
		id = v
	}
	return id, ret.Error(1)
}

// CreateRoom provides a mock function.
func (_m *MockTx) CreateRoom(ctx context.Context) (*room.Room, error) {
	ret := _m.Called(ctx)
	var r *room.Room
	if v, ok := ret.Get(0).(*room.Room); ok {
		r = v
	}
	return r, ret.Error(1)
}

// CreatePrivateRoom provides a mock function.
func (_m *MockTx) CreatePrivateRoom(ctx context.Context, pr *room.PrivateRoom) error {
	ret := _m.Called(ctx, pr)
	return ret.Error(0)
}

// PrivateRoomByKey provides a mock function.
func (_m *MockTx) PrivateRoomByKey(ctx context.Context, key string) (*room.PrivateRoom, error) {
	ret := _m.Called(ctx, key)
	var pr *room.PrivateRoom
	if v, ok := ret.Get(0).(*room.PrivateRoom); ok {
		pr = v
	}
	return pr, ret.Error(1)
}

// CountOccupants provides a mock function.
func (_m *MockTx) CountOccupants(ctx context.Context, roomID int64) (int, error) {
	ret := _m.Called(ctx, roomID)
	return ret.Int(0), ret.Error(1)
}

// Attach provides a mock function.
func (_m *MockTx) Attach(ctx context.Context, userID ulid.ULID, roomID int64) error {
	ret := _m.Called(ctx, userID, roomID)
	return ret.Error(0)
}

// TxStore is a room.Store that hands every transaction the same Tx.
type TxStore struct {
	Tx room.Tx
}

// WithTx calls fn with s.Tx.
func (s TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx room.Tx) error) error {
	return fn(ctx, s.Tx)
}

var (
	_ room.Tx    = (*MockTx)(nil)
	_ room.Store = TxStore{}
)
