// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package mocks holds testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/duetrooms/duet/internal/auth"
)

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock and asserts its expectations on cleanup.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (_m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

// GetByID provides a mock function.
func (_m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := _m.Called(ctx, id)
	var user *auth.User
	if u, ok := ret.Get(0).(*auth.User); ok {
		user = u
	}
	return user, ret.Error(1)
}

// GetByUsername provides a mock function.
func (_m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	ret := _m.Called(ctx, username)
	var user *auth.User
	if u, ok := ret.Get(0).(*auth.User); ok {
		user = u
	}
	return user, ret.Error(1)
}

var _ auth.UserRepository = (*MockUserRepository)(nil)
