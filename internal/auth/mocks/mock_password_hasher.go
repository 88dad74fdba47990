// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/duetrooms/duet/internal/auth"
)

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock and asserts its expectations on cleanup.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (_m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := _m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function.
func (_m *MockPasswordHasher) Verify(password, digest string) (bool, error) {
	ret := _m.Called(password, digest)
	return ret.Bool(0), ret.Error(1)
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)
