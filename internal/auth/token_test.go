// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/duetrooms/duet/internal/auth"
	"github.com/duetrooms/duet/internal/auth/mocks"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTokenService(t *testing.T) (*auth.TokenService, *mocks.MockUserRepository) {
	t.Helper()
	repo := mocks.NewMockUserRepository(t)
	svc, err := auth.NewTokenService(testKey, repo)
	require.NoError(t, err)
	return svc, repo
}

func testUser(t *testing.T, username string) *auth.User {
	t.Helper()
	u, err := auth.NewUser(username, "$argon2id$v=19$m=65536,t=1,p=4$salt$hash")
	require.NoError(t, err)
	return u
}

func requireFailure(t *testing.T, err error, want auth.TokenFailure) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
	got, ok := auth.TokenFailureOf(err)
	require.True(t, ok, "expected a token failure, got %v", err)
	assert.Equal(t, want, got)
}

func TestNewTokenService_Validation(t *testing.T) {
	repo := mocks.NewMockUserRepository(t)

	_, err := auth.NewTokenService([]byte("short"), repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")

	_, err = auth.NewTokenService(testKey, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users repository is required")
}

func TestTokenService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTokenService(t)
	user := testUser(t, "alice")

	token, err := svc.Issue(user)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	repo.On("GetByID", ctx, user.ID).Return(user, nil)

	identity, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, auth.AccountInfo{ID: user.ID.String(), Username: "alice"}, identity.Info())
}

func TestTokenService_ClaimsCarryAccountSnapshotWithoutExpiry(t *testing.T) {
	svc, _ := newTokenService(t)
	user := testUser(t, "alice")

	token, err := svc.Issue(user)
	require.NoError(t, err)

	claims := &auth.Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.NotNil(t, claims.IssuedAt)
	assert.Nil(t, claims.ExpiresAt)
}

func TestTokenService_IssueRejectsZeroUser(t *testing.T) {
	svc, _ := newTokenService(t)

	_, err := svc.Issue(&auth.User{Username: "ghost"})
	require.Error(t, err)

	_, err = svc.Issue(nil)
	require.Error(t, err)
}

func TestTokenService_VerifyFailures(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "alice")

	t.Run("empty token is malformed", func(t *testing.T) {
		svc, _ := newTokenService(t)
		_, err := svc.Verify(ctx, "")
		requireFailure(t, err, auth.TokenMalformed)
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		svc, _ := newTokenService(t)
		_, err := svc.Verify(ctx, "not-a-token")
		requireFailure(t, err, auth.TokenMalformed)
	})

	t.Run("truncated token is rejected", func(t *testing.T) {
		svc, _ := newTokenService(t)
		token, err := svc.Issue(user)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, token[:len(token)-5])
		require.ErrorIs(t, err, auth.ErrUnauthenticated)

		_, err = svc.Verify(ctx, token[:strings.LastIndex(token, ".")])
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("swapped payload has bad signature", func(t *testing.T) {
		svc, _ := newTokenService(t)
		token, err := svc.Issue(user)
		require.NoError(t, err)
		other, err := svc.Issue(testUser(t, "mallory"))
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		otherParts := strings.Split(other, ".")
		tampered := parts[0] + "." + otherParts[1] + "." + parts[2]

		_, err = svc.Verify(ctx, tampered)
		requireFailure(t, err, auth.TokenBadSignature)
	})

	t.Run("token signed with another key has bad signature", func(t *testing.T) {
		svc, _ := newTokenService(t)
		otherSvc, err := auth.NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), mocks.NewMockUserRepository(t))
		require.NoError(t, err)
		token, err := otherSvc.Issue(user)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, token)
		requireFailure(t, err, auth.TokenBadSignature)
	})

	t.Run("alg none is rejected", func(t *testing.T) {
		svc, _ := newTokenService(t)
		claims := &auth.Claims{
			UserID:           user.ID.String(),
			Username:         user.Username,
			RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.String()},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, token)
		requireFailure(t, err, auth.TokenBadSignature)
	})

	t.Run("subject that is not a user id is malformed", func(t *testing.T) {
		svc, _ := newTokenService(t)
		claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, token)
		requireFailure(t, err, auth.TokenMalformed)
	})

	t.Run("deleted user is unknown subject", func(t *testing.T) {
		svc, repo := newTokenService(t)
		token, err := svc.Issue(user)
		require.NoError(t, err)
		repo.On("GetByID", ctx, user.ID).Return(nil, auth.ErrNotFound)

		_, err = svc.Verify(ctx, token)
		requireFailure(t, err, auth.TokenUnknownSubject)
	})

	t.Run("store failure is not an authentication failure", func(t *testing.T) {
		svc, repo := newTokenService(t)
		token, err := svc.Issue(user)
		require.NoError(t, err)
		repo.On("GetByID", ctx, mock.AnythingOfType("ulid.ULID")).Return(nil, errors.New("connection refused"))

		_, err = svc.Verify(ctx, token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrUnauthenticated)
		_, ok := auth.TokenFailureOf(err)
		assert.False(t, ok)
	})
}

func TestTokenFailure_Codes(t *testing.T) {
	assert.Equal(t, "TOKEN_MALFORMED", auth.TokenMalformed.Code())
	assert.Equal(t, "TOKEN_BAD_SIGNATURE", auth.TokenBadSignature.String())
	assert.Equal(t, "TOKEN_UNKNOWN_SUBJECT", auth.TokenUnknownSubject.Code())
	assert.Equal(t, "TOKEN_INVALID", auth.TokenFailure(0).Code())

	_, ok := auth.TokenFailureOf(errors.New("other"))
	assert.False(t, ok)
	_, ok = auth.TokenFailureOf(nil)
	assert.False(t, ok)
}
