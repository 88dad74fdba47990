// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSigningKeyLength is the shortest HS256 key NewTokenService accepts.
const MinSigningKeyLength = 32

// TokenType is reported to clients alongside an access token.
const TokenType = "bearer"

// TokenFailure enumerates why a bearer token was rejected.
// Callers outside this package should treat every value as "unauthenticated".
type TokenFailure uint8

// Token failure kinds.
const (
	TokenMalformed TokenFailure = iota + 1
	TokenBadSignature
	TokenUnknownSubject
)

// Code returns the stable error code for the failure.
func (f TokenFailure) Code() string {
	switch f {
	case TokenMalformed:
		return "TOKEN_MALFORMED"
	case TokenBadSignature:
		return "TOKEN_BAD_SIGNATURE"
	case TokenUnknownSubject:
		return "TOKEN_UNKNOWN_SUBJECT"
	default:
		return "TOKEN_INVALID"
	}
}

func (f TokenFailure) String() string {
	return f.Code()
}

func (f TokenFailure) err(reason string) error {
	return oops.Code(f.Code()).With("reason", reason).Wrap(ErrUnauthenticated)
}

// TokenFailureOf extracts the failure kind from an error returned by Verify.
func TokenFailureOf(err error) (TokenFailure, bool) {
	if !errors.Is(err, ErrUnauthenticated) {
		return 0, false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0, false
	}
	for _, f := range []TokenFailure{TokenMalformed, TokenBadSignature, TokenUnknownSubject} {
		if oopsErr.Code() == f.Code() {
			return f, true
		}
	}
	return 0, false
}

// Claims is the signed payload of an access token. Alongside the subject it
// carries a snapshot of the account fields at issue time.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the resolved owner of a verified token.
type Identity struct {
	UserID   ulid.ULID
	Username string
}

// Info returns the public projection of the identity.
func (i Identity) Info() AccountInfo {
	return AccountInfo{ID: i.UserID.String(), Username: i.Username}
}

// TokenService issues and verifies HS256 access tokens. Tokens carry no
// expiry and stay valid until the signing key changes.
type TokenService struct {
	key    []byte
	users  UserRepository
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with key. The users
// repository resolves token subjects during verification.
func NewTokenService(key []byte, users UserRepository) (*TokenService, error) {
	if len(key) < MinSigningKeyLength {
		return nil, oops.Code("TOKEN_KEY_INVALID").
			With("min_length", MinSigningKeyLength).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	if users == nil {
		return nil, oops.Code("TOKEN_SERVICE_INVALID").Errorf("users repository is required")
	}

	owned := make([]byte, len(key))
	copy(owned, key)

	return &TokenService{
		key:    owned,
		users:  users,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:    time.Now,
	}, nil
}

// Issue signs a token asserting the user's identity.
func (s *TokenService) Issue(user *User) (string, error) {
	if user == nil || user.ID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("TOKEN_ISSUE_FAILED").Errorf("user ID cannot be zero")
	}

	claims := &Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(s.now()),
			ID:       uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return signed, nil
}

// Verify checks the token signature and resolves its subject to a stored user.
// Every rejection wraps ErrUnauthenticated; TokenFailureOf reports which check failed.
// Errors that do not wrap ErrUnauthenticated come from the credential store.
func (s *TokenService) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, TokenMalformed.err("empty token")
	}

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Identity{}, TokenBadSignature.err(err.Error())
		default:
			return Identity{}, TokenMalformed.err(err.Error())
		}
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, TokenMalformed.err("subject is not a user id")
	}

	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, TokenUnknownSubject.err("subject does not resolve to a user")
	}
	if err != nil {
		return Identity{}, oops.Code("TOKEN_VERIFY_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}

	return Identity{UserID: user.ID, Username: user.Username}, nil
}
