// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/duetrooms/duet/internal/auth")

// dummyPasswordHash is verified against when a username does not exist, so
// both failure paths take the same time. It never matches any password.
//
//nolint:gosec // G101: fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service registers users, checks credentials, and mints tokens.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens *TokenService
	logger *slog.Logger
}

// NewAuthService creates a new Service using the default logger.
func NewAuthService(users UserRepository, hasher PasswordHasher, tokens *TokenService) (*Service, error) {
	return NewAuthServiceWithLogger(users, hasher, tokens, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(users UserRepository, hasher PasswordHasher, tokens *TokenService, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token service is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}, nil
}

// Register creates a new user. A duplicate username yields an error wrapping
// ErrUsernameTaken and never overwrites the existing account.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	if password == "" {
		return nil, ErrEmptyPassword
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, digest)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			s.logger.InfoContext(ctx, "registration rejected", "reason", "username taken")
			return nil, oops.Code(CodeUsernameTaken).
				With("username", username).
				Wrap(ErrUsernameTaken)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	span.SetAttributes(attribute.String("user_id", user.ID.String()))
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Authenticate checks a username/password pair. An unknown username and a
// wrong password produce the same ErrInvalidCredentials error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer span.End()

	user, lookupErr := s.users.GetByUsername(ctx, username)

	var targetHash string
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	// Always verify so an unknown username costs the same as a wrong password.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	if !exists || !valid {
		s.logger.InfoContext(ctx, "authentication failed")
		return nil, invalidCredentials()
	}

	return user, nil
}

// Login authenticates the user and issues an access token. It is the only
// path that mints tokens.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return token, user, nil
}

// UserInfo returns the public account projection for a username.
func (s *Service) UserInfo(ctx context.Context, username string) (AccountInfo, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return AccountInfo{}, oops.Code(CodeUserNotFound).
			With("username", username).
			Wrap(ErrNotFound)
	}
	if err != nil {
		return AccountInfo{}, oops.Code("AUTH_USER_INFO_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}
	return user.Info(), nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}
