// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duetrooms/duet/internal/auth"
	"github.com/duetrooms/duet/internal/room"
	"github.com/duetrooms/duet/internal/store"
	"github.com/duetrooms/duet/pkg/errutil"
)

// Codes produced by the transport itself.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL"
	CodeNotFound        = "NOT_FOUND"
	CodeBusy            = "BUSY"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type failure struct {
	status int
	code   string
	detail string
}

// classify maps a domain error to its response. The bool is false for
// errors the API does not recognise.
func classify(err error) (failure, bool) {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		return failure{http.StatusBadRequest, auth.CodeUsernameTaken, "username already registered"}, true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return failure{http.StatusBadRequest, auth.CodeInvalidCredentials, "incorrect username or password"}, true
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, room.ErrUserNotFound):
		return failure{http.StatusUnauthorized, CodeUnauthenticated, "could not validate credentials"}, true
	case errors.Is(err, auth.ErrNotFound):
		return failure{http.StatusNotFound, auth.CodeUserNotFound, "user not found"}, true
	case errors.Is(err, room.ErrAlreadyConnected):
		return failure{http.StatusBadRequest, room.CodeAlreadyConnected, "user is already connected to a room"}, true
	case errors.Is(err, room.ErrInvalidKey):
		return failure{http.StatusBadRequest, room.CodeInvalidKey, "invalid connect key"}, true
	case errors.Is(err, room.ErrRoomFull):
		return failure{http.StatusBadRequest, room.CodeRoomFull, "room is full"}, true
	case errors.Is(err, room.ErrNotSupported):
		return failure{http.StatusNotImplemented, room.CodeNotSupported, "not supported"}, true
	case errors.Is(err, context.DeadlineExceeded):
		return failure{http.StatusServiceUnavailable, CodeTimeout, "request timed out"}, true
	case errors.Is(err, store.ErrConflict):
		return failure{http.StatusServiceUnavailable, CodeBusy, "try again"}, false
	}

	switch code := errutil.Code(err); code {
	case auth.CodeInvalidUsername:
		return failure{http.StatusBadRequest, code, "invalid username"}, true
	case auth.CodeEmptyPassword:
		return failure{http.StatusBadRequest, code, "password cannot be empty"}, true
	}
	return failure{http.StatusInternalServerError, CodeInternal, "internal error"}, false
}

func abortWithError(c *gin.Context, logger *slog.Logger, err error) {
	f, known := classify(err)
	if !known {
		errutil.LogError(c.Request.Context(), logger, "request failed", err)
	}
	if f.status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(f.status, ErrorBody{Code: f.code, Detail: f.detail})
}

func abortWithBody(c *gin.Context, status int, code, detail string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, ErrorBody{Code: code, Detail: detail})
}
