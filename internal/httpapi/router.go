// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duetrooms/duet/internal/auth"
	"github.com/duetrooms/duet/internal/observability"
	"github.com/duetrooms/duet/internal/room"
)

// Accounts is the account surface the API serves.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*auth.User, error)
	Login(ctx context.Context, username, password string) (string, *auth.User, error)
	UserInfo(ctx context.Context, username string) (auth.AccountInfo, error)
}

// Rooms is the room surface the API serves.
type Rooms interface {
	Create(ctx context.Context, userID ulid.ULID) (room.Attachment, error)
	Connect(ctx context.Context, userID ulid.ULID, key string) (room.Attachment, error)
	State(ctx context.Context, userID ulid.ULID) (room.State, error)
}

// Deps are the collaborators behind the routes. Matchmaker and Live default
// to room.Unsupported; Metrics and Logger are optional.
type Deps struct {
	Accounts       Accounts
	Tokens         TokenVerifier
	Rooms          Rooms
	Matchmaker     room.Matchmaker
	Live           room.LiveSession
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

type api struct {
	accounts   Accounts
	rooms      Rooms
	matchmaker room.Matchmaker
	live       room.LiveSession
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewRouter builds the gin engine serving every public route.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Accounts == nil {
		return nil, oops.Code("HTTP_ROUTER_INVALID").Errorf("accounts are required")
	}
	if deps.Tokens == nil {
		return nil, oops.Code("HTTP_ROUTER_INVALID").Errorf("token verifier is required")
	}
	if deps.Rooms == nil {
		return nil, oops.Code("HTTP_ROUTER_INVALID").Errorf("rooms are required")
	}

	a := &api{
		accounts:   deps.Accounts,
		rooms:      deps.Rooms,
		matchmaker: deps.Matchmaker,
		live:       deps.Live,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if a.matchmaker == nil {
		a.matchmaker = room.Unsupported{}
	}
	if a.live == nil {
		a.live = room.Unsupported{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(a.logger), accessLog(a.logger, a.metrics), requestTimeout(deps.RequestTimeout))
	r.NoRoute(func(c *gin.Context) {
		abortWithBody(c, http.StatusNotFound, CodeNotFound, "no such route")
	})
	r.NoMethod(func(c *gin.Context) {
		abortWithBody(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	authed := requireIdentity(deps.Tokens, a.logger)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", a.register)
	authGroup.POST("/login", a.login)

	users := r.Group("/users")
	users.GET("/me", authed, a.me)
	users.GET("/info/:username", a.userInfo)

	rooms := r.Group("/room", authed)
	rooms.POST("/private/create", a.createPrivate)
	rooms.POST("/private/connect", a.connectPrivate)
	rooms.POST("/search", a.search)
	rooms.GET("/connect", a.openSession)

	return r, nil
}
