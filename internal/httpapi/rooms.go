// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/duetrooms/duet/internal/room"
)

type connectRequest struct {
	ConnectKey string `json:"connect_key"`
}

func (a *api) createPrivate(c *gin.Context) {
	id := identityFrom(c)
	att, err := a.rooms.Create(c.Request.Context(), id.UserID)
	if err != nil {
		a.metrics.RecordAttachment(outcome(err))
		abortWithError(c, a.logger, err)
		return
	}
	a.metrics.RecordRoomCreated()
	a.metrics.RecordAttachment("ok")
	c.JSON(http.StatusOK, att)
}

// connectPrivate reads connect_key from the query string, falling back to a
// JSON body.
func (a *api) connectPrivate(c *gin.Context) {
	key, ok := c.GetQuery("connect_key")
	if !ok && c.Request.ContentLength != 0 {
		var req connectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithBody(c, http.StatusUnprocessableEntity, CodeInvalidRequest, "expected connect_key")
			return
		}
		key = req.ConnectKey
	}

	id := identityFrom(c)
	att, err := a.rooms.Connect(c.Request.Context(), id.UserID, strings.TrimSpace(key))
	if err != nil {
		a.metrics.RecordAttachment(outcome(err))
		abortWithError(c, a.logger, err)
		return
	}
	a.metrics.RecordAttachment("ok")
	c.JSON(http.StatusOK, att)
}

func (a *api) search(c *gin.Context) {
	id := identityFrom(c)
	att, err := a.matchmaker.Search(c.Request.Context(), id.UserID)
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, att)
}

// openSession hands the caller's room to the live session. The room ID is
// zero when the caller is not attached.
func (a *api) openSession(c *gin.Context) {
	id := identityFrom(c)
	state, err := a.rooms.State(c.Request.Context(), id.UserID)
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	var roomID int64
	if state.Connected() {
		roomID = *state.RoomID
	}
	if err := a.live.Open(c.Request.Context(), id.UserID, roomID); err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// outcome is the metrics label for a failed auth or attach attempt.
func outcome(err error) string {
	switch {
	case errors.Is(err, room.ErrAlreadyConnected):
		return "already_connected"
	case errors.Is(err, room.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	}
	f, known := classify(err)
	if !known {
		return "error"
	}
	return strings.ToLower(f.code)
}
