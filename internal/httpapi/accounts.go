// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/duetrooms/duet/internal/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (a *api) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.metrics.RecordAuth("register", "bad_request")
		abortWithBody(c, http.StatusUnprocessableEntity, CodeInvalidRequest, "body must be a JSON object with username and password")
		return
	}

	user, err := a.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.metrics.RecordAuth("register", outcome(err))
		abortWithError(c, a.logger, err)
		return
	}
	a.metrics.RecordAuth("register", "ok")
	c.JSON(http.StatusCreated, user.Info())
}

func (a *api) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		a.metrics.RecordAuth("login", "bad_request")
		abortWithBody(c, http.StatusUnprocessableEntity, CodeInvalidRequest, "expected form fields username and password")
		return
	}

	token, _, err := a.accounts.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		a.metrics.RecordAuth("login", outcome(err))
		abortWithError(c, a.logger, err)
		return
	}
	a.metrics.RecordAuth("login", "ok")
	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: auth.TokenType})
}

func (a *api) me(c *gin.Context) {
	c.JSON(http.StatusOK, identityFrom(c).Info())
}

func (a *api) userInfo(c *gin.Context) {
	info, err := a.accounts.UserInfo(c.Request.Context(), c.Param("username"))
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
