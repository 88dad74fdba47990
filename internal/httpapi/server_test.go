// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package httpapi_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetrooms/duet/internal/httpapi"
)

func TestServer_ServesAndStops(t *testing.T) {
	api := newAPI(t)
	server := httpapi.NewServer("127.0.0.1:0", api.handler, time.Second, nil)
	assert.Empty(t, server.Addr())

	errCh, err := server.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + server.Addr() + "/users/info/nobody")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"code":"USER_NOT_FOUND","detail":"user not found"}`, string(body))

	_, err = server.Start()
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx))

	_, open := <-errCh
	assert.False(t, open)
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	server := httpapi.NewServer(l.Addr().String(), http.NotFoundHandler(), 0, nil)
	_, err = server.Start()
	require.Error(t, err)
}
