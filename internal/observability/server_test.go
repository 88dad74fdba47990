// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	server := startServer(t, nil)
	m := server.Metrics()
	m.HTTPRequests.WithLabelValues("/auth/login", "POST", "200").Inc()
	m.RecordRoomCreated()
	m.RecordAttachment("ok")
	m.RecordAuth("login", "invalid_credentials")

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	for _, want := range []string{
		"go_goroutines",
		"process_",
		`duet_http_requests_total{method="POST",route="/auth/login",status="200"} 1`,
		"duet_rooms_created_total 1",
		`duet_room_attachments_total{outcome="ok"} 1`,
		`duet_auth_attempts_total{operation="login",outcome="invalid_credentials"} 1`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordAttachment("room_full")
	m.RecordAttachment("room_full")
	m.RecordRoomCreated()
	m.RecordHTTP("/users/me", "GET", 401, 3*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/users/me", "GET", "401")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
	assert.InDelta(t, 2, testutil.ToFloat64(m.RoomAttachments.WithLabelValues("room_full")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RoomsCreated), 0)
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAuth("login", "ok")
		m.RecordRoomCreated()
		m.RecordAttachment("ok")
		m.RecordHTTP("/", "GET", 200, time.Second)
	})
}

func TestServer_Probes(t *testing.T) {
	var ready atomic.Bool
	server := startServer(t, ready.Load)

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))

	status, body = get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready", strings.TrimSpace(body))

	ready.Store(true)
	status, _ = get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_NilReadinessMeansReady(t *testing.T) {
	server := startServer(t, nil)
	status, _ := get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)
	_, err := server.Start()
	require.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	require.NoError(t, server.Stop(context.Background()))
	assert.Empty(t, server.Addr())
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	server := NewServer(l.Addr().String(), nil)
	_, err = server.Start()
	require.Error(t, err)
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)

	require.NoError(t, server.Stop(context.Background()))

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "channel should be closed, got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after Stop")
	}
}
