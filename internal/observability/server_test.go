// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startTestServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready)

	_, err := server.Start()
	require.NoError(t, err, "failed to start server")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // local test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startTestServer(t, func() bool { return true })

	server.Metrics().AuthOperations.WithLabelValues("login", "ok").Inc()
	server.Metrics().HTTPRequests.WithLabelValues("POST", "/sessions", "200").Inc()

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "passgate_auth_operations_total")
	assert.Contains(t, body, "passgate_http_requests_total")
}

func TestServer_HealthProbes(t *testing.T) {
	ready := true
	server := startTestServer(t, func() bool { return ready })
	base := "http://" + server.Addr()

	status, body := get(t, base+"/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)

	status, _ = get(t, base+"/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)

	ready = false
	status, body = get(t, base+"/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready\n", body)
}

func TestServer_StartStopLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	require.NoError(t, err)

	// A second start while running must fail.
	_, err = server.Start()
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	// Graceful stop closes the error channel without an error.
	select {
	case serveErr, ok := <-errCh:
		assert.False(t, ok, "unexpected error from server: %v", serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after stop")
	}

	// Stopping again is a no-op.
	require.NoError(t, server.Stop(ctx))
}
