// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/observability"
)

// nullStore satisfies auth.UserStore for wiring tests that never touch it.
type nullStore struct{}

func (nullStore) Create(_ context.Context, email, hashedPassword string) (*auth.User, error) {
	return &auth.User{ID: ulid.Make(), Email: email, HashedPassword: hashedPassword}, nil
}

func (nullStore) FindBy(_ context.Context, _ auth.Field, _ string) (*auth.User, error) {
	return nil, auth.ErrNotFound
}

func (nullStore) Update(_ context.Context, _ ulid.ULID, _ auth.Patch) error {
	return nil
}

// stubObsServer satisfies ObservabilityServer without opening a port.
type stubObsServer struct {
	metrics *observability.Metrics
	errChan chan error

	mu      sync.Mutex
	stopped bool
}

func newStubObsServer() *stubObsServer {
	return &stubObsServer{
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		errChan: make(chan error, 1),
	}
}

func (s *stubObsServer) Metrics() *observability.Metrics { return s.metrics }

func (s *stubObsServer) Start() (<-chan error, error) { return s.errChan, nil }

func (s *stubObsServer) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *stubObsServer) Addr() string { return "stub" }

func (s *stubObsServer) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func newServeTestCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	configFile = ""

	cmd := NewServeCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()

	for _, name := range []string{"http-addr", "metrics-addr", "database-url", "log-format"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing --%s flag", name)
	}
}

func TestRunServe_InvalidLogFormat(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/passgate")
	cmd := newServeTestCmd(t, map[string]string{"log-format": "yaml"})

	err := runServe(context.Background(), cmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-format")
}

func TestRunServe_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newServeTestCmd(t, nil)

	err := runServe(context.Background(), cmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database-url")
}

func TestRunServe_StoreFailure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/passgate")
	cmd := newServeTestCmd(t, map[string]string{"log-format": "text"})

	deps := &ServeDeps{
		UserStoreFactory: func(_ context.Context, _ string) (auth.UserStore, func(), error) {
			return nil, nil, errors.New("connection refused")
		},
	}

	err := runServe(context.Background(), cmd, deps)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunServe_ShutdownOnContextCancel(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/passgate")
	cmd := newServeTestCmd(t, map[string]string{
		"http-addr":  "127.0.0.1:0",
		"log-format": "text",
	})

	released := false
	obs := newStubObsServer()
	deps := &ServeDeps{
		UserStoreFactory: func(_ context.Context, _ string) (auth.UserStore, func(), error) {
			return nullStore{}, func() { released = true }, nil
		},
		ObservabilityServerFactory: func(_ string, _ observability.ReadinessChecker) ObservabilityServer {
			return obs
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cmd, deps) }()

	// Give the server a moment to come up, then ask it to stop.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not shut down after context cancellation")
	}

	assert.True(t, released, "store release func not called")
	assert.True(t, obs.wasStopped(), "observability server not stopped")
}

func TestRunServe_ShutdownOnObservabilityFailure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/passgate")
	cmd := newServeTestCmd(t, map[string]string{
		"http-addr":  "127.0.0.1:0",
		"log-format": "text",
	})

	obs := newStubObsServer()
	deps := &ServeDeps{
		UserStoreFactory: func(_ context.Context, _ string) (auth.UserStore, func(), error) {
			return nullStore{}, func() {}, nil
		},
		ObservabilityServerFactory: func(_ string, _ observability.ReadinessChecker) ObservabilityServer {
			return obs
		},
	}

	done := make(chan error, 1)
	go func() { done <- runServe(context.Background(), cmd, deps) }()

	time.Sleep(100 * time.Millisecond)
	obs.errChan <- errors.New("metrics port stolen")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not shut down after observability failure")
	}
}
