// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/auth/postgres"
	"github.com/passgate/passgate/internal/observability"
	"github.com/passgate/passgate/internal/store"
)

// ObservabilityServer wraps the methods the serve command uses from
// observability.Server.
type ObservabilityServer interface {
	Metrics() *observability.Metrics
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields fall back to their default implementations.
type ServeDeps struct {
	// UserStoreFactory opens the user store for a database URL and
	// returns it with a release func.
	// Default: a pgx pool wrapped in postgres.UserRepository.
	UserStoreFactory func(ctx context.Context, databaseURL string) (auth.UserStore, func(), error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

func defaultUserStore(ctx context.Context, databaseURL string) (auth.UserStore, func(), error) {
	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepository(pool), pool.Close, nil
}
