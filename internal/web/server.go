// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package web exposes the auth service over HTTP. It owns everything
// transport-level - routing, form parsing, status codes, and the session
// cookie - so the core can stay ignorant of all of it.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/observability"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session_id"

// AuthService is the slice of the auth core the HTTP layer invokes.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*auth.User, error)
	Login(ctx context.Context, email, password string) (bool, error)
	CreateSession(ctx context.Context, email string) (string, error)
	UserFromSession(ctx context.Context, token string) (*auth.User, error)
	DestroySession(ctx context.Context, userID ulid.ULID) error
	IssueResetToken(ctx context.Context, email string) (string, error)
	ConsumeResetToken(ctx context.Context, token, newPassword string) error
}

// Server serves the auth API.
type Server struct {
	echo    *echo.Echo
	svc     AuthService
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewServer creates a Server. metrics may be nil when the observability
// endpoint is disabled.
func NewServer(svc AuthService, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		echo:    echo.New(),
		svc:     svc,
		metrics: metrics,
		logger:  logger.With("component", "web"),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestLogger)

	s.echo.GET("/", s.home)
	s.echo.POST("/users", s.registerUser)
	s.echo.POST("/sessions", s.createSession)
	s.echo.DELETE("/sessions", s.destroySession)
	s.echo.GET("/profile", s.profile)
	s.echo.POST("/reset_password", s.issueReset)
	s.echo.PUT("/reset_password", s.consumeReset)

	return s
}

// Handler returns the HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves the API on addr and blocks until shutdown or failure.
func (s *Server) Start(addr string) error {
	s.logger.Info("api server starting", "addr", addr)
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger logs each request and feeds the HTTP request counter.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		s.logger.InfoContext(c.Request().Context(), "request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if s.metrics != nil {
			s.metrics.HTTPRequests.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Inc()
		}
		return nil
	}
}

// record feeds the auth operation counter when metrics are enabled.
func (s *Server) record(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.AuthOperations.WithLabelValues(operation, outcome).Inc()
	}
}
