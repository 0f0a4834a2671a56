// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

func (s *Server) home(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Bienvenue"})
}

// registerUser handles POST /users.
func (s *Server) registerUser(c echo.Context) error {
	email := c.FormValue("email")
	password := c.FormValue("password")

	_, err := s.svc.Register(c.Request().Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			s.record("register", "denied")
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "email already registered"})
		}
		if errors.Is(err, auth.ErrEmptyPassword) || isInvalidEmail(err) {
			s.record("register", "denied")
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid email or password"})
		}
		s.record("register", "error")
		errutil.LogError(s.logger, "register failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	s.record("register", "ok")
	return c.JSON(http.StatusOK, echo.Map{"email": email, "message": "user created"})
}

// createSession handles POST /sessions: credential check, then session
// issuance, then cookie delivery. The core never sees the cookie.
func (s *Server) createSession(c echo.Context) error {
	email := c.FormValue("email")
	password := c.FormValue("password")
	ctx := c.Request().Context()

	ok, err := s.svc.Login(ctx, email, password)
	if err != nil {
		s.record("login", "error")
		errutil.LogError(s.logger, "login failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if !ok {
		s.record("login", "denied")
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	token, err := s.svc.CreateSession(ctx, email)
	if err != nil {
		s.record("login", "error")
		errutil.LogError(s.logger, "create session failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if token == "" {
		// The account vanished between login and session issuance.
		s.record("login", "denied")
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	s.setSessionCookie(c, token)
	s.record("login", "ok")
	return c.JSON(http.StatusOK, echo.Map{"email": email, "message": "logged in"})
}

// destroySession handles DELETE /sessions.
func (s *Server) destroySession(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := s.userFromCookie(c)
	if err != nil {
		s.record("logout", "error")
		errutil.LogError(s.logger, "session lookup failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if user == nil {
		s.record("logout", "denied")
		return echo.NewHTTPError(http.StatusForbidden)
	}

	if err := s.svc.DestroySession(ctx, user.ID); err != nil {
		s.record("logout", "error")
		errutil.LogError(s.logger, "destroy session failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	s.clearSessionCookie(c)
	s.record("logout", "ok")
	return c.Redirect(http.StatusFound, "/")
}

// profile handles GET /profile.
func (s *Server) profile(c echo.Context) error {
	user, err := s.userFromCookie(c)
	if err != nil {
		errutil.LogError(s.logger, "session lookup failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	return c.JSON(http.StatusOK, echo.Map{"email": user.Email})
}

// issueReset handles POST /reset_password.
func (s *Server) issueReset(c echo.Context) error {
	email := c.FormValue("email")

	token, err := s.svc.IssueResetToken(c.Request().Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownEmail) {
			s.record("reset_issue", "denied")
			return echo.NewHTTPError(http.StatusForbidden)
		}
		s.record("reset_issue", "error")
		errutil.LogError(s.logger, "issue reset token failed", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	s.record("reset_issue", "ok")
	return c.JSON(http.StatusOK, echo.Map{"email": email, "reset_token": token})
}

// consumeReset handles PUT /reset_password. Every failure is a 403 so
// the response does not reveal which condition failed.
func (s *Server) consumeReset(c echo.Context) error {
	email := c.FormValue("email")
	token := c.FormValue("reset_token")
	newPassword := c.FormValue("new_password")

	err := s.svc.ConsumeResetToken(c.Request().Context(), token, newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) || errors.Is(err, auth.ErrEmptyPassword) {
			s.record("reset_consume", "denied")
		} else {
			s.record("reset_consume", "error")
			errutil.LogError(s.logger, "consume reset token failed", err)
		}
		return echo.NewHTTPError(http.StatusForbidden)
	}

	s.record("reset_consume", "ok")
	return c.JSON(http.StatusOK, echo.Map{"email": email, "message": "Password updated"})
}

// userFromCookie resolves the session cookie to a user. A missing
// cookie or a dead session yields (nil, nil).
func (s *Server) userFromCookie(c echo.Context) (*auth.User, error) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return s.svc.UserFromSession(c.Request().Context(), cookie.Value)
}

func (s *Server) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// isInvalidEmail reports whether err came from email validation.
func isInvalidEmail(err error) bool {
	return errutil.HasCode(err, "AUTH_INVALID_EMAIL")
}
