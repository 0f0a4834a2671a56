// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package auth implements the credential and session lifecycle core.
//
// # Components
//
//   - PasswordHasher - salts and hashes credentials, verifies plaintexts
//   - TokenGenerator - produces opaque random session and reset tokens
//   - UserStore      - the persistence contract the core consumes
//   - Service        - orchestrates registration, login, sessions, and
//     the reset-token issue/consume cycle
//
// The Service never touches transport concerns: session tokens are plain
// parameters and return values, and cookie handling belongs to the HTTP
// layer. All dependencies are injected through NewService; there is no
// package-level state.
//
// # Error policy
//
// Login, CreateSession, UserFromSession, and DestroySession convert a
// store miss into a non-error sentinel (false, empty token, nil user,
// no-op) so those paths never reveal whether an email is registered.
// Register and IssueResetToken surface typed failures instead. Sentinel
// errors in this package are matched with errors.Is; call sites wrap
// them with oops codes for context.
package auth
