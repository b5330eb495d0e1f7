// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package auth

import "errors"

// Sentinel errors forming the caller-visible failure taxonomy. Call sites
// wrap these with oops codes and context; callers match with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed, user-correctable input.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login failure. It is deliberately
	// the same error for an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidSession is returned for an unknown or expired session token.
	ErrInvalidSession = errors.New("invalid session token")

	// ErrStoreUnavailable is returned when the credential store or session
	// cache cannot be reached. Retrying is at the caller's discretion.
	ErrStoreUnavailable = errors.New("store unavailable")
)
