// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

// Package auth provides credential authentication for ShopNest users.
//
// # Domain Types
//
// Domain types (Identity, Session) should be created using their
// respective constructors:
//   - NewIdentity - creates an Identity with a normalized email and password hash
//   - NewSession - creates a Session bound to an identity with a validated expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Store implementations receive pre-validated types from these constructors.
//
// # Service
//
// The Service type orchestrates registration, login, and session-token
// validation. It owns the business policy (email normalization, password
// length, hashing, token issuance) and pushes all uniqueness and expiry
// coordination to the CredentialStore and SessionCache implementations.
package auth
