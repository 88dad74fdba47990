// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package auth provides identity primitives for Duet.
//
// # Domain Types
//
// Users are created with NewUser, which validates the username and requires
// a password hash. Direct struct initialization bypasses validation;
// repository implementations receive pre-validated users.
//
// # Services
//
//   - Service - registration, credential checks, login
//   - TokenService - issues and verifies signed bearer tokens
//
// Credential and token failures are reported as oops errors that wrap the
// sentinels in errors.go, so callers match them with errors.Is.
package auth
