// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package httpapi exposes the account and room operations over HTTP.
//
// Every failure is written as {"code": "...", "detail": "..."} where code is
// the stable oops code of the domain error.
package httpapi
