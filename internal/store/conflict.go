// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package store

import "errors"

// CodeConflict marks a write that kept losing to concurrent writers.
const CodeConflict = "STORE_CONFLICT"

// ErrConflict is returned when a transaction could not commit within its
// retry budget. Callers may retry the whole request.
var ErrConflict = errors.New("store: transaction conflict")
