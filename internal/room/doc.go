// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package room pairs authenticated users into rooms.
//
// A Registry owns Room and PrivateRoom records. A ConnectionManager moves a
// user from Unconnected to Connected(room), either by creating a private room
// or by presenting another room's connection key. A user is attached to at
// most one room; there is no transition back to Unconnected.
//
// All state lives behind the Store interface. Every manager operation runs
// inside a single Store transaction, so a failed precondition leaves nothing
// behind.
package room
