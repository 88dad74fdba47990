// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package xdg resolves XDG Base Directory paths for duet.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "duet"

// ConfigDir returns $XDG_CONFIG_HOME/duet, falling back to ~/.config/duet.
func ConfigDir() string {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/duet, falling back to ~/.local/share/duet.
func DataDir() string {
	return dir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func dir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), fallback)
	}
	return filepath.Join(base, appName)
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("DIR_CREATE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
