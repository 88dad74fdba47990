// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolate points XDG lookups at a temp dir and clears DUET_* settings a
// developer may have exported.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{"DUET_AUTH__JWT_SECRET", "DUET_STORE__DRIVER", "DUET_STORE__DATABASE_URL", "DUET_HTTP__ADDR", "DUET_METRICS__ADDR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return dir
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRootCmd_Help(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "private rooms")
	assert.Contains(t, out.String(), "serve")
}

func TestServeCmd_RegistersConfigFlags(t *testing.T) {
	cmd := NewServeCmd()
	for _, name := range []string{"http-addr", "metrics-addr", "store-driver", "database-url", "badger-in-memory", "max-occupants"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
