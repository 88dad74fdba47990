// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetrooms/duet/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "non-numeric", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

type fakeMigrator struct {
	calls   []string
	version uint
	dirty   bool
	pending []uint
	err     error
	forced  int
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, f.dirty, f.err
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Pending() ([]uint, error) { return f.pending, nil }

func (f *fakeMigrator) Close() error {
	f.calls = append(f.calls, "close")
	return nil
}

// useMigrator swaps the migrator factory and records the URL it was given.
func useMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := migratorFactory
	migratorFactory = func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = orig })
	return &gotURL
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateUp(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{}
	url := useMigrator(t, m)

	out, err := runRoot(t, "migrate", "up", "--database-url", "postgres://duet@db/duet")
	require.NoError(t, err)
	assert.Equal(t, "postgres://duet@db/duet", *url)
	assert.Equal(t, []string{"up", "close"}, m.calls)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateURLFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DUET_STORE__DATABASE_URL", "postgres://env@db/duet")
	m := &fakeMigrator{}
	url := useMigrator(t, m)

	_, err := runRoot(t, "migrate", "down")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/duet", *url)
	assert.Equal(t, []string{"down", "close"}, m.calls)
}

func TestMigrateRequiresURL(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{}
	useMigrator(t, m)

	_, err := runRoot(t, "migrate", "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Empty(t, m.calls)
}

func TestMigrateVersion(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{version: 1, dirty: true, pending: []uint{2, 3}}
	useMigrator(t, m)

	out, err := runRoot(t, "migrate", "version", "--database-url", "postgres://duet@db/duet")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: 1 (000001_initial)")
	assert.Contains(t, out, "dirty")
	assert.Contains(t, out, "Pending: 2")
}

func TestMigrateForce(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{}
	useMigrator(t, m)

	out, err := runRoot(t, "migrate", "force", "1", "--database-url", "postgres://duet@db/duet")
	require.NoError(t, err)
	assert.Equal(t, 1, m.forced)
	assert.Contains(t, out, "Forced version 1")

	_, err = runRoot(t, "migrate", "force", "x", "--database-url", "postgres://duet@db/duet")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrateFailureStillCloses(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{err: errors.New("dirty database")}
	useMigrator(t, m)

	_, err := runRoot(t, "migrate", "up", "--database-url", "postgres://duet@db/duet")
	require.Error(t, err)
	assert.Equal(t, []string{"up", "close"}, m.calls)
}
