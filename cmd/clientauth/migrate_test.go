package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientauth/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "negative parses and is rejected later", input: "-1", wantVersion: -1},
		{name: "non-numeric returns error", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "empty string returns error", input: "", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got)
		})
	}
}

type fakeMigrator struct {
	calls    []string
	forced   int
	upErr    error
	closeErr error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return 1, false, nil
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return nil
}

func (f *fakeMigrator) Close() error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func useFakeMigrator(t *testing.T, fake *fakeMigrator) {
	t.Helper()
	orig := openMigrator
	openMigrator = func(string) (migrator, error) { return fake, nil }
	t.Cleanup(func() { openMigrator = orig })
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")

	t.Run("up closes the migrator", func(t *testing.T) {
		fake := &fakeMigrator{}
		useFakeMigrator(t, fake)

		out, err := runCLI(t, "migrate", "up")
		require.NoError(t, err)
		assert.Equal(t, []string{"up", "close"}, fake.calls)
		assert.Contains(t, out, "Migrations applied")
	})

	t.Run("version prints the schema version", func(t *testing.T) {
		fake := &fakeMigrator{}
		useFakeMigrator(t, fake)

		out, err := runCLI(t, "migrate", "version")
		require.NoError(t, err)
		assert.Contains(t, out, "version 1 (dirty: false)")
	})

	t.Run("force passes the parsed version", func(t *testing.T) {
		fake := &fakeMigrator{}
		useFakeMigrator(t, fake)

		_, err := runCLI(t, "migrate", "force", "4")
		require.NoError(t, err)
		assert.Equal(t, 4, fake.forced)
	})

	t.Run("up error wins over close error", func(t *testing.T) {
		upErr := errors.New("dirty database")
		fake := &fakeMigrator{upErr: upErr, closeErr: errors.New("close failed")}
		useFakeMigrator(t, fake)

		_, err := runCLI(t, "migrate", "up")
		assert.ErrorIs(t, err, upErr)
	})

	t.Run("close error surfaces on success", func(t *testing.T) {
		closeErr := errors.New("close failed")
		fake := &fakeMigrator{closeErr: closeErr}
		useFakeMigrator(t, fake)

		_, err := runCLI(t, "migrate", "down")
		assert.ErrorIs(t, err, closeErr)
	})
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	useFakeMigrator(t, &fakeMigrator{})

	_, err := runCLI(t, "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
