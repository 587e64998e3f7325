package migration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgres", DatabaseTypePostgres, false},
		{"postgresql", DatabaseTypePostgres, false},
		{"pg", DatabaseTypePostgres, false},
		{"mysql", DatabaseTypeMySQL, false},
		{"mariadb", DatabaseTypeMySQL, false},
		{"sqlite", DatabaseTypeSQLite, false},
		{" SQLite3 ", DatabaseTypeSQLite, false},
		{"POSTGRES", DatabaseTypePostgres, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDatabaseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAvailableMigrations(t *testing.T) {
	for _, dbType := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL} {
		t.Run(string(dbType), func(t *testing.T) {
			files, err := AvailableMigrations(dbType)
			require.NoError(t, err)
			require.Len(t, files, 2)
			assert.Equal(t, MigrationFile{Version: 1, Name: "create_model_configs"}, files[0])
			assert.Equal(t, MigrationFile{Version: 2, Name: "index_model_configs_provider"}, files[1])
		})
	}

	_, err := AvailableMigrations(DatabaseTypeSQLite)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestEmbeddedSourcesAreReadable(t *testing.T) {
	for _, dbType := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL} {
		t.Run(string(dbType), func(t *testing.T) {
			fsys, dir, err := migrationsFor(dbType)
			require.NoError(t, err)

			src, err := iofs.New(fsys, dir)
			require.NoError(t, err)
			defer src.Close()

			first, err := src.First()
			require.NoError(t, err)
			assert.Equal(t, uint(1), first)

			up, _, err := src.ReadUp(first)
			require.NoError(t, err)
			body, err := io.ReadAll(up)
			require.NoError(t, err)
			_ = up.Close()
			assert.Contains(t, string(body), "model_configs")
			assert.Contains(t, string(body), "model_key")

			down, _, err := src.ReadDown(first)
			require.NoError(t, err)
			_ = down.Close()

			next, err := src.Next(first)
			require.NoError(t, err)
			assert.Equal(t, uint(2), next)
		})
	}
}

func TestNewMigratorRejections(t *testing.T) {
	_, err := NewMigrator(nil, Config{DatabaseType: DatabaseTypePostgres}, nil)
	assert.ErrorContains(t, err, "connection is required")
}

func TestStatusAndInfo(t *testing.T) {
	files := []MigrationFile{{1, "a"}, {2, "b"}, {3, "c"}}

	statuses := statusOf(files, 2, true)
	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[0].Dirty)
	assert.True(t, statuses[1].Applied)
	assert.True(t, statuses[1].Dirty)
	assert.False(t, statuses[2].Applied)

	info := infoOf(files, 2, true)
	assert.Equal(t, &MigrationInfo{
		CurrentVersion:    2,
		Dirty:             true,
		TotalMigrations:   3,
		AppliedMigrations: 2,
		PendingMigrations: 1,
	}, info)

	assert.Equal(t, 3, infoOf(files, 0, false).PendingMigrations)
}

// fakeMigrator 在内存中模拟版本推进
type fakeMigrator struct {
	files   []MigrationFile
	current uint
	dirty   bool
	upErr   error
	closed  bool
}

func (f *fakeMigrator) Up(context.Context) error {
	if f.upErr != nil {
		return f.upErr
	}
	f.current = f.files[len(f.files)-1].Version
	return nil
}

func (f *fakeMigrator) Down(context.Context) error {
	if f.current > 0 {
		f.current--
	}
	return nil
}

func (f *fakeMigrator) Version(context.Context) (uint, bool, error) {
	return f.current, f.dirty, nil
}

func (f *fakeMigrator) Status(context.Context) ([]MigrationStatus, error) {
	return statusOf(f.files, f.current, f.dirty), nil
}

func (f *fakeMigrator) Info(context.Context) (*MigrationInfo, error) {
	return infoOf(f.files, f.current, f.dirty), nil
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func TestCLI(t *testing.T) {
	ctx := context.Background()
	fake := &fakeMigrator{files: []MigrationFile{{1, "create_model_configs"}, {2, "index_model_configs_provider"}}}
	var out bytes.Buffer
	cli := NewCLI(fake, &out)

	require.NoError(t, cli.Run(ctx, "version"))
	assert.Contains(t, out.String(), "No migrations applied yet.")

	out.Reset()
	require.NoError(t, cli.Run(ctx, "up"))
	assert.Contains(t, out.String(), "Current version: 2")

	out.Reset()
	require.NoError(t, cli.Run(ctx, "status"))
	assert.Regexp(t, `000001\s+create_model_configs\s+Applied`, out.String())
	assert.Contains(t, out.String(), "Applied")
	assert.Contains(t, out.String(), "Total: 2, Applied: 2, Pending: 0")

	out.Reset()
	require.NoError(t, cli.Run(ctx, "down"))
	assert.Contains(t, out.String(), "Rollback complete. Current version: 1")

	fake.dirty = true
	out.Reset()
	require.NoError(t, cli.Run(ctx, "version"))
	assert.Equal(t, "Current version: 1 (dirty)\n", out.String())

	assert.ErrorContains(t, cli.Run(ctx, "sideways"), "unknown migrate command")

	fake.upErr = errors.New("lock timeout")
	assert.ErrorContains(t, cli.Run(ctx, "up"), "lock timeout")
}
