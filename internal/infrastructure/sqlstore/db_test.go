package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "catalog.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err, "NewDB should create nested directories")
	defer db.Close()

	info, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
}

func TestNewDB_RunsMigrations(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{
		"data_models", "data_schemas", "field_definitions", "key_definitions", "key_fields", "schema_tags",
		"transformation_specs", "simple_rules", "graph_nodes", "graph_edges", "output_bindings",
		"transform_references", "validation_specs", "validation_rules", "validation_references",
	} {
		var name string
		err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist after migrations", table)
	}

	var version int
	var dirty bool
	require.NoError(t, db.conn.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	require.Equal(t, 1, version)
	require.False(t, dirty)
	require.Equal(t, uint(1), db.SchemaVersion())
}

func TestNewDB_ReopenIsIdempotentAndBacksUp(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	db1, err := NewDB(dbPath)
	require.NoError(t, err)
	m, err := domain.NewDataModel("tenant-a", "crm", "CRM", "")
	require.NoError(t, err)
	require.NoError(t, db1.Store().DataModels().Save(context.Background(), m))
	require.NoError(t, db1.Close())

	db2, err := NewDB(dbPath)
	require.NoError(t, err, "second open should skip applied migrations")
	defer db2.Close()

	got, err := db2.Store().DataModels().Get(context.Background(), m.ID())
	require.NoError(t, err)
	require.Equal(t, "crm", got.Key())

	info, err := os.Stat(dbPath + ".bak")
	require.NoError(t, err, "backup should exist after reopening")
	require.Greater(t, info.Size(), int64(0))
}

func TestNewDB_Pragmas(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	require.NoError(t, db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, db.conn.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	require.Equal(t, 1, foreignKeys)

	var busyTimeout int
	require.NoError(t, db.conn.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	require.Equal(t, 5000, busyTimeout)
}

func TestDB_Close(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Error(t, db.conn.Ping(), "ping should fail after Close")
}

func TestDB_Connection(t *testing.T) {
	db := setupTestDB(t)
	conn := db.Connection()
	require.IsType(t, (*sql.DB)(nil), conn)
	require.NoError(t, conn.Ping())
	require.Equal(t, DialectSQLite, db.Dialect())
}

func TestDB_DoRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	m, err := domain.NewDataModel("tenant-a", "crm", "", "")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Do(ctx, func(ctx context.Context, s domain.Store) error {
		if err := s.DataModels().Save(ctx, m); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = db.Store().DataModels().Get(ctx, m.ID())
	require.ErrorIs(t, err, domain.ErrNotFound, "rolled back insert must not be visible")
}

func TestDB_DoCommits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	m, err := domain.NewDataModel("tenant-a", "crm", "", "")
	require.NoError(t, err)

	require.NoError(t, db.Do(ctx, func(ctx context.Context, s domain.Store) error {
		return s.DataModels().Save(ctx, m)
	}))

	got, err := db.Store().DataModels().FindByKey(ctx, "tenant-a", "crm")
	require.NoError(t, err)
	require.Equal(t, m.ID(), got.ID())
}

func TestRunner_Rebind(t *testing.T) {
	pg := runner{dialect: DialectPostgres}
	require.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	require.Equal(t, "SELECT 1", pg.rebind("SELECT 1"))

	lite := runner{dialect: DialectSQLite}
	require.Equal(t, "WHERE x = ?", lite.rebind("WHERE x = ?"))
}

func TestNewPostgresDB(t *testing.T) {
	dsn := os.Getenv("SPECFORGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SPECFORGE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := NewPostgresDB(ctx, dsn, 4)
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, DialectPostgres, db.Dialect())

	m, err := domain.NewDataModel("tenant-pg-"+domain.NewID(), "crm", "", "")
	require.NoError(t, err)
	require.NoError(t, db.Store().DataModels().Save(ctx, m))

	dup, err := domain.NewDataModel(m.TenantID(), "crm", "", "")
	require.NoError(t, err)
	require.ErrorIs(t, db.Store().DataModels().Save(ctx, dup), domain.ErrDuplicate)
	require.NoError(t, db.Store().DataModels().Delete(ctx, m.ID()))
}

func TestNewPostgresDB_RequiresDSN(t *testing.T) {
	_, err := NewPostgresDB(context.Background(), "", 1)
	require.Error(t, err)
}
