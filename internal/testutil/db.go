// Package testutil provides catalog database setup and fixtures for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/infrastructure/sqlstore"
)

// Tenant is the tenant id fixtures use unless told otherwise.
const Tenant = "tenant-a"

// NewTestDB opens a migrated SQLite catalog in a temp dir. It is closed
// when the test ends.
func NewTestDB(t testing.TB) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.NewDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
