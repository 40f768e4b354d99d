package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

const migrationsTable = "schema_migrations"

// sqliteMigrator is a migrate database.Driver over an open ncruces
// connection pool. Close leaves the pool open.
type sqliteMigrator struct {
	conn   *sql.DB
	locked atomic.Bool
}

var _ database.Driver = (*sqliteMigrator)(nil)

func (m *sqliteMigrator) Open(string) (database.Driver, error) {
	return nil, errors.New("sqlite migrator is created from an existing connection")
}

func (m *sqliteMigrator) Close() error { return nil }

func (m *sqliteMigrator) Lock() error {
	if !m.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (m *sqliteMigrator) Unlock() error {
	if !m.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (m *sqliteMigrator) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	tx, err := m.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(body)); err != nil {
		_ = tx.Rollback()
		return database.Error{OrigErr: err, Err: "migration failed", Query: body}
	}
	return tx.Commit()
}

func (m *sqliteMigrator) SetVersion(version int, dirty bool) error {
	if err := m.ensureTable(); err != nil {
		return err
	}
	tx, err := m.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM ` + migrationsTable); err != nil {
		_ = tx.Rollback()
		return err
	}
	if version >= 0 || (version == database.NilVersion && dirty) {
		if _, err := tx.Exec(`INSERT INTO `+migrationsTable+` (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (m *sqliteMigrator) Version() (int, bool, error) {
	if err := m.ensureTable(); err != nil {
		return 0, false, err
	}
	var (
		version int
		dirty   bool
	)
	err := m.conn.QueryRow(`SELECT version, dirty FROM ` + migrationsTable + ` LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

func (m *sqliteMigrator) Drop() error {
	rows, err := m.conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	if _, err := m.conn.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		return err
	}
	defer func() { _, _ = m.conn.Exec(`PRAGMA foreign_keys = ON`) }()
	for _, t := range tables {
		if _, err := m.conn.Exec(`DROP TABLE IF EXISTS "` + t + `"`); err != nil {
			return err
		}
	}
	return nil
}

func (m *sqliteMigrator) ensureTable() error {
	_, err := m.conn.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (version BIGINT NOT NULL, dirty BOOLEAN NOT NULL)`)
	return err
}
