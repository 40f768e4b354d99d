// Package sqlstore implements the catalog repositories on SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/log"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Dialect selects placeholder style and migration set.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB owns the connection pool and hands out repositories bound to it.
type DB struct {
	conn          *sql.DB
	dialect       Dialect
	schemaVersion uint
}

var (
	_ domain.UnitOfWork = (*DB)(nil)
	_ domain.Store      = (*store)(nil)
)

// NewDB opens (creating if needed) the SQLite database at path and runs
// migrations. An existing file is copied to path+".bak" first.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path, path+".bak"); err != nil {
			return nil, fmt.Errorf("failed to back up database: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_txlock=immediate"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{conn: conn, dialect: DialectSQLite}
	if err := db.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Debug(log.CatDB, "Opened SQLite catalog", "path", path)
	return db, nil
}

// NewPostgresDB connects to PostgreSQL and runs migrations.
func NewPostgresDB(ctx context.Context, dsn string, maxOpenConns int) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		conn.SetMaxOpenConns(maxOpenConns)
		conn.SetMaxIdleConns(max(1, maxOpenConns/5))
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dialect: DialectPostgres}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Debug(log.CatDB, "Connected to PostgreSQL catalog")
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Connection returns the underlying *sql.DB.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// Dialect reports which database the catalog runs on.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// SchemaVersion returns the migration version applied when the database was opened.
func (db *DB) SchemaVersion() uint {
	return db.schemaVersion
}

// Store returns repositories bound to the pool, outside any transaction.
func (db *DB) Store() domain.Store {
	return &store{q: runner{q: db.conn, dialect: db.dialect}}
}

// Do runs fn in a transaction. The transaction commits when fn returns nil
// and rolls back otherwise.
func (db *DB) Do(ctx context.Context, fn func(ctx context.Context, s domain.Store) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, &store{q: runner{q: tx, dialect: db.dialect}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	var (
		fsys   embed.FS
		dir    string
		driver database.Driver
	)
	switch db.dialect {
	case DialectSQLite:
		fsys, dir = sqliteMigrations, "migrations/sqlite"
		driver = &sqliteMigrator{conn: db.conn}
	case DialectPostgres:
		fsys, dir = postgresMigrations, "migrations/postgres"
		conn, err := db.conn.Conn(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
	default:
		return fmt.Errorf("unknown dialect %q", db.dialect)
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(db.dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		db.schemaVersion = version
		log.Debug(log.CatDB, "Schema migrated", "dialect", string(db.dialect), "version", version, "dirty", dirty)
	}
	return nil
}

func backupFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path comes from configuration
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // sibling of the configured path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
