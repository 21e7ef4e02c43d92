package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"slices"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Driver names registered by the two SQLite packages.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// DefaultDriver is the driver Open uses.
const DefaultDriver = DriverCGO

// connPragmas are applied to every connection the store opens.
var connPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migrations[i] upgrades a database from user_version i+1 to i+2.
// Version 1 is the layout in schema.sql minus later indexes.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_objects_commit_seq ON objects(commit_seq)`,
}

// schemaVersion is the user_version of a fully migrated database.
var schemaVersion = len(migrations) + 1

// Store is the SQLite file behind a persistent engine: the commit log and
// the latest committed payload of every object.
type Store struct {
	db     *sql.DB
	driver string
}

// Open opens or creates the database at path with DefaultDriver.
// Opening an already migrated database changes nothing.
func Open(path string) (*Store, error) {
	return OpenWithDriver(DefaultDriver, path)
}

// OpenWithDriver is Open with an explicit driver: DriverCGO or DriverPureGo.
func OpenWithDriver(driver, path string) (*Store, error) {
	if !slices.Contains(Drivers(), driver) {
		return nil, fmt.Errorf("unknown sqlite driver %q (want %q or %q)", driver, DriverCGO, DriverPureGo)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection: SQLite serialises writers, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, driver: driver}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, pragma := range connPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return migrate(db)
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}

	// A fresh database reports version 0 and already has every table and
	// index from schema.sql; the migrations are idempotent either way.
	for v := max(version, 1); v < schemaVersion; v++ {
		if _, err := db.Exec(migrations[v-1]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{DriverCGO, DriverPureGo}
}

// Driver is the name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the database. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for queries Store has no method for.
func (s *Store) DB() *sql.DB {
	return s.db
}

// verifyPragma reports whether PRAGMA name currently reads as want.
func (s *Store) verifyPragma(name, want string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("%s = %q, want %q", name, got, want)
	}
	return nil
}
