package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sift-go/internal/database/migrations"
	"sift-go/internal/sift"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements sift.Database using SQLite.
// Each store group is serialized by its own lock; the connection pool holds a
// single connection so ":memory:" databases behave like files.
type SQLiteDatabase struct {
	db   *sql.DB
	path string

	cacheMu   sync.Mutex
	configMu  sync.Mutex // categories and folders
	historyMu sync.Mutex
	indexMu   sync.Mutex
}

// NewSQLiteDatabase opens the database at path and applies pending migrations.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// CheckMigrations verifies that the database schema is current.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteDatabase) SchemaVersion() (uint, error) {
	v, dirty, err := migrations.Version(s.db)
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("database is in dirty state at version %d", v)
	}
	return v, nil
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements sift.Database interface
var _ sift.Database = (*SQLiteDatabase)(nil)
