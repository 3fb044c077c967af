// Package store provides storage backends for Courier.
//
// This file implements the SQLite-backed store. SQLite is the primary
// deployment target: a single service instance owns the database file.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is the SQLite implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// ClearEmailQueue deletes all records in the email queue table (for tests).
func (s *SQLiteStore) ClearEmailQueue() error {
	_, err := s.db.Exec("DELETE FROM email_queue")
	if err != nil {
		slog.Error("SQLiteStore ClearEmailQueue failed", "error", err)
		return err
	}
	return nil
}

// ClearThrottle deletes all throttle records (for tests).
func (s *SQLiteStore) ClearThrottle() error {
	_, err := s.db.Exec("DELETE FROM email_throttle")
	if err != nil {
		slog.Error("SQLiteStore ClearThrottle failed", "error", err)
		return err
	}
	return nil
}

// ClearTemplates deletes all email templates (for tests).
func (s *SQLiteStore) ClearTemplates() error {
	_, err := s.db.Exec("DELETE FROM email_templates")
	if err != nil {
		slog.Error("SQLiteStore ClearTemplates failed", "error", err)
		return err
	}
	return nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
