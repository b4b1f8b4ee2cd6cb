package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/graft-sh/graft/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DBTX is the subset of *sql.DB and *sql.Tx used by the query helpers.
// Operations that must be atomic (snapshot publish, suggestion apply) run the
// helpers inside a transaction.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/graft.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.graft.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Create exports subdirectory
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "graft.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
		  version_id   TEXT PRIMARY KEY,
		  timestamp    INTEGER NOT NULL,
		  label        TEXT,
		  created_by   TEXT NOT NULL,
		  changes_json TEXT
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_label
		ON snapshots(label)
		WHERE label IS NOT NULL;

		CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp
		ON snapshots(timestamp DESC);

		CREATE TABLE IF NOT EXISTS snapshot_files (
		  version_id TEXT NOT NULL,
		  ord        INTEGER NOT NULL,
		  path       TEXT NOT NULL,
		  content    TEXT NOT NULL,
		  hash       TEXT NOT NULL,
		  PRIMARY KEY (version_id, ord)
		);

		CREATE TABLE IF NOT EXISTS analyses (
		  id              TEXT PRIMARY KEY,
		  timestamp       INTEGER NOT NULL,
		  content         TEXT NOT NULL,
		  structured_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_analyses_timestamp
		ON analyses(timestamp DESC);

		CREATE TABLE IF NOT EXISTS suggestions (
		  id               TEXT PRIMARY KEY,
		  analysis_id      TEXT NOT NULL,
		  type             TEXT NOT NULL,
		  ord              INTEGER NOT NULL,
		  target_file      TEXT,
		  tool_name        TEXT,
		  description      TEXT NOT NULL,
		  rationale        TEXT NOT NULL,
		  suggested_change TEXT,
		  confidence       REAL NOT NULL,
		  priority         TEXT NOT NULL,
		  status           TEXT NOT NULL DEFAULT 'pending',
		  applied_version  TEXT,
		  created_at       INTEGER NOT NULL,
		  resolved_at      INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_suggestions_analysis
		ON suggestions(analysis_id, type, ord);

		CREATE INDEX IF NOT EXISTS idx_suggestions_status
		ON suggestions(status, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
