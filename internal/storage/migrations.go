package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger entries",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS ledger_entries (
					transaction_id TEXT PRIMARY KEY,
					date TEXT NOT NULL,
					amount REAL NOT NULL CHECK (amount > 0),
					category TEXT NOT NULL,
					gst_rate REAL NOT NULL CHECK (gst_rate >= 0 AND gst_rate <= 100),
					gst_amount REAL NOT NULL,
					source TEXT NOT NULL CHECK (source IN ('receipt', 'voice')),
					confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
					explanation TEXT NOT NULL,
					vendor_name TEXT NOT NULL DEFAULT '',
					vendor_gstin TEXT NOT NULL DEFAULT '',
					raw_text TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_ledger_entries_date ON ledger_entries(date)`,
				`CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Pending decisions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS pending_decisions (
					transaction_id TEXT PRIMARY KEY,
					reason TEXT NOT NULL,
					payload TEXT NOT NULL,
					created_at INTEGER NOT NULL,
					expires_at INTEGER NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_pending_decisions_expires_at ON pending_decisions(expires_at)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Category and source reporting indexes",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX IF NOT EXISTS idx_ledger_entries_category ON ledger_entries(category)`,
				`CREATE INDEX IF NOT EXISTS idx_ledger_entries_date_source ON ledger_entries(date, source)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		s.logger.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
