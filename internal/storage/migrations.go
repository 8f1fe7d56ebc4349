package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
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
		Description: "Initial schema: extractions and feature usage",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS extractions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					sender_name TEXT,
					sender_phone TEXT,
					category TEXT NOT NULL,
					raw_text TEXT NOT NULL,
					language TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					payload TEXT,
					manually_corrected BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_extractions_user ON extractions(user_id, created_at)`,
				`CREATE INDEX idx_extractions_category ON extractions(category)`,
				`CREATE INDEX idx_extractions_status ON extractions(status)`,

				`CREATE TABLE IF NOT EXISTS feature_usage (
					user_id TEXT NOT NULL,
					feature TEXT NOT NULL,
					month_key TEXT NOT NULL,
					count INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, feature, month_key)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add orders created from processed extractions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS orders (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					extraction_id TEXT,
					customer_name TEXT,
					customer_phone TEXT,
					items TEXT,
					total_amount REAL,
					notes TEXT,
					created_at DATETIME NOT NULL,
					FOREIGN KEY (extraction_id) REFERENCES extractions(id)
				)`,
				`CREATE INDEX idx_orders_user ON orders(user_id, created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add correction history for auditing",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS extraction_corrections (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					extraction_id TEXT NOT NULL,
					previous_category TEXT NOT NULL,
					previous_confidence REAL NOT NULL,
					previous_payload TEXT,
					corrected_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (extraction_id) REFERENCES extractions(id)
				)`,
				`CREATE INDEX idx_extraction_corrections_extraction ON extraction_corrections(extraction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
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

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
