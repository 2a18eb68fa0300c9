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
		Description: "Initial installment schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS installments (
					id TEXT PRIMARY KEY,
					owner_client_name TEXT NOT NULL,
					linked_record_id TEXT NOT NULL DEFAULT '',
					cadence TEXT NOT NULL,
					sequence_index INTEGER NOT NULL,
					total_periods INTEGER NOT NULL,
					amount TEXT NOT NULL,
					due_date TEXT NOT NULL,
					active BOOLEAN NOT NULL DEFAULT 1,
					notification_timing TEXT NOT NULL,
					created_at TEXT NOT NULL,
					UNIQUE (owner_client_name, linked_record_id, cadence, sequence_index)
				)`,
				`CREATE INDEX idx_installments_owner ON installments(owner_client_name, linked_record_id, cadence)`,
				`CREATE INDEX idx_installments_due_date ON installments(due_date)`,
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
		Description: "Add appointment and analysis records",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS appointments (
					id TEXT PRIMARY KEY,
					client_name TEXT NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					monthly_plan TEXT,
					weekly_plan TEXT,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_appointments_client_name ON appointments(client_name)`,

				`CREATE TABLE IF NOT EXISTS analyses (
					id TEXT PRIMARY KEY,
					client_name TEXT NOT NULL DEFAULT '',
					legacy_name TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					monthly_plan TEXT,
					weekly_plan TEXT,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track manually postponed installments",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				ALTER TABLE installments
				ADD COLUMN postponed BOOLEAN NOT NULL DEFAULT 0
			`)
			if err != nil {
				return fmt.Errorf("failed to add postponed column: %w", err)
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

// SchemaVersion reports the schema version currently applied.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
