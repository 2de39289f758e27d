package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is a single schema change applied exactly once, in order.
type migration struct {
	version int
	name    string
	apply   func(db *sql.DB) error
}

// migrations lists every schema change after the base schema (version 1).
// Never reorder or edit an applied migration; append a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "base_schema",
		apply:   InitDB,
	},
	{
		version: 2,
		name:    "participation_event_index",
		apply: func(db *sql.DB) error {
			_, err := db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_participation_event
					ON participation(event_id, status);
				CREATE INDEX IF NOT EXISTS idx_participation_member
					ON participation(member_id);
			`)
			return err
		},
	},
	{
		version: 3,
		name:    "certificate_deletion_index",
		apply: func(db *sql.DB) error {
			_, err := db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_certificate_deletion
					ON medical_certificate(scheduled_deletion_date);
				CREATE INDEX IF NOT EXISTS idx_access_log_occurred
					ON caci_access_log(occurred_at);
			`)
			return err
		},
	},
}

// LatestSchemaVersion returns the highest known migration version.
// PRE: none
// POST: Returns the version the database reaches after MigrateDB
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the highest applied migration version.
// PRE: db is a valid database connection with a schema_version table
// POST: Returns version >= 0
func SchemaVersion(db *sql.DB) (int, error) {
	var current int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current)
	return current, err
}

// MigrateDB brings the database schema up to the latest version.
// Applied versions are tracked in schema_version; re-running is a no-op.
// PRE: db is a valid database connection
// POST: All pending migrations applied in ascending version order
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(db); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		slog.Info("schema_migrated", "db", dbPath, "version", m.version, "name", m.name)
	}

	return nil
}
