package storage

import (
	"database/sql"
	"fmt"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create tables
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		password_change_required INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS activation_token (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS member (
		id TEXT PRIMARY KEY,
		account_id TEXT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		birth_date TEXT,
		diving_level TEXT NOT NULL DEFAULT '',
		freediving_level TEXT NOT NULL DEFAULT '',
		insured INTEGER NOT NULL DEFAULT 0,
		is_diver INTEGER NOT NULL DEFAULT 0,
		is_freediver INTEGER NOT NULL DEFAULT 0,
		is_pilot INTEGER NOT NULL DEFAULT 0,
		is_instructor INTEGER NOT NULL DEFAULT 0,
		is_diving_director INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		location TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT,
		max_participants INTEGER NOT NULL DEFAULT 0,
		min_diving_level TEXT NOT NULL DEFAULT '',
		min_age INTEGER NOT NULL DEFAULT 0,
		max_age INTEGER NOT NULL DEFAULT 0,
		requires_caci INTEGER NOT NULL DEFAULT 0,
		requires_diving_director INTEGER NOT NULL DEFAULT 0,
		requires_pilot INTEGER NOT NULL DEFAULT 0,
		requires_boat INTEGER NOT NULL DEFAULT 0,
		allow_waiting_list INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS eligibility_rule (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		attribute TEXT NOT NULL,
		operator TEXT NOT NULL,
		raw_value TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		display_order INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (event_id) REFERENCES event(id)
	);

	CREATE TABLE IF NOT EXISTS participation (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		status TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		is_waiting_list INTEGER NOT NULL DEFAULT 0,
		meeting_point TEXT,
		participation_type TEXT,
		created_at TEXT NOT NULL,
		cancelled_at TEXT,
		FOREIGN KEY (event_id) REFERENCES event(id),
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE TABLE IF NOT EXISTS medical_certificate (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		file_key TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		status TEXT NOT NULL,
		scheduled_deletion_date TEXT,
		consent INTEGER NOT NULL DEFAULT 0,
		rejection_reason TEXT,
		uploaded_at TEXT NOT NULL,
		reviewed_by TEXT,
		reviewed_at TEXT,
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE TABLE IF NOT EXISTS caci_access_log (
		id TEXT PRIMARY KEY,
		certificate_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		context TEXT,
		occurred_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gallery (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT UNIQUE,
		description TEXT,
		event_id TEXT,
		expiry_date TEXT,
		published INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gallery_photo (
		id TEXT PRIMARY KEY,
		gallery_id TEXT NOT NULL,
		file_key TEXT NOT NULL,
		caption TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (gallery_id) REFERENCES gallery(id)
	);

	CREATE TABLE IF NOT EXISTS article (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		title TEXT NOT NULL,
		slug TEXT,
		content TEXT NOT NULL,
		created_by TEXT NOT NULL,
		published_by TEXT,
		author_name TEXT NOT NULL DEFAULT '',
		show_author INTEGER NOT NULL DEFAULT 0,
		pinned INTEGER NOT NULL DEFAULT 0,
		pinned_at TEXT,
		visible_from TEXT,
		visible_until TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		published_at TEXT
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT,
		error_message TEXT
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
