package caci

import (
	"context"
	"database/sql"
	"time"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/caci"
)

const accessLogColumns = "id, certificate_id, actor_id, action, context, occurred_at"

// SQLiteAccessLogStore implements AccessLogStore using SQLite.
// The trail is append-only; entries are never updated.
type SQLiteAccessLogStore struct {
	db storage.SQLDB
}

// NewSQLiteAccessLogStore creates a new access log store.
func NewSQLiteAccessLogStore(db storage.SQLDB) *SQLiteAccessLogStore {
	return &SQLiteAccessLogStore{db: db}
}

// Append inserts an access log entry.
// PRE: entity has been validated
// POST: Entry is persisted
func (s *SQLiteAccessLogStore) Append(ctx context.Context, entity domain.AccessLog) error {
	query := "INSERT INTO caci_access_log (" + accessLogColumns + ") VALUES (?, ?, ?, ?, ?, ?)"
	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.CertificateID,
		entity.ActorID,
		entity.Action,
		storage.NullString(entity.Context),
		storage.FormatTime(entity.OccurredAt),
	)
	return err
}

// ListByCertificate retrieves the access trail of a certificate, newest first.
// PRE: certificateID is non-empty
// POST: Returns entries ordered by occurrence descending
func (s *SQLiteAccessLogStore) ListByCertificate(ctx context.Context, certificateID string) ([]domain.AccessLog, error) {
	query := "SELECT " + accessLogColumns + " FROM caci_access_log WHERE certificate_id = ? ORDER BY occurred_at DESC"
	rows, err := s.db.QueryContext(ctx, query, certificateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.AccessLog
	for rows.Next() {
		var entity domain.AccessLog
		var logContext sql.NullString
		var occurredAt string
		if err := rows.Scan(
			&entity.ID,
			&entity.CertificateID,
			&entity.ActorID,
			&entity.Action,
			&logContext,
			&occurredAt,
		); err != nil {
			return nil, err
		}
		entity.Context = logContext.String
		entity.OccurredAt, err = storage.ParseStoredTime(occurredAt)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// DeleteOlderThan removes entries older than the cutoff.
// PRE: cutoff is non-zero
// POST: Returns the number of removed entries
func (s *SQLiteAccessLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM caci_access_log WHERE occurred_at < ?",
		storage.FormatTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
