package caci

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/caci"
)

const certificateColumns = "id, member_id, file_key, expiry_date, status, scheduled_deletion_date, consent, rejection_reason, uploaded_at, reviewed_by, reviewed_at"

// SQLiteStore implements CertificateStore using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new certificate store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (domain.Certificate, error) {
	var entity domain.Certificate
	var expiryDate, uploadedAt string
	var deletionDate, rejectionReason, reviewedBy, reviewedAt sql.NullString
	err := row.Scan(
		&entity.ID,
		&entity.MemberID,
		&entity.FileKey,
		&expiryDate,
		&entity.Status,
		&deletionDate,
		&entity.Consent,
		&rejectionReason,
		&uploadedAt,
		&reviewedBy,
		&reviewedAt,
	)
	if err != nil {
		return domain.Certificate{}, err
	}
	entity.RejectionReason = rejectionReason.String
	entity.ReviewedBy = reviewedBy.String
	if entity.ExpiryDate, err = storage.ParseStoredTime(expiryDate); err != nil {
		return domain.Certificate{}, fmt.Errorf("failed to parse expiry_date: %w", err)
	}
	if entity.ScheduledDeletionDate, err = storage.ParseNullTime(deletionDate); err != nil {
		return domain.Certificate{}, fmt.Errorf("failed to parse scheduled_deletion_date: %w", err)
	}
	if entity.UploadedAt, err = storage.ParseStoredTime(uploadedAt); err != nil {
		return domain.Certificate{}, fmt.Errorf("failed to parse uploaded_at: %w", err)
	}
	if reviewedAt.Valid && reviewedAt.String != "" {
		t, err := storage.ParseStoredTime(reviewedAt.String)
		if err != nil {
			return domain.Certificate{}, fmt.Errorf("failed to parse reviewed_at: %w", err)
		}
		entity.ReviewedAt = &t
	}
	return entity, nil
}

// GetByID retrieves a Certificate by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM medical_certificate WHERE id = ?"
	entity, err := scanCertificate(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Certificate{}, fmt.Errorf("certificate not found: %w", err)
	}
	return entity, err
}

// GetCurrentByMember retrieves the member's validated, unexpired certificate.
// When several qualify the one expiring last wins.
// PRE: memberID is non-empty
// POST: Returns the entity or an error if none is currently valid
func (s *SQLiteStore) GetCurrentByMember(ctx context.Context, memberID string, now time.Time) (domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM medical_certificate WHERE member_id = ? AND status = 'validated' AND expiry_date >= ? ORDER BY expiry_date DESC LIMIT 1"
	entity, err := scanCertificate(s.db.QueryRowContext(ctx, query, memberID, storage.FormatDate(now)))
	if err == sql.ErrNoRows {
		return domain.Certificate{}, fmt.Errorf("no valid certificate: %w", err)
	}
	return entity, err
}

// Save persists a Certificate to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Certificate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(certificateColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO medical_certificate (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		certificateColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	var reviewedAt any
	if entity.ReviewedAt != nil {
		reviewedAt = storage.FormatTime(*entity.ReviewedAt)
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.MemberID,
		entity.FileKey,
		storage.FormatDate(entity.ExpiryDate),
		entity.Status,
		storage.NullDate(entity.ScheduledDeletionDate),
		entity.Consent,
		storage.NullString(entity.RejectionReason),
		storage.FormatTime(entity.UploadedAt),
		storage.NullString(entity.ReviewedBy),
		reviewedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a Certificate from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM medical_certificate WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Certificate
	for rows.Next() {
		entity, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListByMember retrieves all certificates of a member, newest upload first.
// PRE: memberID is non-empty
// POST: Returns entities ordered by upload time descending
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string) ([]domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM medical_certificate WHERE member_id = ? ORDER BY uploaded_at DESC"
	return s.list(ctx, query, memberID)
}

// ListByStatus retrieves all certificates with the given status, oldest
// upload first so review queues are FIFO.
// PRE: status is a valid certificate status
// POST: Returns entities ordered by upload time ascending
func (s *SQLiteStore) ListByStatus(ctx context.Context, status string) ([]domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM medical_certificate WHERE status = ? ORDER BY uploaded_at ASC"
	return s.list(ctx, query, status)
}

// ListDueForDeletion retrieves certificates whose retention window has
// elapsed as of the given date (inclusive).
// PRE: asOf is non-zero
// POST: Returns entities with scheduled_deletion_date <= asOf
func (s *SQLiteStore) ListDueForDeletion(ctx context.Context, asOf time.Time) ([]domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM medical_certificate WHERE scheduled_deletion_date IS NOT NULL AND scheduled_deletion_date <= ? ORDER BY scheduled_deletion_date ASC"
	return s.list(ctx, query, storage.FormatDate(asOf))
}

// ListExpiringOn retrieves validated certificates expiring on exactly the
// given calendar day.
// PRE: day is non-zero
// POST: Returns entities with expiry_date equal to the day
func (s *SQLiteStore) ListExpiringOn(ctx context.Context, day time.Time) ([]domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM medical_certificate WHERE status = 'validated' AND expiry_date = ? ORDER BY member_id ASC"
	return s.list(ctx, query, storage.FormatDate(day))
}
