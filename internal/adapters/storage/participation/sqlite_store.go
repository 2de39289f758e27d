package participation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/participation"
)

const participationColumns = "id, event_id, member_id, status, quantity, is_waiting_list, meeting_point, participation_type, created_at, cancelled_at"

// countingStatuses is the set of statuses that consume capacity.
const countingStatuses = "('registered', 'confirmed')"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new participation store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipation(row rowScanner) (domain.Participation, error) {
	var entity domain.Participation
	var meetingPoint, participationType, cancelledAt sql.NullString
	var createdAt string
	err := row.Scan(
		&entity.ID,
		&entity.EventID,
		&entity.MemberID,
		&entity.Status,
		&entity.Quantity,
		&entity.IsWaitingList,
		&meetingPoint,
		&participationType,
		&createdAt,
		&cancelledAt,
	)
	if err != nil {
		return domain.Participation{}, err
	}
	entity.MeetingPoint = meetingPoint.String
	entity.ParticipationType = participationType.String
	if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
		return domain.Participation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if cancelledAt.Valid && cancelledAt.String != "" {
		t, err := storage.ParseStoredTime(cancelledAt.String)
		if err != nil {
			return domain.Participation{}, fmt.Errorf("failed to parse cancelled_at: %w", err)
		}
		entity.CancelledAt = &t
	}
	return entity, nil
}

// GetByID retrieves a Participation by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Participation, error) {
	query := "SELECT " + participationColumns + " FROM participation WHERE id = ?"
	entity, err := scanParticipation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Participation{}, fmt.Errorf("participation not found: %w", err)
	}
	return entity, err
}

// GetActiveByEventAndMember retrieves the member's non-cancelled
// participation for an event.
// PRE: eventID and memberID are non-empty
// POST: Returns the entity or sql.ErrNoRows wrapped if none exists
func (s *SQLiteStore) GetActiveByEventAndMember(ctx context.Context, eventID, memberID string) (domain.Participation, error) {
	query := "SELECT " + participationColumns + " FROM participation WHERE event_id = ? AND member_id = ? AND status != 'cancelled'"
	entity, err := scanParticipation(s.db.QueryRowContext(ctx, query, eventID, memberID))
	if err == sql.ErrNoRows {
		return domain.Participation{}, fmt.Errorf("participation not found: %w", err)
	}
	return entity, err
}

func upsertQuery() string {
	fields := strings.Split(participationColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}
	return fmt.Sprintf(
		"INSERT INTO participation (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		participationColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

func upsertArgs(entity domain.Participation) []any {
	var cancelledAt any
	if entity.CancelledAt != nil {
		cancelledAt = storage.FormatTime(*entity.CancelledAt)
	}
	return []any{
		entity.ID,
		entity.EventID,
		entity.MemberID,
		entity.Status,
		entity.Quantity,
		entity.IsWaitingList,
		storage.NullString(entity.MeetingPoint),
		storage.NullString(entity.ParticipationType),
		storage.FormatTime(entity.CreatedAt),
		cancelledAt,
	}
}

// Save persists a Participation to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Participation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertQuery(), upsertArgs(entity)...); err != nil {
		return err
	}

	return tx.Commit()
}

// Register inserts a capacity-consuming participation atomically.
// The duplicate check, the capacity check and the insert happen in one
// transaction so concurrent registrations can never oversell an event.
// PRE: entity has been validated and has a counting status, maxParticipants >= 0
// POST: Entity inserted, or ErrCapacityFull / ErrDuplicate without any write
func (s *SQLiteStore) Register(ctx context.Context, entity domain.Participation, maxParticipants int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participation WHERE event_id = ? AND member_id = ? AND status != 'cancelled'",
		entity.EventID, entity.MemberID,
	).Scan(&existing)
	if err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicate
	}

	if maxParticipants > 0 {
		var taken int
		err = tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(quantity), 0) FROM participation WHERE event_id = ? AND status IN "+countingStatuses,
			entity.EventID,
		).Scan(&taken)
		if err != nil {
			return err
		}
		if taken+entity.Quantity > maxParticipants {
			return ErrCapacityFull
		}
	}

	if _, err := tx.ExecContext(ctx, upsertQuery(), upsertArgs(entity)...); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a Participation from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM participation WHERE id = ?", id)
	return err
}

// SumConfirmedQuantity returns the total spots consumed for an event.
// Cancelled and waiting participations do not count.
// PRE: eventID is non-empty
// POST: Returns sum >= 0
func (s *SQLiteStore) SumConfirmedQuantity(ctx context.Context, eventID string) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM participation WHERE event_id = ? AND status IN "+countingStatuses,
		eventID,
	).Scan(&sum)
	return sum, err
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Participation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Participation
	for rows.Next() {
		entity, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListByEvent retrieves all participations for an event, oldest first.
// PRE: eventID is non-empty
// POST: Returns entities ordered by registration time
func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Participation, error) {
	query := "SELECT " + participationColumns + " FROM participation WHERE event_id = ? ORDER BY created_at ASC, id ASC"
	return s.list(ctx, query, eventID)
}

// ListByMember retrieves all participations of a member, newest first.
// PRE: memberID is non-empty
// POST: Returns entities ordered by registration time descending
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string) ([]domain.Participation, error) {
	query := "SELECT " + participationColumns + " FROM participation WHERE member_id = ? ORDER BY created_at DESC, id DESC"
	return s.list(ctx, query, memberID)
}

// ListWaiting retrieves the waiting list for an event in FIFO order.
// PRE: eventID is non-empty
// POST: Returns waiting participations, earliest registration first
func (s *SQLiteStore) ListWaiting(ctx context.Context, eventID string) ([]domain.Participation, error) {
	query := "SELECT " + participationColumns + " FROM participation WHERE event_id = ? AND status = 'waiting_list' ORDER BY created_at ASC, id ASC"
	return s.list(ctx, query, eventID)
}
