package event

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/event"
)

const eventColumns = "id, title, type, description, location, start_date, end_date, max_participants, min_diving_level, min_age, max_age, requires_caci, requires_diving_director, requires_pilot, requires_boat, allow_waiting_list, created_by, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var entity domain.Event
	var description, location, endDate sql.NullString
	var startDate, createdAt string
	err := row.Scan(
		&entity.ID,
		&entity.Title,
		&entity.Type,
		&description,
		&location,
		&startDate,
		&endDate,
		&entity.MaxParticipants,
		&entity.MinDivingLevel,
		&entity.MinAge,
		&entity.MaxAge,
		&entity.RequiresCACI,
		&entity.RequiresDivingDirector,
		&entity.RequiresPilot,
		&entity.RequiresBoat,
		&entity.AllowWaitingList,
		&entity.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	entity.Description = description.String
	entity.Location = location.String
	if entity.StartDate, err = storage.ParseStoredTime(startDate); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if entity.EndDate, err = storage.ParseNullTime(endDate); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return entity, nil
}

// GetByID retrieves an Event by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM event WHERE id = ?"
	entity, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Event{}, fmt.Errorf("event not found: %w", err)
	}
	return entity, err
}

// Save persists an Event to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(eventColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO event (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		eventColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Title,
		entity.Type,
		storage.NullString(entity.Description),
		storage.NullString(entity.Location),
		storage.FormatTime(entity.StartDate),
		storage.NullTime(entity.EndDate),
		entity.MaxParticipants,
		entity.MinDivingLevel,
		entity.MinAge,
		entity.MaxAge,
		entity.RequiresCACI,
		entity.RequiresDivingDirector,
		entity.RequiresPilot,
		entity.RequiresBoat,
		entity.AllowWaitingList,
		entity.CreatedBy,
		storage.FormatTime(entity.CreatedAt),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an Event from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM event WHERE id = ?", id)
	return err
}

// List retrieves events matching the filter, ordered by start date.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM event WHERE 1=1"
	var args []any

	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if !filter.From.IsZero() {
		query += " AND start_date >= ?"
		args = append(args, storage.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += " AND start_date < ?"
		args = append(args, storage.FormatTime(filter.To))
	}

	query += " ORDER BY start_date ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Event
	for rows.Next() {
		entity, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListUpcoming retrieves events starting at or after the given time.
// PRE: limit > 0
// POST: Returns events ordered by start date, earliest first
func (s *SQLiteStore) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]domain.Event, error) {
	return s.List(ctx, ListFilter{From: from, Limit: limit})
}
