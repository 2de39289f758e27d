package eligibility

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/eligibility"
)

const ruleColumns = "id, event_id, attribute, operator, raw_value, active, display_order, error_message"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new eligibility rule store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (domain.Rule, error) {
	var entity domain.Rule
	err := row.Scan(
		&entity.ID,
		&entity.EventID,
		&entity.Attribute,
		&entity.Operator,
		&entity.RawValue,
		&entity.Active,
		&entity.DisplayOrder,
		&entity.ErrorMessage,
	)
	return entity, err
}

// GetByID retrieves a Rule by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM eligibility_rule WHERE id = ?"
	entity, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Rule{}, fmt.Errorf("eligibility rule not found: %w", err)
	}
	return entity, err
}

// ListByEvent retrieves all rules for an event, ordered by display order.
// Inactive rules are included so admin screens can show them; evaluation
// filters them out.
// PRE: eventID is non-empty
// POST: Returns rules sorted by display_order ascending
func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM eligibility_rule WHERE event_id = ? ORDER BY display_order ASC, id ASC"
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Rule
	for rows.Next() {
		entity, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Save persists a Rule to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(ruleColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO eligibility_rule (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		ruleColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.EventID,
		entity.Attribute,
		entity.Operator,
		entity.RawValue,
		entity.Active,
		entity.DisplayOrder,
		entity.ErrorMessage,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a Rule from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM eligibility_rule WHERE id = ?", id)
	return err
}

// DeleteByEvent removes all rules attached to an event.
// PRE: eventID is non-empty
// POST: All rules of the event are removed
func (s *SQLiteStore) DeleteByEvent(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM eligibility_rule WHERE event_id = ?", eventID)
	return err
}
