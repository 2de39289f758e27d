package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/member"
)

const memberColumns = "id, account_id, email, name, birth_date, diving_level, freediving_level, insured, is_diver, is_freediver, is_pilot, is_instructor, is_diving_director, status"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var entity domain.Member
	var accountID, birthDate sql.NullString
	err := row.Scan(
		&entity.ID,
		&accountID,
		&entity.Email,
		&entity.Name,
		&birthDate,
		&entity.DivingLevel,
		&entity.FreedivingLevel,
		&entity.Insured,
		&entity.IsDiver,
		&entity.IsFreediver,
		&entity.IsPilot,
		&entity.IsInstructor,
		&entity.IsDivingDirector,
		&entity.Status,
	)
	if err != nil {
		return domain.Member{}, err
	}
	if accountID.Valid {
		entity.AccountID = accountID.String
	}
	entity.BirthDate, err = storage.ParseNullTime(birthDate)
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to parse birth_date: %w", err)
	}
	return entity, nil
}

func (s *SQLiteStore) getBy(ctx context.Context, column, value string) (domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE " + column + " = ?"
	entity, err := scanMember(s.db.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	return entity, err
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	return s.getBy(ctx, "id", id)
}

// GetByEmail retrieves a Member by email.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	return s.getBy(ctx, "email", email)
}

// GetByAccountID retrieves the Member linked to an account.
// PRE: accountID is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByAccountID(ctx context.Context, accountID string) (domain.Member, error) {
	return s.getBy(ctx, "account_id", accountID)
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(memberColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO member (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		memberColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		storage.NullString(entity.AccountID),
		entity.Email,
		entity.Name,
		storage.NullDate(entity.BirthDate),
		entity.DivingLevel,
		entity.FreedivingLevel,
		entity.Insured,
		entity.IsDiver,
		entity.IsFreediver,
		entity.IsPilot,
		entity.IsInstructor,
		entity.IsDivingDirector,
		entity.Status,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a Member from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id)
	return err
}

// SearchByName finds members whose name matches the query (case-insensitive LIKE).
// PRE: query is non-empty, limit > 0
// POST: Returns matching members ordered by name
func (s *SQLiteStore) SearchByName(ctx context.Context, query string, limit int) ([]domain.Member, error) {
	q := "SELECT " + memberColumns + " FROM member WHERE name LIKE ? AND status != 'archived' ORDER BY name LIMIT ?"
	rows, err := s.db.QueryContext(ctx, q, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.DivingLevel != "" {
		where += " AND diving_level = ?"
		args = append(args, filter.DivingLevel)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"name": "name", "email": "email",
		"diving_level": "diving_level", "status": "status",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY name ASC"
	}
	dir := "ASC"
	if filter.Dir == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir
}

// Count returns the total number of members matching the filter.
// PRE: filter has valid parameters
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+where, args...).Scan(&count)
	return count, err
}

// List retrieves members matching the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + memberColumns + " FROM member" + where
	query += sortClause(filter)

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

	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
