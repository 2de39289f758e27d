package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/account"
)

const accountColumns = "id, email, password_hash, role, status, created_at, failed_logins, locked_until, password_change_required"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := row.Scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Role,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
		&entity.PasswordChangeRequired,
	)
	if err != nil {
		return domain.Account{}, err
	}
	if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
		return domain.Account{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entity.LockedUntil, err = storage.ParseNullTime(lockedUntil); err != nil {
		return domain.Account{}, fmt.Errorf("failed to parse locked_until: %w", err)
	}
	return entity, nil
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	query := "SELECT " + accountColumns + " FROM account WHERE id = ?"
	entity, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	query := "SELECT " + accountColumns + " FROM account WHERE email = ?"
	entity, err := scanAccount(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(accountColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		accountColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Email,
		entity.PasswordHash,
		entity.Role,
		entity.Status,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		storage.NullTime(entity.LockedUntil),
		entity.PasswordChangeRequired,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an Account from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	return err
}

// Count returns the total number of accounts.
// PRE: none
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// List retrieves accounts matching the filter, ordered by email.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	query := "SELECT " + accountColumns + " FROM account WHERE 1=1"
	var args []any

	if filter.Role != "" {
		query += " AND role = ?"
		args = append(args, filter.Role)
	}
	query += " ORDER BY email ASC"

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

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// SaveActivationToken persists an activation token.
// PRE: token has an ID, account ID and token string
// POST: Token is persisted (insert or update)
func (s *SQLiteStore) SaveActivationToken(ctx context.Context, token domain.ActivationToken) error {
	query := `INSERT INTO activation_token (id, account_id, token, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET used=excluded.used`
	_, err := s.db.ExecContext(ctx, query,
		token.ID,
		token.AccountID,
		token.Token,
		storage.FormatTime(token.ExpiresAt),
		token.Used,
		storage.FormatTime(token.CreatedAt),
	)
	return err
}

// GetActivationTokenByToken retrieves a token by its secret value.
// PRE: token is non-empty
// POST: Returns the token or an error if not found
func (s *SQLiteStore) GetActivationTokenByToken(ctx context.Context, token string) (domain.ActivationToken, error) {
	query := "SELECT id, account_id, token, expires_at, used, created_at FROM activation_token WHERE token = ?"
	row := s.db.QueryRowContext(ctx, query, token)

	var entity domain.ActivationToken
	var expiresAt, createdAt string
	err := row.Scan(
		&entity.ID,
		&entity.AccountID,
		&entity.Token,
		&expiresAt,
		&entity.Used,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return domain.ActivationToken{}, fmt.Errorf("activation token not found: %w", err)
	}
	if err != nil {
		return domain.ActivationToken{}, err
	}
	if entity.ExpiresAt, err = storage.ParseStoredTime(expiresAt); err != nil {
		return domain.ActivationToken{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
		return domain.ActivationToken{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return entity, nil
}

// InvalidateTokensForAccount marks all of an account's tokens as used.
// PRE: accountID is non-empty
// POST: No usable token remains for the account
func (s *SQLiteStore) InvalidateTokensForAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE activation_token SET used = 1 WHERE account_id = ?", accountID)
	return err
}
