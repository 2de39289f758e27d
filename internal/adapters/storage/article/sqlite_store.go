package article

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/article"
)

const articleColumns = "id, kind, status, title, slug, content, created_by, published_by, author_name, show_author, pinned, pinned_at, visible_from, visible_until, created_at, updated_at, published_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new article store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var entity domain.Article
	var slug, publishedBy, pinnedAt, visibleFrom, visibleUntil, updatedAt, publishedAt sql.NullString
	var createdAt string
	err := row.Scan(
		&entity.ID,
		&entity.Kind,
		&entity.Status,
		&entity.Title,
		&slug,
		&entity.Content,
		&entity.CreatedBy,
		&publishedBy,
		&entity.AuthorName,
		&entity.ShowAuthor,
		&entity.Pinned,
		&pinnedAt,
		&visibleFrom,
		&visibleUntil,
		&createdAt,
		&updatedAt,
		&publishedAt,
	)
	if err != nil {
		return domain.Article{}, err
	}
	entity.Slug = slug.String
	entity.PublishedBy = publishedBy.String
	if entity.PinnedAt, err = storage.ParseNullTime(pinnedAt); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse pinned_at: %w", err)
	}
	if entity.VisibleFrom, err = storage.ParseNullTime(visibleFrom); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse visible_from: %w", err)
	}
	if entity.VisibleUntil, err = storage.ParseNullTime(visibleUntil); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse visible_until: %w", err)
	}
	if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if entity.UpdatedAt, err = storage.ParseNullTime(updatedAt); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if entity.PublishedAt, err = storage.ParseNullTime(publishedAt); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse published_at: %w", err)
	}
	return entity, nil
}

// GetByID retrieves an Article by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Article, error) {
	query := "SELECT " + articleColumns + " FROM article WHERE id = ?"
	entity, err := scanArticle(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Article{}, fmt.Errorf("article not found: %w", err)
	}
	return entity, err
}

// GetBySlug retrieves an Article by its URL slug.
// PRE: slug is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (domain.Article, error) {
	query := "SELECT " + articleColumns + " FROM article WHERE slug = ?"
	entity, err := scanArticle(s.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return domain.Article{}, fmt.Errorf("article not found: %w", err)
	}
	return entity, err
}

// Save persists an Article to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(articleColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO article (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		articleColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Kind,
		entity.Status,
		entity.Title,
		storage.NullString(entity.Slug),
		entity.Content,
		entity.CreatedBy,
		storage.NullString(entity.PublishedBy),
		entity.AuthorName,
		entity.ShowAuthor,
		entity.Pinned,
		storage.NullTime(entity.PinnedAt),
		storage.NullTime(entity.VisibleFrom),
		storage.NullTime(entity.VisibleUntil),
		storage.FormatTime(entity.CreatedAt),
		storage.NullTime(entity.UpdatedAt),
		storage.NullTime(entity.PublishedAt),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an Article from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM article WHERE id = ?", id)
	return err
}

// List retrieves articles matching the filter.
// Pinned articles sort first when PinnedFirst is set; within each group
// newest articles come first.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Article, error) {
	query := "SELECT " + articleColumns + " FROM article WHERE 1=1"
	var args []any

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	if filter.PinnedFirst {
		query += " ORDER BY pinned DESC, created_at DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}

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

	var results []domain.Article
	for rows.Next() {
		entity, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
