package gallery

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"divehub/internal/adapters/storage"
	domain "divehub/internal/domain/gallery"
)

const galleryColumns = "id, title, slug, description, event_id, expiry_date, published, created_by, created_at"
const photoColumns = "id, gallery_id, file_key, caption, sort_order, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new gallery store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGallery(row rowScanner) (domain.Gallery, error) {
	var entity domain.Gallery
	var slug, description, eventID, expiryDate sql.NullString
	var createdAt string
	err := row.Scan(
		&entity.ID,
		&entity.Title,
		&slug,
		&description,
		&eventID,
		&expiryDate,
		&entity.Published,
		&entity.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return domain.Gallery{}, err
	}
	entity.Slug = slug.String
	entity.Description = description.String
	entity.EventID = eventID.String
	if entity.ExpiryDate, err = storage.ParseNullTime(expiryDate); err != nil {
		return domain.Gallery{}, fmt.Errorf("failed to parse expiry_date: %w", err)
	}
	if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
		return domain.Gallery{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return entity, nil
}

// GetByID retrieves a Gallery by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Gallery, error) {
	query := "SELECT " + galleryColumns + " FROM gallery WHERE id = ?"
	entity, err := scanGallery(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Gallery{}, fmt.Errorf("gallery not found: %w", err)
	}
	return entity, err
}

// GetBySlug retrieves a Gallery by its URL slug.
// PRE: slug is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (domain.Gallery, error) {
	query := "SELECT " + galleryColumns + " FROM gallery WHERE slug = ?"
	entity, err := scanGallery(s.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return domain.Gallery{}, fmt.Errorf("gallery not found: %w", err)
	}
	return entity, err
}

// Save persists a Gallery to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Gallery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(galleryColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO gallery (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		galleryColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Title,
		storage.NullString(entity.Slug),
		storage.NullString(entity.Description),
		storage.NullString(entity.EventID),
		storage.NullDate(entity.ExpiryDate),
		entity.Published,
		entity.CreatedBy,
		storage.FormatTime(entity.CreatedAt),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a Gallery and its photos from the database.
// PRE: id is non-empty
// POST: Gallery and all its photo rows are removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM gallery_photo WHERE gallery_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM gallery WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Gallery, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Gallery
	for rows.Next() {
		entity, err := scanGallery(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// List retrieves galleries matching the filter, newest first.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by creation time descending
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Gallery, error) {
	query := "SELECT " + galleryColumns + " FROM gallery WHERE 1=1"
	var args []any

	if filter.PublishedOnly {
		query += " AND published = 1"
	}
	if filter.EventID != "" {
		query += " AND event_id = ?"
		args = append(args, filter.EventID)
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	return s.list(ctx, query, args...)
}

// ListExpiredBefore retrieves galleries whose expiry date has passed.
// PRE: cutoff is non-zero
// POST: Returns entities with a non-null expiry_date before the cutoff
func (s *SQLiteStore) ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.Gallery, error) {
	query := "SELECT " + galleryColumns + " FROM gallery WHERE expiry_date IS NOT NULL AND expiry_date < ? ORDER BY expiry_date ASC"
	return s.list(ctx, query, storage.FormatDate(cutoff))
}

// ListExpiringOn retrieves galleries expiring on exactly the given day.
// PRE: day is non-zero
// POST: Returns entities with expiry_date equal to the day
func (s *SQLiteStore) ListExpiringOn(ctx context.Context, day time.Time) ([]domain.Gallery, error) {
	query := "SELECT " + galleryColumns + " FROM gallery WHERE expiry_date = ? ORDER BY title ASC"
	return s.list(ctx, query, storage.FormatDate(day))
}

// SavePhoto persists a Photo to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) SavePhoto(ctx context.Context, entity domain.Photo) error {
	query := `INSERT INTO gallery_photo (` + photoColumns + `) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET file_key=excluded.file_key, caption=excluded.caption, sort_order=excluded.sort_order`
	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.GalleryID,
		entity.FileKey,
		storage.NullString(entity.Caption),
		entity.SortOrder,
		storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// DeletePhoto removes a Photo from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) DeletePhoto(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM gallery_photo WHERE id = ?", id)
	return err
}

// ListPhotos retrieves a gallery's photos in display order.
// PRE: galleryID is non-empty
// POST: Returns photos ordered by sort_order then creation time
func (s *SQLiteStore) ListPhotos(ctx context.Context, galleryID string) ([]domain.Photo, error) {
	query := "SELECT " + photoColumns + " FROM gallery_photo WHERE gallery_id = ? ORDER BY sort_order ASC, created_at ASC"
	rows, err := s.db.QueryContext(ctx, query, galleryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Photo
	for rows.Next() {
		var entity domain.Photo
		var caption sql.NullString
		var createdAt string
		if err := rows.Scan(
			&entity.ID,
			&entity.GalleryID,
			&entity.FileKey,
			&caption,
			&entity.SortOrder,
			&createdAt,
		); err != nil {
			return nil, err
		}
		entity.Caption = caption.String
		if entity.CreatedAt, err = storage.ParseStoredTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
