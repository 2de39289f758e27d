package gallery

import (
	"context"
	"time"

	domain "divehub/internal/domain/gallery"
)

// Store persists galleries and their photos.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Gallery, error)
	GetBySlug(ctx context.Context, slug string) (domain.Gallery, error)
	Save(ctx context.Context, value domain.Gallery) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Gallery, error)
	ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.Gallery, error)
	ListExpiringOn(ctx context.Context, day time.Time) ([]domain.Gallery, error)

	SavePhoto(ctx context.Context, value domain.Photo) error
	DeletePhoto(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, galleryID string) ([]domain.Photo, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit         int
	Offset        int
	PublishedOnly bool
	EventID       string
}
