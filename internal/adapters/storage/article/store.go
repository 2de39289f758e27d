package article

import (
	"context"

	domain "divehub/internal/domain/article"
)

// Store persists Article state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (domain.Article, error)
	Save(ctx context.Context, value domain.Article) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Article, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit       int
	Offset      int
	Kind        string
	Status      string
	PinnedFirst bool
}
