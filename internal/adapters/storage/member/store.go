package member

import (
	"context"

	domain "divehub/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByEmail(ctx context.Context, email string) (domain.Member, error)
	GetByAccountID(ctx context.Context, accountID string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	SearchByName(ctx context.Context, query string, limit int) ([]domain.Member, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit       int
	Offset      int
	Status      string
	DivingLevel string
	Search      string
	Sort        string
	Dir         string
}
