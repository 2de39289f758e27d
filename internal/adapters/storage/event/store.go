package event

import (
	"context"
	"time"

	domain "divehub/internal/domain/event"
)

// Store persists Event state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, value domain.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]domain.Event, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Type   string
	From   time.Time
	To     time.Time
}
