package eligibility

import (
	"context"

	domain "divehub/internal/domain/eligibility"
)

// Store persists eligibility rules.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Rule, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Rule, error)
	Save(ctx context.Context, value domain.Rule) error
	Delete(ctx context.Context, id string) error
	DeleteByEvent(ctx context.Context, eventID string) error
}
