package participation

import (
	"context"
	"errors"

	domain "divehub/internal/domain/participation"
)

// Storage errors surfaced by Register.
var (
	// ErrCapacityFull signals that inserting the participation would push
	// the confirmed quantity past the event's capacity.
	ErrCapacityFull = errors.New("event capacity is full")
	// ErrDuplicate signals that the member already holds an active
	// participation for the event.
	ErrDuplicate = errors.New("member already registered for event")
)

// Store persists Participation state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Participation, error)
	GetActiveByEventAndMember(ctx context.Context, eventID, memberID string) (domain.Participation, error)
	Save(ctx context.Context, value domain.Participation) error
	Delete(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string) ([]domain.Participation, error)
	ListByMember(ctx context.Context, memberID string) ([]domain.Participation, error)
	ListWaiting(ctx context.Context, eventID string) ([]domain.Participation, error)
	SumConfirmedQuantity(ctx context.Context, eventID string) (int, error)
	Register(ctx context.Context, value domain.Participation, maxParticipants int) error
}
