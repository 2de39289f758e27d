package projections

import (
	"context"
	"time"

	"divehub/internal/adapters/storage/member"
	domainCACI "divehub/internal/domain/caci"
	domainEvent "divehub/internal/domain/event"
	domainMember "divehub/internal/domain/member"
	domainPart "divehub/internal/domain/participation"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
	Count(ctx context.Context, filter member.ListFilter) (int, error)
}

// EventStore interface for event queries.
type EventStore interface {
	GetByID(ctx context.Context, id string) (domainEvent.Event, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]domainEvent.Event, error)
}

// ParticipationStore interface for roster queries.
type ParticipationStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]domainPart.Participation, error)
	ListByMember(ctx context.Context, memberID string) ([]domainPart.Participation, error)
	SumConfirmedQuantity(ctx context.Context, eventID string) (int, error)
}

// CertificateStore interface for medical certificate queries.
type CertificateStore interface {
	GetCurrentByMember(ctx context.Context, memberID string, now time.Time) (domainCACI.Certificate, error)
	ListByStatus(ctx context.Context, status string) ([]domainCACI.Certificate, error)
}
