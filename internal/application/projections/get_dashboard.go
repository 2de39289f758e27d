package projections

import (
	"context"
	"time"

	"divehub/internal/adapters/storage/member"
	domainCACI "divehub/internal/domain/caci"
	domainMember "divehub/internal/domain/member"
)

// DashboardEvent is one upcoming event on the admin dashboard.
type DashboardEvent struct {
	EventID         string
	Title           string
	Type            string
	StartDate       time.Time
	MaxParticipants int
	SpotsTaken      int
}

// GetDashboardResult carries the query result.
type GetDashboardResult struct {
	ActiveMembers  int
	PendingReviews int // certificates waiting for a reviewer
	UpcomingEvents []DashboardEvent
}

// GetDashboardDeps holds dependencies for GetDashboard.
type GetDashboardDeps struct {
	MemberStore        MemberStore
	EventStore         EventStore
	ParticipationStore ParticipationStore
	CertificateStore   CertificateStore
	Now                func() time.Time
}

// QueryGetDashboard assembles the admin landing page numbers.
// PRE: Deps are valid
// POST: Returns counts and the next upcoming events with fill levels
func QueryGetDashboard(ctx context.Context, deps GetDashboardDeps) (GetDashboardResult, error) {
	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	var result GetDashboardResult

	if count, err := deps.MemberStore.Count(ctx, member.ListFilter{Status: domainMember.StatusActive}); err == nil {
		result.ActiveMembers = count
	}

	if pending, err := deps.CertificateStore.ListByStatus(ctx, domainCACI.StatusPending); err == nil {
		result.PendingReviews = len(pending)
	}

	events, err := deps.EventStore.ListUpcoming(ctx, now, 5)
	if err != nil {
		return result, err
	}
	for _, ev := range events {
		line := DashboardEvent{
			EventID:         ev.ID,
			Title:           ev.Title,
			Type:            ev.Type,
			StartDate:       ev.StartDate,
			MaxParticipants: ev.MaxParticipants,
		}
		if taken, err := deps.ParticipationStore.SumConfirmedQuantity(ctx, ev.ID); err == nil {
			line.SpotsTaken = taken
		}
		result.UpcomingEvents = append(result.UpcomingEvents, line)
	}

	return result, nil
}
