package projections

import (
	"context"
	"time"

	domainPart "divehub/internal/domain/participation"
)

// GetEventRosterQuery carries query parameters.
type GetEventRosterQuery struct {
	EventID string
}

// RosterLine is one member's spot on an event roster.
type RosterLine struct {
	ParticipationID   string
	MemberID          string
	MemberName        string
	Status            string
	Quantity          int
	ParticipationType string
	MeetingPoint      string
	CACIValid         bool
	RegisteredAt      time.Time
}

// GetEventRosterResult carries the query result.
type GetEventRosterResult struct {
	EventID         string
	Title           string
	StartDate       time.Time
	MaxParticipants int
	SpotsTaken      int
	SpotsLeft       int // -1 when the event is unlimited
	Confirmed       []RosterLine
	Waiting         []RosterLine
}

// GetEventRosterDeps holds dependencies for GetEventRoster.
type GetEventRosterDeps struct {
	EventStore         EventStore
	MemberStore        MemberStore
	ParticipationStore ParticipationStore
	CertificateStore   CertificateStore // optional: nil skips CACI columns
	Now                func() time.Time
}

// QueryGetEventRoster builds the organizer's roster view of an event:
// confirmed participants, the waiting list in promotion order, and the
// capacity summary.
// PRE: Valid event ID
// POST: Returns roster lines split by status, cancelled entries excluded
func QueryGetEventRoster(ctx context.Context, query GetEventRosterQuery, deps GetEventRosterDeps) (GetEventRosterResult, error) {
	ev, err := deps.EventStore.GetByID(ctx, query.EventID)
	if err != nil {
		return GetEventRosterResult{}, err
	}

	result := GetEventRosterResult{
		EventID:         ev.ID,
		Title:           ev.Title,
		StartDate:       ev.StartDate,
		MaxParticipants: ev.MaxParticipants,
		SpotsLeft:       -1,
	}

	participations, err := deps.ParticipationStore.ListByEvent(ctx, query.EventID)
	if err != nil {
		return GetEventRosterResult{}, err
	}

	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	for _, p := range participations {
		if p.Status == domainPart.StatusCancelled {
			continue
		}
		line := RosterLine{
			ParticipationID:   p.ID,
			MemberID:          p.MemberID,
			Status:            p.Status,
			Quantity:          p.Quantity,
			ParticipationType: p.ParticipationType,
			MeetingPoint:      p.MeetingPoint,
			RegisteredAt:      p.CreatedAt,
		}
		if m, err := deps.MemberStore.GetByID(ctx, p.MemberID); err == nil {
			line.MemberName = m.Name
		}
		if deps.CertificateStore != nil {
			if cert, err := deps.CertificateStore.GetCurrentByMember(ctx, p.MemberID, now); err == nil {
				line.CACIValid = cert.IsValid(now)
			}
		}

		if p.Status == domainPart.StatusWaitingList {
			result.Waiting = append(result.Waiting, line)
		} else {
			result.Confirmed = append(result.Confirmed, line)
			result.SpotsTaken += p.Quantity
		}
	}

	if ev.MaxParticipants > 0 {
		left := ev.MaxParticipants - result.SpotsTaken
		if left < 0 {
			left = 0
		}
		result.SpotsLeft = left
	}

	return result, nil
}
