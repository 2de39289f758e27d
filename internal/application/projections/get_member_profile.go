package projections

import (
	"context"
	"time"

	domainPart "divehub/internal/domain/participation"
)

// GetMemberProfileQuery carries query parameters.
type GetMemberProfileQuery struct {
	MemberID string
}

// ProfileParticipation is one event line in a member's history.
type ProfileParticipation struct {
	ParticipationID string
	EventID         string
	EventTitle      string
	StartDate       time.Time
	Status          string
	Quantity        int
}

// GetMemberProfileResult carries the query result.
type GetMemberProfileResult struct {
	MemberID        string
	Name            string
	Email           string
	Status          string
	DivingLevel     string
	FreedivingLevel string
	Insured         bool
	Age             int

	HasValidCACI   bool
	CACIExpiryDate time.Time // zero when no valid certificate

	Upcoming []ProfileParticipation
	Past     []ProfileParticipation
}

// GetMemberProfileDeps holds dependencies for GetMemberProfile.
type GetMemberProfileDeps struct {
	MemberStore        MemberStore
	EventStore         EventStore
	ParticipationStore ParticipationStore
	CertificateStore   CertificateStore // optional: nil skips CACI status
	Now                func() time.Time
}

// QueryGetMemberProfile retrieves a member's profile with certificate
// status and event history.
// PRE: Valid member ID
// POST: Returns member details, CACI status, and participations split by date
func QueryGetMemberProfile(ctx context.Context, query GetMemberProfileQuery, deps GetMemberProfileDeps) (GetMemberProfileResult, error) {
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return GetMemberProfileResult{}, err
	}

	now := time.Now()
	if deps.Now != nil {
		now = deps.Now()
	}

	result := GetMemberProfileResult{
		MemberID:        m.ID,
		Name:            m.Name,
		Email:           m.Email,
		Status:          m.Status,
		DivingLevel:     m.DivingLevel,
		FreedivingLevel: m.FreedivingLevel,
		Insured:         m.Insured,
		Age:             m.Age(now),
	}

	if deps.CertificateStore != nil {
		if cert, err := deps.CertificateStore.GetCurrentByMember(ctx, query.MemberID, now); err == nil {
			result.HasValidCACI = cert.IsValid(now)
			result.CACIExpiryDate = cert.ExpiryDate
		}
	}

	participations, err := deps.ParticipationStore.ListByMember(ctx, query.MemberID)
	if err != nil {
		return result, nil // profile without history is still useful
	}

	for _, p := range participations {
		if p.Status == domainPart.StatusCancelled {
			continue
		}
		line := ProfileParticipation{
			ParticipationID: p.ID,
			EventID:         p.EventID,
			Status:          p.Status,
			Quantity:        p.Quantity,
		}
		if ev, err := deps.EventStore.GetByID(ctx, p.EventID); err == nil {
			line.EventTitle = ev.Title
			line.StartDate = ev.StartDate
		}
		if line.StartDate.After(now) {
			result.Upcoming = append(result.Upcoming, line)
		} else {
			result.Past = append(result.Past, line)
		}
	}

	return result, nil
}
