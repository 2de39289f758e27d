package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"divehub/internal/adapters/storage/member"
	domainCACI "divehub/internal/domain/caci"
	domainEvent "divehub/internal/domain/event"
	domainMember "divehub/internal/domain/member"
	domainPart "divehub/internal/domain/participation"
)

var fixedTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

type mockEventStore struct {
	events map[string]domainEvent.Event
}

func (m *mockEventStore) GetByID(_ context.Context, id string) (domainEvent.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return domainEvent.Event{}, errors.New("event not found")
	}
	return ev, nil
}

func (m *mockEventStore) ListUpcoming(_ context.Context, from time.Time, limit int) ([]domainEvent.Event, error) {
	var out []domainEvent.Event
	for _, ev := range m.events {
		if ev.StartDate.After(from) && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

type mockMemberStore struct {
	members map[string]domainMember.Member
}

func (m *mockMemberStore) GetByID(_ context.Context, id string) (domainMember.Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return domainMember.Member{}, errors.New("member not found")
	}
	return mem, nil
}

func (m *mockMemberStore) List(_ context.Context, _ member.ListFilter) ([]domainMember.Member, error) {
	var out []domainMember.Member
	for _, mem := range m.members {
		out = append(out, mem)
	}
	return out, nil
}

func (m *mockMemberStore) Count(_ context.Context, filter member.ListFilter) (int, error) {
	count := 0
	for _, mem := range m.members {
		if filter.Status == "" || mem.Status == filter.Status {
			count++
		}
	}
	return count, nil
}

type mockParticipationStore struct {
	participations []domainPart.Participation
}

func (m *mockParticipationStore) ListByEvent(_ context.Context, eventID string) ([]domainPart.Participation, error) {
	var out []domainPart.Participation
	for _, p := range m.participations {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockParticipationStore) ListByMember(_ context.Context, memberID string) ([]domainPart.Participation, error) {
	var out []domainPart.Participation
	for _, p := range m.participations {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockParticipationStore) SumConfirmedQuantity(_ context.Context, eventID string) (int, error) {
	sum := 0
	for _, p := range m.participations {
		if p.EventID == eventID && p.CountsAgainstCapacity() {
			sum += p.Quantity
		}
	}
	return sum, nil
}

type mockCertStore struct {
	byMember map[string]domainCACI.Certificate
}

func (m *mockCertStore) GetCurrentByMember(_ context.Context, memberID string, _ time.Time) (domainCACI.Certificate, error) {
	c, ok := m.byMember[memberID]
	if !ok {
		return domainCACI.Certificate{}, errors.New("certificate not found")
	}
	return c, nil
}

func (m *mockCertStore) ListByStatus(_ context.Context, status string) ([]domainCACI.Certificate, error) {
	var out []domainCACI.Certificate
	for _, c := range m.byMember {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func testMember(id, name string) domainMember.Member {
	return domainMember.Member{
		ID:        id,
		Name:      name,
		Email:     id + "@club.example",
		BirthDate: time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC),
		Status:    domainMember.StatusActive,
	}
}

func TestQueryGetEventRoster_SplitsByStatus(t *testing.T) {
	events := &mockEventStore{events: map[string]domainEvent.Event{
		"event-1": {
			ID:              "event-1",
			Title:           "Wreck dive",
			Type:            domainEvent.TypeDive,
			StartDate:       fixedTime.AddDate(0, 0, 7),
			MaxParticipants: 10,
		},
	}}
	members := &mockMemberStore{members: map[string]domainMember.Member{
		"member-1": testMember("member-1", "Ana"),
		"member-2": testMember("member-2", "Ben"),
		"member-3": testMember("member-3", "Caro"),
	}}
	parts := &mockParticipationStore{participations: []domainPart.Participation{
		{ID: "p-1", EventID: "event-1", MemberID: "member-1", Status: domainPart.StatusRegistered, Quantity: 2},
		{ID: "p-2", EventID: "event-1", MemberID: "member-2", Status: domainPart.StatusWaitingList, IsWaitingList: true, Quantity: 1},
		{ID: "p-3", EventID: "event-1", MemberID: "member-3", Status: domainPart.StatusCancelled, Quantity: 1},
	}}
	certs := &mockCertStore{byMember: map[string]domainCACI.Certificate{
		"member-1": {
			ID:         "c-1",
			MemberID:   "member-1",
			ExpiryDate: fixedTime.AddDate(1, 0, 0),
			Status:     domainCACI.StatusValidated,
			Consent:    true,
		},
	}}

	result, err := QueryGetEventRoster(context.Background(), GetEventRosterQuery{EventID: "event-1"}, GetEventRosterDeps{
		EventStore:         events,
		MemberStore:        members,
		ParticipationStore: parts,
		CertificateStore:   certs,
		Now:                fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Confirmed) != 1 {
		t.Fatalf("expected 1 confirmed line, got %d", len(result.Confirmed))
	}
	if result.Confirmed[0].MemberName != "Ana" {
		t.Errorf("expected member name resolved, got %q", result.Confirmed[0].MemberName)
	}
	if !result.Confirmed[0].CACIValid {
		t.Error("expected Ana's CACI marked valid")
	}
	if len(result.Waiting) != 1 || result.Waiting[0].MemberID != "member-2" {
		t.Fatalf("expected Ben on the waiting list, got %v", result.Waiting)
	}
	if result.Waiting[0].CACIValid {
		t.Error("expected Ben without valid CACI")
	}
	if result.SpotsTaken != 2 {
		t.Errorf("expected 2 spots taken, got %d", result.SpotsTaken)
	}
	if result.SpotsLeft != 8 {
		t.Errorf("expected 8 spots left, got %d", result.SpotsLeft)
	}
}

func TestQueryGetEventRoster_UnlimitedEvent(t *testing.T) {
	events := &mockEventStore{events: map[string]domainEvent.Event{
		"event-1": {
			ID:        "event-1",
			Title:     "Beach cleanup",
			Type:      domainEvent.TypeSocial,
			StartDate: fixedTime.AddDate(0, 0, 7),
		},
	}}

	result, err := QueryGetEventRoster(context.Background(), GetEventRosterQuery{EventID: "event-1"}, GetEventRosterDeps{
		EventStore:         events,
		MemberStore:        &mockMemberStore{members: map[string]domainMember.Member{}},
		ParticipationStore: &mockParticipationStore{},
		Now:                fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SpotsLeft != -1 {
		t.Errorf("expected SpotsLeft=-1 for unlimited event, got %d", result.SpotsLeft)
	}
}

func TestQueryGetMemberProfile_SplitsHistory(t *testing.T) {
	events := &mockEventStore{events: map[string]domainEvent.Event{
		"event-past":   {ID: "event-past", Title: "Last month", Type: domainEvent.TypeDive, StartDate: fixedTime.AddDate(0, -1, 0)},
		"event-future": {ID: "event-future", Title: "Next month", Type: domainEvent.TypeDive, StartDate: fixedTime.AddDate(0, 1, 0)},
	}}
	members := &mockMemberStore{members: map[string]domainMember.Member{
		"member-1": testMember("member-1", "Ana"),
	}}
	parts := &mockParticipationStore{participations: []domainPart.Participation{
		{ID: "p-1", EventID: "event-past", MemberID: "member-1", Status: domainPart.StatusConfirmed, Quantity: 1},
		{ID: "p-2", EventID: "event-future", MemberID: "member-1", Status: domainPart.StatusRegistered, Quantity: 1},
	}}
	certs := &mockCertStore{byMember: map[string]domainCACI.Certificate{
		"member-1": {
			ID:         "c-1",
			MemberID:   "member-1",
			ExpiryDate: fixedTime.AddDate(0, 3, 0),
			Status:     domainCACI.StatusValidated,
			Consent:    true,
		},
	}}

	result, err := QueryGetMemberProfile(context.Background(), GetMemberProfileQuery{MemberID: "member-1"}, GetMemberProfileDeps{
		MemberStore:        members,
		EventStore:         events,
		ParticipationStore: parts,
		CertificateStore:   certs,
		Now:                fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.HasValidCACI {
		t.Error("expected valid CACI")
	}
	if len(result.Upcoming) != 1 || result.Upcoming[0].EventID != "event-future" {
		t.Errorf("expected event-future upcoming, got %v", result.Upcoming)
	}
	if len(result.Past) != 1 || result.Past[0].EventID != "event-past" {
		t.Errorf("expected event-past in history, got %v", result.Past)
	}
	if result.Age != 36 {
		t.Errorf("expected age 36, got %d", result.Age)
	}
}

func TestQueryGetDashboard_Counts(t *testing.T) {
	events := &mockEventStore{events: map[string]domainEvent.Event{
		"event-1": {ID: "event-1", Title: "Next dive", Type: domainEvent.TypeDive, StartDate: fixedTime.AddDate(0, 0, 3), MaxParticipants: 8},
	}}
	inactive := testMember("member-2", "Ben")
	inactive.Status = domainMember.StatusInactive
	members := &mockMemberStore{members: map[string]domainMember.Member{
		"member-1": testMember("member-1", "Ana"),
		"member-2": inactive,
	}}
	parts := &mockParticipationStore{participations: []domainPart.Participation{
		{ID: "p-1", EventID: "event-1", MemberID: "member-1", Status: domainPart.StatusRegistered, Quantity: 3},
	}}
	certs := &mockCertStore{byMember: map[string]domainCACI.Certificate{
		"member-1": {ID: "c-1", MemberID: "member-1", Status: domainCACI.StatusPending, ExpiryDate: fixedTime.AddDate(1, 0, 0), Consent: true},
	}}

	result, err := QueryGetDashboard(context.Background(), GetDashboardDeps{
		MemberStore:        members,
		EventStore:         events,
		ParticipationStore: parts,
		CertificateStore:   certs,
		Now:                fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ActiveMembers != 1 {
		t.Errorf("expected 1 active member, got %d", result.ActiveMembers)
	}
	if result.PendingReviews != 1 {
		t.Errorf("expected 1 pending review, got %d", result.PendingReviews)
	}
	if len(result.UpcomingEvents) != 1 || result.UpcomingEvents[0].SpotsTaken != 3 {
		t.Errorf("unexpected upcoming events: %v", result.UpcomingEvents)
	}
}
