package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	partStore "divehub/internal/adapters/storage/participation"
	"divehub/internal/domain/caci"
	"divehub/internal/domain/eligibility"
	"divehub/internal/domain/event"
	"divehub/internal/domain/member"
	"divehub/internal/domain/outbox"
	domainPart "divehub/internal/domain/participation"
)

// --- shared test doubles ---

var fixedTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqID returns a generator producing id-1, id-2, ...
func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type mockEventStore struct {
	events map[string]event.Event
}

func (m *mockEventStore) GetByID(_ context.Context, id string) (event.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return event.Event{}, errors.New("event not found")
	}
	return ev, nil
}

type mockMemberStore struct {
	members map[string]member.Member
}

func (m *mockMemberStore) GetByID(_ context.Context, id string) (member.Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return member.Member{}, errors.New("member not found")
	}
	return mem, nil
}

type mockRuleStore struct {
	rules map[string][]eligibility.Rule
}

func (m *mockRuleStore) ListByEvent(_ context.Context, eventID string) ([]eligibility.Rule, error) {
	return m.rules[eventID], nil
}

// mockParticipationStore mirrors the SQLite store's Register semantics:
// duplicate and capacity checks against the in-memory rows.
type mockParticipationStore struct {
	participations map[string]domainPart.Participation
}

func (m *mockParticipationStore) Register(_ context.Context, p domainPart.Participation, maxParticipants int) error {
	for _, existing := range m.participations {
		if existing.EventID == p.EventID && existing.MemberID == p.MemberID && existing.IsActive() {
			return partStore.ErrDuplicate
		}
	}
	if maxParticipants > 0 {
		taken := 0
		for _, existing := range m.participations {
			if existing.EventID == p.EventID && existing.CountsAgainstCapacity() {
				taken += existing.Quantity
			}
		}
		if taken+p.Quantity > maxParticipants {
			return partStore.ErrCapacityFull
		}
	}
	m.participations[p.ID] = p
	return nil
}

func (m *mockParticipationStore) Save(_ context.Context, p domainPart.Participation) error {
	m.participations[p.ID] = p
	return nil
}

func (m *mockParticipationStore) GetByID(_ context.Context, id string) (domainPart.Participation, error) {
	p, ok := m.participations[id]
	if !ok {
		return domainPart.Participation{}, errors.New("participation not found")
	}
	return p, nil
}

func (m *mockParticipationStore) ListWaiting(_ context.Context, eventID string) ([]domainPart.Participation, error) {
	var out []domainPart.Participation
	for _, p := range m.participations {
		if p.EventID == eventID && p.Status == domainPart.StatusWaitingList {
			out = append(out, p)
		}
	}
	// FIFO by creation time, matching the store's ORDER BY created_at.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
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
	byMember map[string]caci.Certificate
}

func (m *mockCertStore) GetCurrentByMember(_ context.Context, memberID string, _ time.Time) (caci.Certificate, error) {
	c, ok := m.byMember[memberID]
	if !ok {
		return caci.Certificate{}, errors.New("certificate not found")
	}
	return c, nil
}

type mockAccessLogStore struct {
	entries []caci.AccessLog
}

func (m *mockAccessLogStore) Append(_ context.Context, l caci.AccessLog) error {
	m.entries = append(m.entries, l)
	return nil
}

type mockOutboxStore struct {
	entries []outbox.Entry
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

// --- fixtures ---

func activeDiver(id, level string) member.Member {
	return member.Member{
		ID:          id,
		Email:       id + "@club.example",
		Name:        "Diver " + id,
		BirthDate:   time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC),
		DivingLevel: level,
		IsDiver:     true,
		Insured:     true,
		Status:      member.StatusActive,
	}
}

func validCert(memberID string) caci.Certificate {
	return caci.Certificate{
		ID:         "cert-" + memberID,
		MemberID:   memberID,
		FileKey:    "caci-" + memberID + ".pdf",
		ExpiryDate: fixedTime.AddDate(1, 0, 0),
		Status:     caci.StatusValidated,
		Consent:    true,
	}
}

func registrationDeps(events *mockEventStore, members *mockMemberStore, rules *mockRuleStore, parts *mockParticipationStore, certs *mockCertStore, box *mockOutboxStore) RegisterParticipationDeps {
	return RegisterParticipationDeps{
		EventStore:         events,
		MemberStore:        members,
		RuleStore:          rules,
		ParticipationStore: parts,
		CertificateStore:   certs,
		AccessLogStore:     &mockAccessLogStore{},
		OutboxStore:        box,
		Evaluator:          eligibility.NewEvaluator(),
		GenerateID:         seqID(),
		Now:                fixedNow,
	}
}

// --- ExecuteRegisterParticipation tests ---

func TestExecuteRegisterParticipation_Valid(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:              "event-1",
			Title:           "Night dive at the wreck",
			Type:            event.TypeDive,
			StartDate:       fixedTime.AddDate(0, 0, 7),
			MaxParticipants: 10,
			RequiresCACI:    true,
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-1": activeDiver("member-1", "N2"),
	}}
	certs := &mockCertStore{byMember: map[string]caci.Certificate{
		"member-1": validCert("member-1"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}
	box := &mockOutboxStore{}

	p, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, certs, box))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != domainPart.StatusRegistered {
		t.Errorf("expected status=registered, got %s", p.Status)
	}
	if p.Quantity != 1 {
		t.Errorf("expected default quantity=1, got %d", p.Quantity)
	}
	if p.ParticipationType != domainPart.TypeDiver {
		t.Errorf("expected default type=diver, got %s", p.ParticipationType)
	}
	if len(box.entries) != 1 {
		t.Fatalf("expected 1 confirmation email enqueued, got %d", len(box.entries))
	}
	if box.entries[0].ActionType != outbox.ActionTypeEmail {
		t.Errorf("expected email outbox entry, got %s", box.entries[0].ActionType)
	}
}

func TestExecuteRegisterParticipation_RejectsInsufficientLevel(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:             "event-1",
			Title:          "Deep dive",
			Type:           event.TypeDive,
			StartDate:      fixedTime.AddDate(0, 0, 7),
			MinDivingLevel: "N3",
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-1": activeDiver("member-1", "N1"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))

	var eligErr *eligibility.Error
	if !errors.As(err, &eligErr) {
		t.Fatalf("expected eligibility error, got %v", err)
	}
	if len(parts.participations) != 0 {
		t.Error("expected no participation persisted after rejection")
	}
}

func TestExecuteRegisterParticipation_RejectsMissingCACI(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:           "event-1",
			Title:        "Club dive",
			Type:         event.TypeDive,
			StartDate:    fixedTime.AddDate(0, 0, 7),
			RequiresCACI: true,
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-1": activeDiver("member-1", "N2"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	// No certificate in the store: the lookup fails closed.
	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{byMember: map[string]caci.Certificate{}}, &mockOutboxStore{}))

	var eligErr *eligibility.Error
	if !errors.As(err, &eligErr) {
		t.Fatalf("expected eligibility error for missing CACI, got %v", err)
	}
}

func TestExecuteRegisterParticipation_PilotSkipsDivingChecks(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:             "event-1",
			Title:          "Boat dive",
			Type:           event.TypeDive,
			StartDate:      fixedTime.AddDate(0, 0, 7),
			MinDivingLevel: "N3",
			RequiresCACI:   true,
			RequiresBoat:   true,
		},
	}}
	pilot := activeDiver("member-1", "")
	pilot.IsDiver = false
	pilot.IsPilot = true
	members := &mockMemberStore{members: map[string]member.Member{"member-1": pilot}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	p, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:           "event-1",
		MemberID:          "member-1",
		ParticipationType: domainPart.TypePilot,
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != domainPart.StatusRegistered {
		t.Errorf("expected pilot registered, got %s", p.Status)
	}
}

func TestExecuteRegisterParticipation_PilotRequiresBoat(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:        "event-1",
			Title:     "Shore dive",
			Type:      event.TypeDive,
			StartDate: fixedTime.AddDate(0, 0, 7),
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-1": activeDiver("member-1", "N2"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:           "event-1",
		MemberID:          "member-1",
		ParticipationType: domainPart.TypePilot,
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))
	if !errors.Is(err, ErrInvalidParticipant) {
		t.Fatalf("expected ErrInvalidParticipant, got %v", err)
	}
}

func TestExecuteRegisterParticipation_FullEventGoesToWaitingList(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:               "event-1",
			Title:            "Popular dive",
			Type:             event.TypeDive,
			StartDate:        fixedTime.AddDate(0, 0, 7),
			MaxParticipants:  2,
			AllowWaitingList: true,
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-2": activeDiver("member-2", "N2"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{
		"p-1": {ID: "p-1", EventID: "event-1", MemberID: "member-1", Status: domainPart.StatusRegistered, Quantity: 2, ParticipationType: domainPart.TypeDiver, CreatedAt: fixedTime.Add(-time.Hour)},
	}}
	box := &mockOutboxStore{}

	p, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-2",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, box))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != domainPart.StatusWaitingList {
		t.Errorf("expected status=waiting_list, got %s", p.Status)
	}
	if !p.IsWaitingList {
		t.Error("expected IsWaitingList=true")
	}
	if len(box.entries) != 1 {
		t.Fatalf("expected waiting list email, got %d entries", len(box.entries))
	}
}

func TestExecuteRegisterParticipation_FullEventNoWaitingList(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:              "event-1",
			Title:           "Small boat",
			Type:            event.TypeDive,
			StartDate:       fixedTime.AddDate(0, 0, 7),
			MaxParticipants: 1,
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-2": activeDiver("member-2", "N2"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{
		"p-1": {ID: "p-1", EventID: "event-1", MemberID: "member-1", Status: domainPart.StatusRegistered, Quantity: 1, ParticipationType: domainPart.TypeDiver, CreatedAt: fixedTime.Add(-time.Hour)},
	}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-2",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestExecuteRegisterParticipation_RejectsDuplicate(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:        "event-1",
			Title:     "Club dive",
			Type:      event.TypeDive,
			StartDate: fixedTime.AddDate(0, 0, 7),
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-1": activeDiver("member-1", "N2"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{
		"p-1": {ID: "p-1", EventID: "event-1", MemberID: "member-1", Status: domainPart.StatusRegistered, Quantity: 1, ParticipationType: domainPart.TypeDiver, CreatedAt: fixedTime.Add(-time.Hour)},
	}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestExecuteRegisterParticipation_RejectsStartedEvent(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:        "event-1",
			Title:     "Yesterday's dive",
			Type:      event.TypeDive,
			StartDate: fixedTime.AddDate(0, 0, -1),
		},
	}}
	members := &mockMemberStore{members: map[string]member.Member{
		"member-1": activeDiver("member-1", "N2"),
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))
	if !errors.Is(err, event.ErrEventStarted) {
		t.Fatalf("expected ErrEventStarted, got %v", err)
	}
}

func TestExecuteRegisterParticipation_RejectsInactiveMember(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:        "event-1",
			Title:     "Club dive",
			Type:      event.TypeDive,
			StartDate: fixedTime.AddDate(0, 0, 7),
		},
	}}
	inactive := activeDiver("member-1", "N2")
	inactive.Status = member.StatusInactive
	members := &mockMemberStore{members: map[string]member.Member{"member-1": inactive}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, &mockRuleStore{}, parts, &mockCertStore{}, &mockOutboxStore{}))
	if !errors.Is(err, ErrMemberNotActive) {
		t.Fatalf("expected ErrMemberNotActive, got %v", err)
	}
}

func TestExecuteRegisterParticipation_StoredRuleRejects(t *testing.T) {
	events := &mockEventStore{events: map[string]event.Event{
		"event-1": {
			ID:        "event-1",
			Title:     "Insured only",
			Type:      event.TypeDive,
			StartDate: fixedTime.AddDate(0, 0, 7),
		},
	}}
	uninsured := activeDiver("member-1", "N2")
	uninsured.Insured = false
	members := &mockMemberStore{members: map[string]member.Member{"member-1": uninsured}}
	rules := &mockRuleStore{rules: map[string][]eligibility.Rule{
		"event-1": {{
			ID:           "rule-1",
			EventID:      "event-1",
			Attribute:    eligibility.AttrInsured,
			Operator:     eligibility.OpEqual,
			RawValue:     "true",
			Active:       true,
			ErrorMessage: "club insurance is required for this trip",
		}},
	}}
	parts := &mockParticipationStore{participations: map[string]domainPart.Participation{}}

	_, err := ExecuteRegisterParticipation(context.Background(), RegisterParticipationInput{
		EventID:  "event-1",
		MemberID: "member-1",
	}, registrationDeps(events, members, rules, parts, &mockCertStore{}, &mockOutboxStore{}))

	var eligErr *eligibility.Error
	if !errors.As(err, &eligErr) {
		t.Fatalf("expected eligibility error, got %v", err)
	}
	if eligErr.Reason != "club insurance is required for this trip" {
		t.Errorf("expected custom rule message, got %q", eligErr.Reason)
	}
}
