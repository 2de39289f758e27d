package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"divehub/internal/adapters/storage/participation"
	"divehub/internal/domain/caci"
	"divehub/internal/domain/eligibility"
	"divehub/internal/domain/event"
	"divehub/internal/domain/member"
	domainPart "divehub/internal/domain/participation"
)

// Orchestrator errors for event registration.
var (
	ErrMemberNotActive    = errors.New("member is not active")
	ErrAlreadyRegistered  = errors.New("member is already registered for this event")
	ErrCapacityExceeded   = errors.New("event is full and has no waiting list")
	ErrInvalidParticipant = errors.New("participation type is not valid for this event")
)

// EventStoreForRegistration defines the event store interface needed here.
type EventStoreForRegistration interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

// MemberStoreForRegistration defines the member store interface needed here.
type MemberStoreForRegistration interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// RuleStoreForRegistration supplies an event's eligibility rules.
type RuleStoreForRegistration interface {
	ListByEvent(ctx context.Context, eventID string) ([]eligibility.Rule, error)
}

// ParticipationStoreForRegistration defines the participation store
// interface needed here.
type ParticipationStoreForRegistration interface {
	Register(ctx context.Context, value domainPart.Participation, maxParticipants int) error
	Save(ctx context.Context, value domainPart.Participation) error
}

// CertificateStoreForRegistration resolves the member's current medical
// certificate.
type CertificateStoreForRegistration interface {
	GetCurrentByMember(ctx context.Context, memberID string, now time.Time) (caci.Certificate, error)
}

// AccessLogAppender records certificate accesses.
type AccessLogAppender interface {
	Append(ctx context.Context, value caci.AccessLog) error
}

// RegisterParticipationInput carries input for the orchestrator.
type RegisterParticipationInput struct {
	EventID           string
	MemberID          string
	Quantity          int    // spots requested including guests, defaults to 1
	ParticipationType string // defaults to diver
	MeetingPoint      string
	ActorID           string // account performing the registration
}

// RegisterParticipationDeps holds dependencies for RegisterParticipation.
type RegisterParticipationDeps struct {
	EventStore         EventStoreForRegistration
	MemberStore        MemberStoreForRegistration
	RuleStore          RuleStoreForRegistration
	ParticipationStore ParticipationStoreForRegistration
	CertificateStore   CertificateStoreForRegistration
	AccessLogStore     AccessLogAppender
	OutboxStore        OutboxStoreForOrchestrator
	Evaluator          *eligibility.Evaluator
	GenerateID         func() string
	Now                func() time.Time
}

// implicitRules derives eligibility rules from the event's own requirement
// fields. They run before any admin-defined rule. Pilots and escorts join
// the boat without diving, so level and certificate checks do not apply to
// them.
func implicitRules(ev event.Event, participationType string) []eligibility.Rule {
	var rules []eligibility.Rule
	diving := participationType == domainPart.TypeDiver || participationType == domainPart.TypeFreediver

	if ev.MinDivingLevel != "" && participationType == domainPart.TypeDiver {
		rules = append(rules, eligibility.Rule{
			Attribute:    eligibility.AttrDivingLevel,
			Operator:     eligibility.OpGreaterEqual,
			RawValue:     ev.MinDivingLevel,
			Active:       true,
			ErrorMessage: fmt.Sprintf("diving level %s or higher is required", ev.MinDivingLevel),
		})
	}
	if ev.MinAge > 0 {
		rules = append(rules, eligibility.Rule{
			Attribute:    eligibility.AttrAge,
			Operator:     eligibility.OpGreaterEqual,
			RawValue:     fmt.Sprintf("%d", ev.MinAge),
			Active:       true,
			ErrorMessage: fmt.Sprintf("minimum age is %d", ev.MinAge),
		})
	}
	if ev.MaxAge > 0 {
		rules = append(rules, eligibility.Rule{
			Attribute:    eligibility.AttrAge,
			Operator:     eligibility.OpLessEqual,
			RawValue:     fmt.Sprintf("%d", ev.MaxAge),
			Active:       true,
			ErrorMessage: fmt.Sprintf("maximum age is %d", ev.MaxAge),
		})
	}
	if ev.RequiresCACI && diving {
		rules = append(rules, eligibility.Rule{
			Attribute:    eligibility.AttrCACIValid,
			Operator:     eligibility.OpEqual,
			RawValue:     "true",
			Active:       true,
			ErrorMessage: "a valid medical certificate is required",
		})
	}
	return rules
}

// ExecuteRegisterParticipation registers a member for an event.
// Eligibility is checked first; the capacity check and the insert then run
// in a single transaction inside the store. When the event is full and
// allows a waiting list, the registration lands there instead.
// PRE: EventID and MemberID reference existing rows
// POST: Participation persisted with status registered or waiting_list
// INVARIANT: confirmed quantity never exceeds event capacity
func ExecuteRegisterParticipation(ctx context.Context, input RegisterParticipationInput, deps RegisterParticipationDeps) (domainPart.Participation, error) {
	if input.EventID == "" {
		return domainPart.Participation{}, domainPart.ErrEmptyEventID
	}
	if input.MemberID == "" {
		return domainPart.Participation{}, domainPart.ErrEmptyMemberID
	}

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return domainPart.Participation{}, domainPart.ErrInvalidQuantity
	}

	participationType := input.ParticipationType
	if participationType == "" {
		participationType = domainPart.TypeDiver
	}

	now := deps.Now()

	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return domainPart.Participation{}, err
	}
	if ev.HasStarted(now) {
		return domainPart.Participation{}, event.ErrEventStarted
	}
	if participationType == domainPart.TypePilot && !ev.RequiresBoat {
		return domainPart.Participation{}, ErrInvalidParticipant
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return domainPart.Participation{}, err
	}
	if !m.IsActive() {
		return domainPart.Participation{}, ErrMemberNotActive
	}

	// Certificate lookup is fail-closed: any error means no valid CACI.
	caciValid := false
	cert, certErr := deps.CertificateStore.GetCurrentByMember(ctx, input.MemberID, now)
	if certErr == nil {
		caciValid = cert.IsValid(now)
	}
	if caciValid && ev.RequiresCACI {
		recordAccessQuietly(ctx, deps.AccessLogStore, caci.AccessLog{
			ID:            deps.GenerateID(),
			CertificateID: cert.ID,
			ActorID:       input.ActorID,
			Action:        caci.AccessView,
			Context:       "event_registration",
			OccurredAt:    now,
		})
	}

	stored, err := deps.RuleStore.ListByEvent(ctx, input.EventID)
	if err != nil {
		return domainPart.Participation{}, err
	}
	rules := append(implicitRules(ev, participationType), stored...)

	snapshot := eligibility.BuildSnapshot(m, caciValid, now)
	decision := deps.Evaluator.Evaluate(snapshot, rules)
	if !decision.Eligible {
		slog.Info("registration_event", "event", "registration_rejected",
			"event_id", input.EventID, "member_id", input.MemberID, "reason", decision.Reason)
		return domainPart.Participation{}, &eligibility.Error{Reason: decision.Reason}
	}

	p := domainPart.Participation{
		ID:                deps.GenerateID(),
		EventID:           input.EventID,
		MemberID:          input.MemberID,
		Status:            domainPart.StatusRegistered,
		Quantity:          quantity,
		MeetingPoint:      input.MeetingPoint,
		ParticipationType: participationType,
		CreatedAt:         now,
	}
	if err := p.Validate(); err != nil {
		return domainPart.Participation{}, err
	}

	err = deps.ParticipationStore.Register(ctx, p, ev.MaxParticipants)
	switch {
	case errors.Is(err, participation.ErrDuplicate):
		return domainPart.Participation{}, ErrAlreadyRegistered
	case errors.Is(err, participation.ErrCapacityFull):
		if !ev.AllowWaitingList {
			return domainPart.Participation{}, ErrCapacityExceeded
		}
		p.Status = domainPart.StatusWaitingList
		p.IsWaitingList = true
		if err := p.Validate(); err != nil {
			return domainPart.Participation{}, err
		}
		if err := deps.ParticipationStore.Save(ctx, p); err != nil {
			return domainPart.Participation{}, err
		}
	case err != nil:
		return domainPart.Participation{}, err
	}

	slog.Info("registration_event", "event", "participation_created",
		"participation_id", p.ID, "event_id", ev.ID, "member_id", m.ID,
		"status", p.Status, "quantity", p.Quantity)

	if deps.OutboxStore != nil {
		subject := fmt.Sprintf("Registration confirmed: %s", ev.Title)
		body := fmt.Sprintf("<p>Hi %s,</p><p>You are registered for <strong>%s</strong>.</p>", m.Name, ev.Title)
		if p.Status == domainPart.StatusWaitingList {
			subject = fmt.Sprintf("Waiting list: %s", ev.Title)
			body = fmt.Sprintf("<p>Hi %s,</p><p>The event <strong>%s</strong> is full. You are on the waiting list and will be notified when a spot frees up.</p>", m.Name, ev.Title)
		}
		if err := enqueueEmail(ctx, deps.OutboxStore, deps.GenerateID(), now, EmailPayload{
			To:      []string{m.Email},
			Subject: subject,
			HTML:    body,
		}); err != nil {
			slog.Error("registration_event", "event", "confirmation_enqueue_failed", "participation_id", p.ID, "error", err)
		}
	}

	return p, nil
}
