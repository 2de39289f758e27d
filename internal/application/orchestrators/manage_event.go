package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"divehub/internal/domain/account"
	eligibilitydomain "divehub/internal/domain/eligibility"
	"divehub/internal/domain/event"
)

// Orchestrator errors for event management.
var (
	ErrNotAuthorizedToManageEvents = errors.New("account is not authorized to manage events")
	ErrEventLocked                 = errors.New("event has started and can no longer be modified")
)

// EventStoreForManage defines the event store interface needed here.
type EventStoreForManage interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	Save(ctx context.Context, value event.Event) error
	Delete(ctx context.Context, id string) error
}

// RuleStoreForManage defines the rule store interface needed here.
type RuleStoreForManage interface {
	ListByEvent(ctx context.Context, eventID string) ([]eligibilitydomain.Rule, error)
	Save(ctx context.Context, value eligibilitydomain.Rule) error
	DeleteByEvent(ctx context.Context, eventID string) error
}

// AccountStoreForManage resolves the acting account.
type AccountStoreForManage interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// SaveEventInput carries input for the orchestrator. A zero ID creates a
// new event.
type SaveEventInput struct {
	ID                     string
	ActorID                string
	Title                  string
	Type                   string
	Description            string
	Location               string
	StartDate              time.Time
	EndDate                time.Time
	MaxParticipants        int
	MinDivingLevel         string
	MinAge                 int
	MaxAge                 int
	RequiresCACI           bool
	RequiresDivingDirector bool
	RequiresPilot          bool
	RequiresBoat           bool
	AllowWaitingList       bool
}

// SaveEventDeps holds dependencies for SaveEvent.
type SaveEventDeps struct {
	EventStore   EventStoreForManage
	AccountStore AccountStoreForManage
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSaveEvent creates or updates an event.
// PRE: Actor has the organizer or admin role
// POST: Event persisted; a started event keeps its start date and capacity
// INVARIANT: capacity and requirement fields are frozen once the event starts
func ExecuteSaveEvent(ctx context.Context, input SaveEventInput, deps SaveEventDeps) (event.Event, error) {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return event.Event{}, err
	}
	if !actor.IsOrganizerOrAdmin() {
		return event.Event{}, ErrNotAuthorizedToManageEvents
	}

	now := deps.Now()
	ev := event.Event{
		ID:                     input.ID,
		Title:                  input.Title,
		Type:                   input.Type,
		Description:            input.Description,
		Location:               input.Location,
		StartDate:              input.StartDate,
		EndDate:                input.EndDate,
		MaxParticipants:        input.MaxParticipants,
		MinDivingLevel:         input.MinDivingLevel,
		MinAge:                 input.MinAge,
		MaxAge:                 input.MaxAge,
		RequiresCACI:           input.RequiresCACI,
		RequiresDivingDirector: input.RequiresDivingDirector,
		RequiresPilot:          input.RequiresPilot,
		RequiresBoat:           input.RequiresBoat,
		AllowWaitingList:       input.AllowWaitingList,
		CreatedBy:              input.ActorID,
		CreatedAt:              now,
	}

	if input.ID != "" {
		existing, err := deps.EventStore.GetByID(ctx, input.ID)
		if err != nil {
			return event.Event{}, err
		}
		if existing.HasStarted(now) {
			return event.Event{}, ErrEventLocked
		}
		ev.CreatedBy = existing.CreatedBy
		ev.CreatedAt = existing.CreatedAt
	} else {
		ev.ID = deps.GenerateID()
	}

	if err := ev.Validate(); err != nil {
		return event.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, ev); err != nil {
		return event.Event{}, err
	}

	slog.Info("event_event", "event", "event_saved", "event_id", ev.ID, "title", ev.Title, "actor_id", input.ActorID)
	return ev, nil
}

// SetEventRulesInput carries input for the orchestrator.
type SetEventRulesInput struct {
	EventID string
	ActorID string
	Rules   []eligibilitydomain.Rule // replaces the event's stored rules
}

// SetEventRulesDeps holds dependencies for SetEventRules.
type SetEventRulesDeps struct {
	EventStore   EventStoreForManage
	RuleStore    RuleStoreForManage
	AccountStore AccountStoreForManage
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSetEventRules replaces the stored eligibility rules of an event.
// Display order follows the order of the input slice.
// PRE: Actor has the organizer or admin role, event has not started
// POST: Stored rules match input exactly
func ExecuteSetEventRules(ctx context.Context, input SetEventRulesInput, deps SetEventRulesDeps) error {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return err
	}
	if !actor.IsOrganizerOrAdmin() {
		return ErrNotAuthorizedToManageEvents
	}

	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return err
	}
	if ev.HasStarted(deps.Now()) {
		return ErrEventLocked
	}

	// Validate everything before touching storage so a bad rule cannot
	// leave the event with half its rules.
	for i := range input.Rules {
		input.Rules[i].EventID = input.EventID
		input.Rules[i].DisplayOrder = i
		if input.Rules[i].ID == "" {
			input.Rules[i].ID = deps.GenerateID()
		}
		if err := input.Rules[i].Validate(); err != nil {
			return err
		}
	}

	if err := deps.RuleStore.DeleteByEvent(ctx, input.EventID); err != nil {
		return err
	}
	for _, r := range input.Rules {
		if err := deps.RuleStore.Save(ctx, r); err != nil {
			return err
		}
	}

	slog.Info("event_event", "event", "event_rules_set", "event_id", input.EventID, "rule_count", len(input.Rules), "actor_id", input.ActorID)
	return nil
}

// DeleteEventInput carries input for the orchestrator.
type DeleteEventInput struct {
	EventID string
	ActorID string
}

// ExecuteDeleteEvent removes an event and its eligibility rules.
// PRE: Actor has the organizer or admin role
// POST: Event and its rules are gone
func ExecuteDeleteEvent(ctx context.Context, input DeleteEventInput, deps SetEventRulesDeps) error {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return err
	}
	if !actor.IsOrganizerOrAdmin() {
		return ErrNotAuthorizedToManageEvents
	}

	if _, err := deps.EventStore.GetByID(ctx, input.EventID); err != nil {
		return err
	}
	if err := deps.RuleStore.DeleteByEvent(ctx, input.EventID); err != nil {
		return err
	}
	if err := deps.EventStore.Delete(ctx, input.EventID); err != nil {
		return err
	}

	slog.Info("event_event", "event", "event_deleted", "event_id", input.EventID, "actor_id", input.ActorID)
	return nil
}
