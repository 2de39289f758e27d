package orchestrators

import (
	"context"
	"log/slog"

	domainPart "divehub/internal/domain/participation"
)

// ParticipationStoreForConfirm defines the participation store interface
// needed here.
type ParticipationStoreForConfirm interface {
	GetByID(ctx context.Context, id string) (domainPart.Participation, error)
	Save(ctx context.Context, value domainPart.Participation) error
}

// ConfirmParticipationInput carries input for the orchestrator.
type ConfirmParticipationInput struct {
	ParticipationID string
	ActorID         string
}

// ConfirmParticipationDeps holds dependencies for ConfirmParticipation.
type ConfirmParticipationDeps struct {
	ParticipationStore ParticipationStoreForConfirm
	AccountStore       AccountStoreForManage
}

// ExecuteConfirmParticipation marks a registered participation as
// attendance-confirmed. Registered rows already count against capacity, so
// confirmation has no capacity effect.
// PRE: ParticipationID references an existing participation in registered status
// POST: Participation persisted with status confirmed
func ExecuteConfirmParticipation(ctx context.Context, input ConfirmParticipationInput, deps ConfirmParticipationDeps) (domainPart.Participation, error) {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return domainPart.Participation{}, err
	}
	if !actor.IsOrganizerOrAdmin() {
		return domainPart.Participation{}, ErrNotAuthorizedToManageEvents
	}

	p, err := deps.ParticipationStore.GetByID(ctx, input.ParticipationID)
	if err != nil {
		return domainPart.Participation{}, err
	}
	if err := p.Confirm(); err != nil {
		return domainPart.Participation{}, err
	}
	if err := deps.ParticipationStore.Save(ctx, p); err != nil {
		return domainPart.Participation{}, err
	}

	slog.Info("registration_event", "event", "participation_confirmed",
		"participation_id", p.ID, "event_id", p.EventID, "member_id", p.MemberID, "actor_id", input.ActorID)
	return p, nil
}
