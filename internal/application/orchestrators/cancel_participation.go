package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"divehub/internal/domain/event"
	"divehub/internal/domain/member"
	domainPart "divehub/internal/domain/participation"
)

// ErrNotOwnParticipation is returned when a member cancels a registration
// that is not theirs and lacks organizer rights.
var ErrNotOwnParticipation = errors.New("participation belongs to another member")

// ParticipationStoreForCancel defines the participation store interface
// needed here.
type ParticipationStoreForCancel interface {
	GetByID(ctx context.Context, id string) (domainPart.Participation, error)
	Save(ctx context.Context, value domainPart.Participation) error
	ListWaiting(ctx context.Context, eventID string) ([]domainPart.Participation, error)
	SumConfirmedQuantity(ctx context.Context, eventID string) (int, error)
}

// CancelParticipationInput carries input for the orchestrator.
type CancelParticipationInput struct {
	ParticipationID string
	MemberID        string // requesting member, "" when an organizer cancels
}

// CancelParticipationDeps holds dependencies for CancelParticipation.
type CancelParticipationDeps struct {
	EventStore         EventStoreForRegistration
	MemberStore        MemberStoreForRegistration
	ParticipationStore ParticipationStoreForCancel
	OutboxStore        OutboxStoreForOrchestrator
	GenerateID         func() string
	Now                func() time.Time
}

// ExecuteCancelParticipation cancels a registration and promotes from the
// waiting list. Promotion is best-fit: the queue is walked in FIFO order
// and every entry whose quantity fits the freed capacity is promoted, so a
// large group at the head does not starve smaller groups behind it.
// PRE: ParticipationID references an existing participation
// POST: Participation cancelled; zero or more waiting entries promoted
// INVARIANT: confirmed quantity never exceeds event capacity
func ExecuteCancelParticipation(ctx context.Context, input CancelParticipationInput, deps CancelParticipationDeps) ([]domainPart.Participation, error) {
	p, err := deps.ParticipationStore.GetByID(ctx, input.ParticipationID)
	if err != nil {
		return nil, err
	}
	if input.MemberID != "" && p.MemberID != input.MemberID {
		return nil, ErrNotOwnParticipation
	}

	now := deps.Now()
	wasCounting := p.CountsAgainstCapacity()

	if err := p.Cancel(now); err != nil {
		return nil, err
	}
	if err := deps.ParticipationStore.Save(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("registration_event", "event", "participation_cancelled",
		"participation_id", p.ID, "event_id", p.EventID, "member_id", p.MemberID)

	// Waiting-list entries free no capacity when cancelled.
	if !wasCounting {
		return nil, nil
	}

	ev, err := deps.EventStore.GetByID(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	if ev.MaxParticipants == 0 {
		// Unlimited events never queue anyone, nothing to promote.
		return nil, nil
	}

	return promoteWaiting(ctx, ev, deps, now)
}

// promoteWaiting fills freed capacity from the waiting list in best-fit
// FIFO order and notifies each promoted member.
func promoteWaiting(ctx context.Context, ev event.Event, deps CancelParticipationDeps, now time.Time) ([]domainPart.Participation, error) {
	taken, err := deps.ParticipationStore.SumConfirmedQuantity(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	available := ev.MaxParticipants - taken
	if available <= 0 {
		return nil, nil
	}

	waiting, err := deps.ParticipationStore.ListWaiting(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	var promoted []domainPart.Participation
	for _, w := range waiting {
		if w.Quantity > available {
			continue
		}
		if err := w.Promote(); err != nil {
			slog.Warn("registration_event", "event", "promotion_skipped", "participation_id", w.ID, "error", err)
			continue
		}
		if err := deps.ParticipationStore.Save(ctx, w); err != nil {
			return promoted, err
		}
		available -= w.Quantity
		promoted = append(promoted, w)

		slog.Info("registration_event", "event", "participation_promoted",
			"participation_id", w.ID, "event_id", ev.ID, "member_id", w.MemberID, "quantity", w.Quantity)

		notifyPromotion(ctx, ev, w, deps, now)

		if available == 0 {
			break
		}
	}
	return promoted, nil
}

func notifyPromotion(ctx context.Context, ev event.Event, p domainPart.Participation, deps CancelParticipationDeps, now time.Time) {
	if deps.OutboxStore == nil || deps.MemberStore == nil {
		return
	}
	m, err := deps.MemberStore.GetByID(ctx, p.MemberID)
	if err != nil {
		slog.Warn("registration_event", "event", "promotion_notify_failed", "member_id", p.MemberID, "error", err)
		return
	}
	if err := enqueueEmail(ctx, deps.OutboxStore, deps.GenerateID(), now, EmailPayload{
		To:      []string{m.Email},
		Subject: fmt.Sprintf("A spot opened up: %s", ev.Title),
		HTML:    promotionBody(m, ev),
	}); err != nil {
		slog.Error("registration_event", "event", "promotion_enqueue_failed", "participation_id", p.ID, "error", err)
	}
}

func promotionBody(m member.Member, ev event.Event) string {
	return fmt.Sprintf("<p>Hi %s,</p><p>A spot opened up for <strong>%s</strong> and your registration has been confirmed.</p>", m.Name, ev.Title)
}
