package participation

import (
	"errors"
	"time"
)

// Status constants for the registration lifecycle. Cancellation is a status
// change, never a row delete, so event history is preserved.
const (
	StatusRegistered  = "registered"
	StatusWaitingList = "waiting_list"
	StatusConfirmed   = "confirmed"
	StatusCancelled   = "cancelled"
)

// Participation type constants.
const (
	TypeDiver     = "diver"
	TypeFreediver = "freediver"
	TypePilot     = "pilot"
	TypeEscort    = "escort" // non-diving companion
)

// Domain errors
var (
	ErrEmptyEventID      = errors.New("event_id is required")
	ErrEmptyMemberID     = errors.New("member_id is required")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrAlreadyCancelled  = errors.New("participation is already cancelled")
	ErrNotOnWaitingList  = errors.New("participation is not on the waiting list")
	ErrNotRegistered     = errors.New("participation is not in registered status")
	ErrCancelledTerminal = errors.New("cancelled participation cannot change status")
)

// Participation links a member to an event roster.
// INVARIANT: sum of Quantity over non-cancelled, non-waiting-list rows for
// an event never exceeds the event's capacity when capacity is set.
type Participation struct {
	ID                string
	EventID           string
	MemberID          string
	Status            string
	Quantity          int // spots consumed, >= 1 (member plus guests)
	IsWaitingList     bool
	MeetingPoint      string
	ParticipationType string
	CreatedAt         time.Time
	CancelledAt       *time.Time
}

// Validate checks that the Participation has valid data.
// PRE: Participation struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Participation) Validate() error {
	if p.EventID == "" {
		return ErrEmptyEventID
	}
	if p.MemberID == "" {
		return ErrEmptyMemberID
	}
	if p.Quantity < 1 {
		return ErrInvalidQuantity
	}
	switch p.Status {
	case StatusRegistered, StatusWaitingList, StatusConfirmed, StatusCancelled:
	default:
		return errors.New("status must be 'registered', 'waiting_list', 'confirmed', or 'cancelled'")
	}
	if p.Status == StatusWaitingList && !p.IsWaitingList {
		return errors.New("waiting_list status requires the waiting list flag")
	}
	return nil
}

// IsActive returns true for participations that are not cancelled.
// INVARIANT: Participation fields are not mutated
func (p *Participation) IsActive() bool {
	return p.Status != StatusCancelled
}

// CountsAgainstCapacity returns true if this row consumes confirmed capacity.
// INVARIANT: Participation fields are not mutated
func (p *Participation) CountsAgainstCapacity() bool {
	return p.IsActive() && !p.IsWaitingList
}

// Cancel marks the participation as cancelled.
// PRE: Participation is not already cancelled
// POST: Status is cancelled, CancelledAt set
func (p *Participation) Cancel(now time.Time) error {
	if p.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	p.Status = StatusCancelled
	p.CancelledAt = &now
	return nil
}

// Promote moves a waiting-list participation onto the confirmed roster.
// PRE: Participation is on the waiting list
// POST: Status is registered, IsWaitingList cleared
func (p *Participation) Promote() error {
	if p.Status == StatusCancelled {
		return ErrCancelledTerminal
	}
	if p.Status != StatusWaitingList || !p.IsWaitingList {
		return ErrNotOnWaitingList
	}
	p.Status = StatusRegistered
	p.IsWaitingList = false
	return nil
}

// Confirm marks a registered participation as attendance-confirmed by an
// organizer. No capacity effect: registered rows already count.
// PRE: Participation is in registered status
// POST: Status is confirmed
func (p *Participation) Confirm() error {
	if p.Status == StatusCancelled {
		return ErrCancelledTerminal
	}
	if p.Status != StatusRegistered {
		return ErrNotRegistered
	}
	p.Status = StatusConfirmed
	return nil
}
