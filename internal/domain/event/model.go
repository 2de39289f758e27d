package event

import (
	"errors"
	"time"
)

// Event type constants.
const (
	TypeDive     = "dive"      // club dive outing
	TypeFreedive = "freedive"  // freediving session
	TypeTraining = "training"  // pool or theory training
	TypeSocial   = "social"    // social event, no diving requirements
)

// Max length constants.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxLocationLength    = 200
)

// Domain errors
var (
	ErrEventStarted = errors.New("event has already started")
)

// Event represents a club outing members can register for.
// PRE: Title is non-empty. StartDate is set. Type is a known type.
// INVARIANT: EndDate >= StartDate when EndDate is set.
// INVARIANT: capacity and rules are mutable only until StartDate.
type Event struct {
	ID                     string
	Title                  string
	Type                   string
	Description            string
	Location               string
	StartDate              time.Time
	EndDate                time.Time // zero value means single-day event
	MaxParticipants        int       // 0 means unlimited
	MinDivingLevel         string    // "" means no requirement
	MinAge                 int       // 0 means unbounded
	MaxAge                 int       // 0 means unbounded
	RequiresCACI           bool
	RequiresDivingDirector bool
	RequiresPilot          bool
	RequiresBoat           bool
	AllowWaitingList       bool
	CreatedBy              string // account ID
	CreatedAt              time.Time
}

// Validate checks the event's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (e *Event) Validate() error {
	if e.Title == "" {
		return errors.New("event title cannot be empty")
	}
	if len(e.Title) > MaxTitleLength {
		return errors.New("event title cannot exceed 200 characters")
	}
	if e.Type != TypeDive && e.Type != TypeFreedive && e.Type != TypeTraining && e.Type != TypeSocial {
		return errors.New("event type must be 'dive', 'freedive', 'training', or 'social'")
	}
	if e.StartDate.IsZero() {
		return errors.New("event start date is required")
	}
	if !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		return errors.New("event end date cannot be before start date")
	}
	if e.MaxParticipants < 0 {
		return errors.New("event capacity cannot be negative")
	}
	if e.MinAge < 0 || e.MaxAge < 0 {
		return errors.New("event age bounds cannot be negative")
	}
	if e.MinAge > 0 && e.MaxAge > 0 && e.MinAge > e.MaxAge {
		return errors.New("event minimum age cannot exceed maximum age")
	}
	if len(e.Description) > MaxDescriptionLength {
		return errors.New("event description cannot exceed 2000 characters")
	}
	if len(e.Location) > MaxLocationLength {
		return errors.New("event location cannot exceed 200 characters")
	}
	return nil
}

// HasCapacity returns true if the event limits participant count.
// INVARIANT: Event fields are not mutated
func (e *Event) HasCapacity() bool {
	return e.MaxParticipants > 0
}

// HasStarted returns true once the event's start date has passed.
// PRE: now is the injected clock reading
// INVARIANT: Event fields are not mutated
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartDate)
}

// IsMultiDay returns true if the event spans more than one day.
// PRE: none
// POST: returns true if EndDate is set and on a different calendar day than StartDate
func (e *Event) IsMultiDay() bool {
	if e.EndDate.IsZero() {
		return false
	}
	return e.EndDate.After(e.StartDate) &&
		e.EndDate.Format("2006-01-02") != e.StartDate.Format("2006-01-02")
}
