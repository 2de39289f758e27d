package member

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Member status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Diving level constants (French federation scale, ordered).
const (
	LevelNone = ""
	LevelN1   = "N1"
	LevelN2   = "N2"
	LevelN3   = "N3"
	LevelN4   = "N4"
	LevelN5   = "N5"
	LevelE1   = "E1"
	LevelE2   = "E2"
	LevelE3   = "E3"
	LevelE4   = "E4"
)

// Freediving level constants (ordered).
const (
	FreediveA1 = "A1"
	FreediveA2 = "A2"
	FreediveA3 = "A3"
	FreediveA4 = "A4"
)

// divingLevelRank orders diving levels for comparisons. Instructor grades
// rank above diver grades because they subsume them.
var divingLevelRank = map[string]int{
	LevelNone: 0,
	LevelN1:   1,
	LevelN2:   2,
	LevelN3:   3,
	LevelN4:   4,
	LevelN5:   5,
	LevelE1:   6,
	LevelE2:   7,
	LevelE3:   8,
	LevelE4:   9,
}

// freedivingLevelRank orders freediving levels for comparisons.
var freedivingLevelRank = map[string]int{
	LevelNone:  0,
	FreediveA1: 1,
	FreediveA2: 2,
	FreediveA3: 3,
	FreediveA4: 4,
}

// Domain errors
var (
	ErrAlreadyArchived = errors.New("member is already archived")
	ErrNotArchived     = errors.New("member is not archived")
	ErrUnknownLevel    = errors.New("unknown diving level")
)

// Member holds state for a club member (participant).
type Member struct {
	ID               string
	AccountID        string
	Email            string
	Name             string
	BirthDate        time.Time
	DivingLevel      string // "", N1..N5, E1..E4
	FreedivingLevel  string // "", A1..A4
	Insured          bool
	IsDiver          bool
	IsFreediver      bool
	IsPilot          bool
	IsInstructor     bool
	IsDivingDirector bool
	Status           string
}

// DivingLevelRank returns the ordinal rank of a diving level.
// PRE: none
// POST: Returns (rank, true) for a known level, (0, false) otherwise
func DivingLevelRank(level string) (int, bool) {
	r, ok := divingLevelRank[level]
	return r, ok
}

// FreedivingLevelRank returns the ordinal rank of a freediving level.
// PRE: none
// POST: Returns (rank, true) for a known level, (0, false) otherwise
func FreedivingLevelRank(level string) (int, bool) {
	r, ok := freedivingLevelRank[level]
	return r, ok
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty, levels must be known
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("member name cannot be empty")
	}
	if len(m.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if !strings.Contains(m.Email, "@") {
		return errors.New("member email must be valid")
	}
	if _, ok := divingLevelRank[m.DivingLevel]; !ok {
		return ErrUnknownLevel
	}
	if _, ok := freedivingLevelRank[m.FreedivingLevel]; !ok {
		return errors.New("unknown freediving level")
	}
	if m.Status != StatusActive && m.Status != StatusInactive && m.Status != StatusArchived {
		return errors.New("status must be 'active', 'inactive', or 'archived'")
	}
	return nil
}

// Age returns the member's age in whole years at the given time.
// PRE: BirthDate is set (zero BirthDate returns 0)
// INVARIANT: Member fields are not mutated
func (m *Member) Age(now time.Time) int {
	if m.BirthDate.IsZero() {
		return 0
	}
	years := now.Year() - m.BirthDate.Year()
	anniversary := time.Date(now.Year(), m.BirthDate.Month(), m.BirthDate.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// IsActive returns true if the member is currently active.
// INVARIANT: Status field is not mutated
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// IsArchived returns true if the member is archived.
// INVARIANT: Status field is not mutated
func (m *Member) IsArchived() bool {
	return m.Status == StatusArchived
}

// Archive sets the member status to archived.
// PRE: Member is not already archived
// POST: Status is set to archived
func (m *Member) Archive() error {
	if m.Status == StatusArchived {
		return ErrAlreadyArchived
	}
	m.Status = StatusArchived
	return nil
}

// Restore sets the member status back to active.
// PRE: Member is currently archived
// POST: Status is set to active
func (m *Member) Restore() error {
	if m.Status != StatusArchived {
		return ErrNotArchived
	}
	m.Status = StatusActive
	return nil
}
