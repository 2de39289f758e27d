package caci

import (
	"errors"
	"time"
)

// Certificate status constants.
const (
	StatusPending   = "pending"
	StatusValidated = "validated"
	StatusRejected  = "rejected"
)

// DefaultRetentionMonths is how long a validated certificate is kept past
// its expiry before physical deletion.
const DefaultRetentionMonths = 6

// Domain errors.
var (
	ErrEmptyMemberID   = errors.New("member_id is required")
	ErrEmptyFileKey    = errors.New("file_key is required")
	ErrMissingExpiry   = errors.New("expiry date is required")
	ErrConsentRequired = errors.New("storage consent is required")
	ErrNotPending      = errors.New("certificate has already been reviewed")
	ErrEmptyReviewer   = errors.New("reviewer is required")
)

// Certificate is a member's medical non-contraindication certificate (CACI).
// The stored file is referenced by FileKey and physically deleted by the
// retention sweep once ScheduledDeletionDate has passed.
type Certificate struct {
	ID                    string
	MemberID              string
	FileKey               string
	ExpiryDate            time.Time
	Status                string
	ScheduledDeletionDate time.Time // zero until validated
	Consent               bool
	RejectionReason       string
	UploadedAt            time.Time
	ReviewedBy            string // account ID of the reviewer
	ReviewedAt            *time.Time
}

// Validate checks that the Certificate has valid data.
// PRE: Certificate struct is populated
// POST: Returns nil if valid, error otherwise
// INVARIANT: a certificate is never stored without explicit consent
func (c *Certificate) Validate() error {
	if c.MemberID == "" {
		return ErrEmptyMemberID
	}
	if c.FileKey == "" {
		return ErrEmptyFileKey
	}
	if c.ExpiryDate.IsZero() {
		return ErrMissingExpiry
	}
	if !c.Consent {
		return ErrConsentRequired
	}
	switch c.Status {
	case StatusPending, StatusValidated, StatusRejected:
	default:
		return errors.New("status must be 'pending', 'validated', or 'rejected'")
	}
	return nil
}

// IsValid returns true if the certificate is validated and not expired.
// PRE: now is the injected clock reading
// INVARIANT: Certificate fields are not mutated
func (c *Certificate) IsValid(now time.Time) bool {
	return c.Status == StatusValidated && now.Before(c.ExpiryDate)
}

// MarkValidated records a successful review and schedules deletion at
// expiry plus the retention window.
// PRE: Certificate is pending, reviewer is non-empty
// POST: Status validated, ScheduledDeletionDate and review fields set
func (c *Certificate) MarkValidated(reviewer string, retentionMonths int, now time.Time) error {
	if c.Status != StatusPending {
		return ErrNotPending
	}
	if reviewer == "" {
		return ErrEmptyReviewer
	}
	if retentionMonths <= 0 {
		retentionMonths = DefaultRetentionMonths
	}
	c.Status = StatusValidated
	c.ScheduledDeletionDate = c.ExpiryDate.AddDate(0, retentionMonths, 0)
	c.ReviewedBy = reviewer
	c.ReviewedAt = &now
	return nil
}

// MarkRejected records a failed review.
// PRE: Certificate is pending, reviewer is non-empty
// POST: Status rejected, reason and review fields set
func (c *Certificate) MarkRejected(reviewer, reason string, now time.Time) error {
	if c.Status != StatusPending {
		return ErrNotPending
	}
	if reviewer == "" {
		return ErrEmptyReviewer
	}
	c.Status = StatusRejected
	c.RejectionReason = reason
	c.ReviewedBy = reviewer
	c.ReviewedAt = &now
	return nil
}

// DueForDeletion returns true once the scheduled deletion date has passed.
// PRE: now is the injected clock reading
// INVARIANT: Certificate fields are not mutated
func (c *Certificate) DueForDeletion(now time.Time) bool {
	return !c.ScheduledDeletionDate.IsZero() && !now.Before(c.ScheduledDeletionDate)
}
