package caci

import (
	"errors"
	"time"
)

// AccessAction constants for the certificate access log.
const (
	AccessView     = "view"
	AccessDownload = "download"
	AccessReview   = "review"
	AccessUpload   = "upload"
	AccessDelete   = "delete"
)

// DefaultLogRetentionYears is how long access log rows are kept before the
// log-retention job purges them.
const DefaultLogRetentionYears = 3

// AccessLog is an immutable audit record of who touched a certificate,
// when, and in what context. Append-only; rows are never updated.
type AccessLog struct {
	ID            string
	CertificateID string
	ActorID       string // account ID of who accessed
	Action        string
	Context       string // e.g. "event_registration", "admin_review"
	OccurredAt    time.Time
}

// Validate checks that the AccessLog has valid data.
// PRE: AccessLog struct is populated
// POST: Returns nil if valid, error otherwise
func (l *AccessLog) Validate() error {
	if l.CertificateID == "" {
		return errors.New("certificate_id is required")
	}
	if l.ActorID == "" {
		return errors.New("actor_id is required")
	}
	switch l.Action {
	case AccessView, AccessDownload, AccessReview, AccessUpload, AccessDelete:
	default:
		return errors.New("action must be a known access action")
	}
	if l.OccurredAt.IsZero() {
		return errors.New("occurred_at must be set")
	}
	return nil
}
