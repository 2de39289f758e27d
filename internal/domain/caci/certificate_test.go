package caci

import (
	"testing"
	"time"
)

var reviewTime = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func pendingCertificate() Certificate {
	return Certificate{
		ID:         "c1",
		MemberID:   "m1",
		FileKey:    "caci/m1/2026.pdf",
		ExpiryDate: time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:     StatusPending,
		Consent:    true,
		UploadedAt: reviewTime,
	}
}

// TestCertificate_Validate tests validation rules, notably mandatory consent.
func TestCertificate_Validate(t *testing.T) {
	c := pendingCertificate()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid certificate, got: %v", err)
	}

	tests := []struct {
		name   string
		modify func(c *Certificate)
		want   error
	}{
		{"empty member", func(c *Certificate) { c.MemberID = "" }, ErrEmptyMemberID},
		{"empty file key", func(c *Certificate) { c.FileKey = "" }, ErrEmptyFileKey},
		{"missing expiry", func(c *Certificate) { c.ExpiryDate = time.Time{} }, ErrMissingExpiry},
		{"no consent", func(c *Certificate) { c.Consent = false }, ErrConsentRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := pendingCertificate()
			tc.modify(&c)
			if err := c.Validate(); err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// TestCertificate_MarkValidated tests that validation schedules deletion at
// expiry plus the retention window.
func TestCertificate_MarkValidated(t *testing.T) {
	c := pendingCertificate()
	if err := c.MarkValidated("reviewer-1", 6, reviewTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusValidated {
		t.Errorf("expected validated, got %s", c.Status)
	}
	want := time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC)
	if !c.ScheduledDeletionDate.Equal(want) {
		t.Errorf("expected deletion scheduled %v, got %v", want, c.ScheduledDeletionDate)
	}
	if c.ReviewedBy != "reviewer-1" || c.ReviewedAt == nil {
		t.Error("expected review fields set")
	}

	// Double review is rejected
	if err := c.MarkValidated("reviewer-2", 6, reviewTime); err != ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

// TestCertificate_MarkValidated_DefaultRetention tests the fallback window.
func TestCertificate_MarkValidated_DefaultRetention(t *testing.T) {
	c := pendingCertificate()
	if err := c.MarkValidated("reviewer-1", 0, reviewTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := c.ExpiryDate.AddDate(0, DefaultRetentionMonths, 0)
	if !c.ScheduledDeletionDate.Equal(want) {
		t.Errorf("expected default retention window, got %v", c.ScheduledDeletionDate)
	}
}

// TestCertificate_MarkRejected tests rejection with a reason.
func TestCertificate_MarkRejected(t *testing.T) {
	c := pendingCertificate()
	if err := c.MarkRejected("reviewer-1", "document is illegible", reviewTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", c.Status)
	}
	if c.RejectionReason != "document is illegible" {
		t.Errorf("expected reason preserved, got %q", c.RejectionReason)
	}
	if err := c.MarkRejected("reviewer-1", "again", reviewTime); err != ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

// TestCertificate_IsValid tests validity depends on status and expiry.
func TestCertificate_IsValid(t *testing.T) {
	c := pendingCertificate()
	if c.IsValid(reviewTime) {
		t.Error("pending certificate must not be valid")
	}
	_ = c.MarkValidated("reviewer-1", 6, reviewTime)
	if !c.IsValid(reviewTime) {
		t.Error("validated, unexpired certificate must be valid")
	}
	afterExpiry := c.ExpiryDate.Add(time.Hour)
	if c.IsValid(afterExpiry) {
		t.Error("expired certificate must not be valid")
	}
}

// TestCertificate_DueForDeletion tests the retention boundary.
func TestCertificate_DueForDeletion(t *testing.T) {
	c := pendingCertificate()
	if c.DueForDeletion(reviewTime.AddDate(10, 0, 0)) {
		t.Error("unreviewed certificate has no deletion date and is never due")
	}
	_ = c.MarkValidated("reviewer-1", 6, reviewTime)
	before := c.ScheduledDeletionDate.Add(-time.Minute)
	if c.DueForDeletion(before) {
		t.Error("not yet due before the scheduled date")
	}
	if !c.DueForDeletion(c.ScheduledDeletionDate) {
		t.Error("due exactly at the scheduled date")
	}
}

// TestAccessLog_Validate tests the access log's required fields.
func TestAccessLog_Validate(t *testing.T) {
	l := AccessLog{
		ID:            "l1",
		CertificateID: "c1",
		ActorID:       "a1",
		Action:        AccessView,
		Context:       "event_registration",
		OccurredAt:    reviewTime,
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("expected valid log, got: %v", err)
	}

	tests := []struct {
		name   string
		modify func(l *AccessLog)
	}{
		{"empty certificate", func(l *AccessLog) { l.CertificateID = "" }},
		{"empty actor", func(l *AccessLog) { l.ActorID = "" }},
		{"unknown action", func(l *AccessLog) { l.Action = "peek" }},
		{"missing timestamp", func(l *AccessLog) { l.OccurredAt = time.Time{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lg := l
			tc.modify(&lg)
			if err := lg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
