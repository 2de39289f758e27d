package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"divehub/internal/domain/account"
	"divehub/internal/domain/caci"
	"divehub/internal/domain/member"
)

// Review decisions.
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

// Orchestrator errors for certificate review.
var (
	ErrNotAuthorizedToReview = errors.New("account is not authorized to review certificates")
	ErrUnknownDecision       = errors.New("decision must be approve or reject")
	ErrReasonRequired        = errors.New("a rejection reason is required")
)

// CertificateStoreForReview defines the certificate store interface needed here.
type CertificateStoreForReview interface {
	GetByID(ctx context.Context, id string) (caci.Certificate, error)
	Save(ctx context.Context, value caci.Certificate) error
}

// AccountStoreForReview resolves the reviewing account.
type AccountStoreForReview interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// ReviewCertificateInput carries input for the orchestrator.
type ReviewCertificateInput struct {
	CertificateID   string
	ReviewerID      string
	Decision        string // approve or reject
	RejectionReason string // required when rejecting
	RetentionMonths int    // defaults to caci.DefaultRetentionMonths
}

// ReviewCertificateDeps holds dependencies for ReviewCertificate.
type ReviewCertificateDeps struct {
	CertificateStore CertificateStoreForReview
	AccountStore     AccountStoreForReview
	MemberStore      MemberStoreForRegistration
	AccessLogStore   AccessLogAppender
	OutboxStore      OutboxStoreForOrchestrator
	GenerateID       func() string
	Now              func() time.Time
}

// ExecuteReviewCertificate validates or rejects a pending certificate.
// Validation schedules the document's deletion at expiry plus the retention
// window. The member is notified of the outcome by email.
// PRE: Reviewer has the reviewer or admin role, certificate is pending
// POST: Certificate status updated, review logged, member notified
func ExecuteReviewCertificate(ctx context.Context, input ReviewCertificateInput, deps ReviewCertificateDeps) (caci.Certificate, error) {
	reviewer, err := deps.AccountStore.GetByID(ctx, input.ReviewerID)
	if err != nil {
		return caci.Certificate{}, err
	}
	if !reviewer.CanReviewCACI() {
		return caci.Certificate{}, ErrNotAuthorizedToReview
	}

	cert, err := deps.CertificateStore.GetByID(ctx, input.CertificateID)
	if err != nil {
		return caci.Certificate{}, err
	}

	now := deps.Now()
	retention := input.RetentionMonths
	if retention <= 0 {
		retention = caci.DefaultRetentionMonths
	}

	switch input.Decision {
	case ReviewApprove:
		if err := cert.MarkValidated(input.ReviewerID, retention, now); err != nil {
			return caci.Certificate{}, err
		}
	case ReviewReject:
		if input.RejectionReason == "" {
			return caci.Certificate{}, ErrReasonRequired
		}
		if err := cert.MarkRejected(input.ReviewerID, input.RejectionReason, now); err != nil {
			return caci.Certificate{}, err
		}
	default:
		return caci.Certificate{}, ErrUnknownDecision
	}

	if err := deps.CertificateStore.Save(ctx, cert); err != nil {
		return caci.Certificate{}, err
	}

	recordAccessQuietly(ctx, deps.AccessLogStore, caci.AccessLog{
		ID:            deps.GenerateID(),
		CertificateID: cert.ID,
		ActorID:       input.ReviewerID,
		Action:        caci.AccessReview,
		Context:       "admin_review",
		OccurredAt:    now,
	})

	slog.Info("caci_event", "event", "certificate_reviewed",
		"certificate_id", cert.ID, "member_id", cert.MemberID,
		"decision", input.Decision, "reviewer", input.ReviewerID)

	notifyReviewOutcome(ctx, cert, input, deps, now)
	return cert, nil
}

func notifyReviewOutcome(ctx context.Context, cert caci.Certificate, input ReviewCertificateInput, deps ReviewCertificateDeps, now time.Time) {
	if deps.OutboxStore == nil || deps.MemberStore == nil {
		return
	}
	m, err := deps.MemberStore.GetByID(ctx, cert.MemberID)
	if err != nil {
		slog.Warn("caci_event", "event", "review_notify_failed", "member_id", cert.MemberID, "error", err)
		return
	}

	payload := reviewOutcomeEmail(m, cert, input.RejectionReason)
	if err := enqueueEmail(ctx, deps.OutboxStore, deps.GenerateID(), now, payload); err != nil {
		slog.Error("caci_event", "event", "review_enqueue_failed", "certificate_id", cert.ID, "error", err)
	}
}

func reviewOutcomeEmail(m member.Member, cert caci.Certificate, reason string) EmailPayload {
	if cert.Status == caci.StatusValidated {
		return EmailPayload{
			To:      []string{m.Email},
			Subject: "Your medical certificate has been validated",
			HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your medical certificate has been validated. It is valid until %s.</p>",
				m.Name, cert.ExpiryDate.Format("2 January 2006")),
		}
	}
	return EmailPayload{
		To:      []string{m.Email},
		Subject: "Your medical certificate was rejected",
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your medical certificate could not be validated: %s</p><p>Please upload a new document.</p>",
			m.Name, reason),
	}
}
