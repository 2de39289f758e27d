package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divehub/internal/domain/caci"
	"divehub/internal/domain/gallery"
	"divehub/internal/domain/member"
)

// DefaultReminderDays are the lead times, in days, at which certificate
// expiry reminders go out. Each run matches exactly one calendar day per
// lead time, so a member gets one reminder per threshold, not one per day.
var DefaultReminderDays = []int{30, 7}

// CertificateStoreForReminders defines the certificate store interface
// needed here.
type CertificateStoreForReminders interface {
	ListExpiringOn(ctx context.Context, day time.Time) ([]caci.Certificate, error)
}

// GalleryStoreForReminders defines the gallery store interface needed here.
type GalleryStoreForReminders interface {
	ListExpiringOn(ctx context.Context, day time.Time) ([]gallery.Gallery, error)
}

// ExpiryRemindersInput carries input for the orchestrator.
type ExpiryRemindersInput struct {
	ReminderDays []int // defaults to DefaultReminderDays
}

// ExpiryRemindersDeps holds dependencies for ExpiryReminders.
type ExpiryRemindersDeps struct {
	CertificateStore CertificateStoreForReminders
	GalleryStore     GalleryStoreForReminders // optional: nil skips gallery reminders
	MemberStore      MemberStoreForRegistration
	AccountStore     AccountStoreForManage // resolves gallery creators
	OutboxStore      OutboxStoreForOrchestrator
	GenerateID       func() string
	Now              func() time.Time
}

// ReminderReport summarizes one reminder run.
type ReminderReport struct {
	Enqueued int
	Skipped  int
}

// ExecuteExpiryReminders enqueues expiry reminder emails for certificates
// whose expiry date falls exactly N days from today, for each configured N.
// Days are compared in UTC calendar terms.
// PRE: Deps are valid
// POST: One email enqueued per matching certificate
func ExecuteExpiryReminders(ctx context.Context, input ExpiryRemindersInput, deps ExpiryRemindersDeps) (ReminderReport, error) {
	days := input.ReminderDays
	if len(days) == 0 {
		days = DefaultReminderDays
	}

	now := deps.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var report ReminderReport
	for _, lead := range days {
		target := today.AddDate(0, 0, lead)
		certs, err := deps.CertificateStore.ListExpiringOn(ctx, target)
		if err != nil {
			return report, fmt.Errorf("failed to list certificates expiring on %s: %w", target.Format("2006-01-02"), err)
		}

		for _, cert := range certs {
			m, err := deps.MemberStore.GetByID(ctx, cert.MemberID)
			if err != nil {
				slog.Warn("reminder_event", "event", "member_lookup_failed", "member_id", cert.MemberID, "error", err)
				report.Skipped++
				continue
			}
			if !m.IsActive() {
				report.Skipped++
				continue
			}
			if err := enqueueEmail(ctx, deps.OutboxStore, deps.GenerateID(), now, reminderEmail(m, cert, lead)); err != nil {
				slog.Error("reminder_event", "event", "reminder_enqueue_failed", "certificate_id", cert.ID, "error", err)
				report.Skipped++
				continue
			}
			report.Enqueued++
		}

		if deps.GalleryStore != nil {
			if err := remindGalleries(ctx, deps, target, now, lead, &report); err != nil {
				return report, err
			}
		}
	}

	slog.Info("reminder_event", "event", "reminders_complete", "enqueued", report.Enqueued, "skipped", report.Skipped)
	return report, nil
}

// remindGalleries notifies the creator of each gallery expiring on the
// target day so photos can be archived before they are swept.
func remindGalleries(ctx context.Context, deps ExpiryRemindersDeps, target, now time.Time, lead int, report *ReminderReport) error {
	galleries, err := deps.GalleryStore.ListExpiringOn(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to list galleries expiring on %s: %w", target.Format("2006-01-02"), err)
	}
	for _, g := range galleries {
		if deps.AccountStore == nil {
			report.Skipped++
			continue
		}
		acct, err := deps.AccountStore.GetByID(ctx, g.CreatedBy)
		if err != nil {
			slog.Warn("reminder_event", "event", "gallery_owner_lookup_failed", "gallery_id", g.ID, "error", err)
			report.Skipped++
			continue
		}
		if err := enqueueEmail(ctx, deps.OutboxStore, deps.GenerateID(), now, EmailPayload{
			To:      []string{acct.Email},
			Subject: fmt.Sprintf("Gallery %q expires in %d days", g.Title, lead),
			HTML: fmt.Sprintf("<p>The gallery <strong>%s</strong> expires on %s. Its photos will be removed afterwards.</p>",
				g.Title, g.ExpiryDate.Format("2 January 2006")),
		}); err != nil {
			slog.Error("reminder_event", "event", "reminder_enqueue_failed", "gallery_id", g.ID, "error", err)
			report.Skipped++
			continue
		}
		report.Enqueued++
	}
	return nil
}

func reminderEmail(m member.Member, cert caci.Certificate, lead int) EmailPayload {
	return EmailPayload{
		To:      []string{m.Email},
		Subject: fmt.Sprintf("Your medical certificate expires in %d days", lead),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your medical certificate expires on <strong>%s</strong>. Please schedule a visit and upload the new certificate before then, or you will not be able to register for dives.</p>",
			m.Name, cert.ExpiryDate.Format("2 January 2006")),
	}
}
