package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"divehub/internal/domain/caci"
)

// RecordAccessInput carries input for the access recording orchestrator.
type RecordAccessInput struct {
	CertificateID string
	ActorID       string
	Action        string
	Context       string
}

// RecordAccessDeps holds dependencies for RecordAccess.
type RecordAccessDeps struct {
	AccessLogStore AccessLogAppender
	GenerateID     func() string
	Now            func() time.Time
}

// ExecuteRecordAccess appends a certificate access to the audit trail.
// Recording is best-effort: a failed append is logged but never blocks the
// access that triggered it.
// PRE: CertificateID, ActorID and Action are non-empty
// POST: Entry appended, or the failure logged
func ExecuteRecordAccess(ctx context.Context, input RecordAccessInput, deps RecordAccessDeps) {
	entry := caci.AccessLog{
		ID:            deps.GenerateID(),
		CertificateID: input.CertificateID,
		ActorID:       input.ActorID,
		Action:        input.Action,
		Context:       input.Context,
		OccurredAt:    deps.Now(),
	}
	recordAccessQuietly(ctx, deps.AccessLogStore, entry)
}

// recordAccessQuietly validates and appends an access log entry, swallowing
// all failures.
func recordAccessQuietly(ctx context.Context, store AccessLogAppender, entry caci.AccessLog) {
	if store == nil {
		return
	}
	if err := entry.Validate(); err != nil {
		slog.Warn("caci_event", "event", "access_log_invalid", "certificate_id", entry.CertificateID, "error", err)
		return
	}
	if err := store.Append(ctx, entry); err != nil {
		slog.Warn("caci_event", "event", "access_log_failed", "certificate_id", entry.CertificateID, "error", err)
	}
}
