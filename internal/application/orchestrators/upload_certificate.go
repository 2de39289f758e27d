package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"divehub/internal/domain/caci"
)

// ErrExpiredCertificate is returned when an upload carries an expiry date
// in the past.
var ErrExpiredCertificate = errors.New("certificate expiry date is in the past")

// CertificateStoreForUpload defines the certificate store interface needed here.
type CertificateStoreForUpload interface {
	Save(ctx context.Context, value caci.Certificate) error
}

// FileStoreForUpload persists the uploaded document.
type FileStoreForUpload interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
}

// UploadCertificateInput carries input for the orchestrator.
type UploadCertificateInput struct {
	MemberID   string
	ExpiryDate time.Time
	Consent    bool
	File       io.Reader
	ActorID    string // account performing the upload
}

// UploadCertificateDeps holds dependencies for UploadCertificate.
type UploadCertificateDeps struct {
	CertificateStore CertificateStoreForUpload
	FileStore        FileStoreForUpload
	AccessLogStore   AccessLogAppender
	GenerateID       func() string
	Now              func() time.Time
}

// ExecuteUploadCertificate stores a new medical certificate for review.
// The document lands in the file store first; if the database write then
// fails the file is removed again so no orphan documents accumulate.
// PRE: Consent given, expiry in the future, File readable
// POST: Certificate persisted with status pending, upload logged
func ExecuteUploadCertificate(ctx context.Context, input UploadCertificateInput, deps UploadCertificateDeps) (caci.Certificate, error) {
	if input.MemberID == "" {
		return caci.Certificate{}, caci.ErrEmptyMemberID
	}
	if !input.Consent {
		return caci.Certificate{}, caci.ErrConsentRequired
	}
	if input.ExpiryDate.IsZero() {
		return caci.Certificate{}, caci.ErrMissingExpiry
	}

	now := deps.Now()
	if input.ExpiryDate.Before(now) {
		return caci.Certificate{}, ErrExpiredCertificate
	}

	id := deps.GenerateID()
	fileKey := fmt.Sprintf("caci-%s.pdf", id)
	if err := deps.FileStore.Save(ctx, fileKey, input.File); err != nil {
		return caci.Certificate{}, fmt.Errorf("failed to store certificate file: %w", err)
	}

	cert := caci.Certificate{
		ID:         id,
		MemberID:   input.MemberID,
		FileKey:    fileKey,
		ExpiryDate: input.ExpiryDate,
		Status:     caci.StatusPending,
		Consent:    input.Consent,
		UploadedAt: now,
	}
	if err := cert.Validate(); err != nil {
		_ = deps.FileStore.Delete(ctx, fileKey)
		return caci.Certificate{}, err
	}
	if err := deps.CertificateStore.Save(ctx, cert); err != nil {
		_ = deps.FileStore.Delete(ctx, fileKey)
		return caci.Certificate{}, err
	}

	actor := input.ActorID
	if actor == "" {
		actor = input.MemberID
	}
	recordAccessQuietly(ctx, deps.AccessLogStore, caci.AccessLog{
		ID:            deps.GenerateID(),
		CertificateID: cert.ID,
		ActorID:       actor,
		Action:        caci.AccessUpload,
		Context:       "member_upload",
		OccurredAt:    now,
	})

	slog.Info("caci_event", "event", "certificate_uploaded",
		"certificate_id", cert.ID, "member_id", cert.MemberID, "expiry_date", cert.ExpiryDate.Format("2006-01-02"))
	return cert, nil
}
