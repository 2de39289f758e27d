package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"divehub/internal/domain/caci"
)

type mockUploadCertStore struct {
	certs    map[string]caci.Certificate
	failSave bool
}

func (m *mockUploadCertStore) Save(_ context.Context, c caci.Certificate) error {
	if m.failSave {
		return errors.New("database locked")
	}
	m.certs[c.ID] = c
	return nil
}

func TestExecuteUploadCertificate_Valid(t *testing.T) {
	certs := &mockUploadCertStore{certs: map[string]caci.Certificate{}}
	files := newMockFileStore()
	log := &mockAccessLogStore{}

	cert, err := ExecuteUploadCertificate(context.Background(), UploadCertificateInput{
		MemberID:   "member-1",
		ExpiryDate: fixedTime.AddDate(1, 0, 0),
		Consent:    true,
		File:       strings.NewReader("%PDF-1.4 fake"),
	}, UploadCertificateDeps{
		CertificateStore: certs,
		FileStore:        files,
		AccessLogStore:   log,
		GenerateID:       seqID(),
		Now:              fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cert.Status != caci.StatusPending {
		t.Errorf("expected status=pending, got %s", cert.Status)
	}
	if !files.files[cert.FileKey] {
		t.Errorf("expected file stored under %s", cert.FileKey)
	}
	if len(log.entries) != 1 || log.entries[0].Action != caci.AccessUpload {
		t.Errorf("expected upload access log entry, got %v", log.entries)
	}
	// The member is the actor when no account is given.
	if log.entries[0].ActorID != "member-1" {
		t.Errorf("expected actor=member-1, got %s", log.entries[0].ActorID)
	}
}

func TestExecuteUploadCertificate_RequiresConsent(t *testing.T) {
	files := newMockFileStore()

	_, err := ExecuteUploadCertificate(context.Background(), UploadCertificateInput{
		MemberID:   "member-1",
		ExpiryDate: fixedTime.AddDate(1, 0, 0),
		Consent:    false,
		File:       strings.NewReader("doc"),
	}, UploadCertificateDeps{
		CertificateStore: &mockUploadCertStore{certs: map[string]caci.Certificate{}},
		FileStore:        files,
		AccessLogStore:   &mockAccessLogStore{},
		GenerateID:       seqID(),
		Now:              fixedNow,
	})
	if !errors.Is(err, caci.ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}
	if len(files.files) != 0 {
		t.Error("expected no file stored without consent")
	}
}

func TestExecuteUploadCertificate_RejectsPastExpiry(t *testing.T) {
	_, err := ExecuteUploadCertificate(context.Background(), UploadCertificateInput{
		MemberID:   "member-1",
		ExpiryDate: fixedTime.AddDate(0, 0, -1),
		Consent:    true,
		File:       strings.NewReader("doc"),
	}, UploadCertificateDeps{
		CertificateStore: &mockUploadCertStore{certs: map[string]caci.Certificate{}},
		FileStore:        newMockFileStore(),
		AccessLogStore:   &mockAccessLogStore{},
		GenerateID:       seqID(),
		Now:              fixedNow,
	})
	if !errors.Is(err, ErrExpiredCertificate) {
		t.Fatalf("expected ErrExpiredCertificate, got %v", err)
	}
}

// A failed database write must not leave an orphan document behind.
func TestExecuteUploadCertificate_CleansUpFileOnSaveFailure(t *testing.T) {
	files := newMockFileStore()

	_, err := ExecuteUploadCertificate(context.Background(), UploadCertificateInput{
		MemberID:   "member-1",
		ExpiryDate: fixedTime.AddDate(1, 0, 0),
		Consent:    true,
		File:       strings.NewReader("doc"),
	}, UploadCertificateDeps{
		CertificateStore: &mockUploadCertStore{certs: map[string]caci.Certificate{}, failSave: true},
		FileStore:        files,
		AccessLogStore:   &mockAccessLogStore{},
		GenerateID:       seqID(),
		Now:              fixedNow,
	})
	if err == nil {
		t.Fatal("expected error from failing save")
	}
	if len(files.files) != 0 {
		t.Error("expected stored file removed after save failure")
	}
}
