package caci

import (
	"context"
	"time"

	domain "divehub/internal/domain/caci"
)

// CertificateStore persists medical certificates.
type CertificateStore interface {
	GetByID(ctx context.Context, id string) (domain.Certificate, error)
	GetCurrentByMember(ctx context.Context, memberID string, now time.Time) (domain.Certificate, error)
	Save(ctx context.Context, value domain.Certificate) error
	Delete(ctx context.Context, id string) error
	ListByMember(ctx context.Context, memberID string) ([]domain.Certificate, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Certificate, error)
	ListDueForDeletion(ctx context.Context, asOf time.Time) ([]domain.Certificate, error)
	ListExpiringOn(ctx context.Context, day time.Time) ([]domain.Certificate, error)
}

// AccessLogStore persists the certificate access trail.
type AccessLogStore interface {
	Append(ctx context.Context, value domain.AccessLog) error
	ListByCertificate(ctx context.Context, certificateID string) ([]domain.AccessLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
