package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divehub/internal/domain/caci"
	"divehub/internal/domain/gallery"
)

// CertificateStoreForSweep defines the certificate store interface needed here.
type CertificateStoreForSweep interface {
	ListDueForDeletion(ctx context.Context, asOf time.Time) ([]caci.Certificate, error)
	Delete(ctx context.Context, id string) error
}

// AccessLogStoreForSweep purges aged access log rows.
type AccessLogStoreForSweep interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GalleryStoreForSweep removes expired galleries.
type GalleryStoreForSweep interface {
	ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]gallery.Gallery, error)
	ListPhotos(ctx context.Context, galleryID string) ([]gallery.Photo, error)
	Delete(ctx context.Context, id string) error
}

// FileStoreForSweep removes stored documents and photos.
type FileStoreForSweep interface {
	Delete(ctx context.Context, key string) error
}

// SweepReport summarizes one retention sweep run.
type SweepReport struct {
	CertificatesDeleted int
	AccessLogsPurged    int64
	GalleriesDeleted    int
}

// SweepError aggregates the failures of a partially successful sweep.
// The sweep never stops at the first failure; every due item gets its
// attempt and the stragglers are retried on the next run.
type SweepError struct {
	Errs []error
}

// Error implements the error interface.
func (e *SweepError) Error() string {
	return fmt.Sprintf("retention sweep finished with %d failures", len(e.Errs))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *SweepError) Unwrap() []error {
	return e.Errs
}

// RetentionSweepDeps holds dependencies for the retention sweep.
type RetentionSweepDeps struct {
	CertificateStore  CertificateStoreForSweep
	AccessLogStore    AccessLogStoreForSweep
	GalleryStore      GalleryStoreForSweep
	FileStore         FileStoreForSweep
	LogRetentionYears int // defaults to caci.DefaultLogRetentionYears
	Now               func() time.Time
}

// ExecuteRetentionSweep deletes expired medical certificates, purges aged
// access log rows and removes expired galleries. Each deletion removes the
// stored file before the database row, so a crash between the two leaves a
// row that the next sweep picks up again.
// PRE: Deps are valid
// POST: Returns counts of deleted items; a *SweepError lists partial failures
// INVARIANT: the sweep is idempotent, re-running deletes nothing twice
func ExecuteRetentionSweep(ctx context.Context, deps RetentionSweepDeps) (SweepReport, error) {
	now := deps.Now()
	var report SweepReport
	var failures []error

	due, err := deps.CertificateStore.ListDueForDeletion(ctx, now)
	if err != nil {
		return report, fmt.Errorf("failed to list certificates due for deletion: %w", err)
	}

	for _, cert := range due {
		if err := deps.FileStore.Delete(ctx, cert.FileKey); err != nil {
			failures = append(failures, fmt.Errorf("certificate %s: delete file: %w", cert.ID, err))
			continue
		}
		if err := deps.CertificateStore.Delete(ctx, cert.ID); err != nil {
			failures = append(failures, fmt.Errorf("certificate %s: delete row: %w", cert.ID, err))
			continue
		}
		report.CertificatesDeleted++
		slog.Info("caci_event", "event", "certificate_deleted",
			"certificate_id", cert.ID, "member_id", cert.MemberID,
			"scheduled", cert.ScheduledDeletionDate.Format("2006-01-02"))
	}

	years := deps.LogRetentionYears
	if years <= 0 {
		years = caci.DefaultLogRetentionYears
	}
	cutoff := now.AddDate(-years, 0, 0)
	purged, err := deps.AccessLogStore.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		failures = append(failures, fmt.Errorf("purge access logs: %w", err))
	} else {
		report.AccessLogsPurged = purged
	}

	if deps.GalleryStore != nil {
		expired, err := deps.GalleryStore.ListExpiredBefore(ctx, now)
		if err != nil {
			failures = append(failures, fmt.Errorf("list expired galleries: %w", err))
		}
		for _, g := range expired {
			if err := deleteGallery(ctx, g, deps); err != nil {
				failures = append(failures, err)
				continue
			}
			report.GalleriesDeleted++
		}
	}

	slog.Info("retention_event", "event", "sweep_complete",
		"certificates_deleted", report.CertificatesDeleted,
		"access_logs_purged", report.AccessLogsPurged,
		"galleries_deleted", report.GalleriesDeleted,
		"failures", len(failures))

	if len(failures) > 0 {
		return report, &SweepError{Errs: failures}
	}
	return report, nil
}

// deleteGallery removes a gallery's photo files, then its rows.
func deleteGallery(ctx context.Context, g gallery.Gallery, deps RetentionSweepDeps) error {
	photos, err := deps.GalleryStore.ListPhotos(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("gallery %s: list photos: %w", g.ID, err)
	}
	for _, photo := range photos {
		if err := deps.FileStore.Delete(ctx, photo.FileKey); err != nil {
			return fmt.Errorf("gallery %s: delete photo file %s: %w", g.ID, photo.FileKey, err)
		}
	}
	if err := deps.GalleryStore.Delete(ctx, g.ID); err != nil {
		return fmt.Errorf("gallery %s: delete rows: %w", g.ID, err)
	}
	slog.Info("gallery_event", "event", "gallery_expired_deleted", "gallery_id", g.ID, "photos", len(photos))
	return nil
}
