package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"divehub/internal/adapters/http/middleware"
	"divehub/internal/application/orchestrators"
	caciDomain "divehub/internal/domain/caci"
)

// maxCertificateUploadBytes caps certificate uploads at 10 MB.
const maxCertificateUploadBytes = 10 << 20

// handleCertificates handles GET (own list) and POST (upload) for /api/caci.
func handleCertificates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		memberID := r.URL.Query().Get("member_id")
		if memberID == "" || !middleware.IsReviewerOrAdmin(ctx) {
			ownID, err := memberForSession(r, sess)
			if err != nil {
				http.Error(w, "no member record linked to this account", http.StatusForbidden)
				return
			}
			memberID = ownID
		}
		certs, err := stores.CertificateStore.ListByMember(ctx, memberID)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, certs)

	case "POST":
		r.Body = http.MaxBytesReader(w, r.Body, maxCertificateUploadBytes)
		if err := r.ParseMultipartForm(maxCertificateUploadBytes); err != nil {
			http.Error(w, "invalid multipart upload", http.StatusBadRequest)
			return
		}

		memberID := r.FormValue("member_id")
		if memberID == "" || !middleware.IsOrganizerOrAdmin(ctx) {
			ownID, err := memberForSession(r, sess)
			if err != nil {
				http.Error(w, "no member record linked to this account", http.StatusForbidden)
				return
			}
			memberID = ownID
		}

		expiry, err := parseTimeParam(r.FormValue("expiry_date"))
		if err != nil {
			http.Error(w, "invalid expiry date", http.StatusBadRequest)
			return
		}
		consent := r.FormValue("consent") == "true" || r.FormValue("consent") == "on"

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "certificate file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		input := orchestrators.UploadCertificateInput{
			MemberID:   memberID,
			ExpiryDate: expiry,
			Consent:    consent,
			File:       file,
			ActorID:    sess.AccountID,
		}
		deps := orchestrators.UploadCertificateDeps{
			CertificateStore: stores.CertificateStore,
			FileStore:        stores.FileStore,
			AccessLogStore:   stores.AccessLogStore,
			GenerateID:       generateID,
			Now:              timeNow,
		}
		cert, err := orchestrators.ExecuteUploadCertificate(ctx, input, deps)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, cert)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCertificatesPending handles GET /api/caci/pending (review queue).
func handleCertificatesPending(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireReviewer(w, r); !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	certs, err := stores.CertificateStore.ListByStatus(r.Context(), caciDomain.StatusPending)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, certs)
}

// handleCertificateByID handles /api/caci/{id} sub-resources.
// Routes: POST /api/caci/{id}/review, GET /api/caci/{id}/file,
// GET /api/caci/{id}/log
func handleCertificateByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	certID := parts[2]

	switch parts[3] {
	case "review":
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := requireReviewer(w, r); !ok {
			return
		}
		var body struct {
			Decision        string
			RejectionReason string
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input := orchestrators.ReviewCertificateInput{
			CertificateID:   certID,
			ReviewerID:      sess.AccountID,
			Decision:        body.Decision,
			RejectionReason: body.RejectionReason,
		}
		deps := orchestrators.ReviewCertificateDeps{
			CertificateStore: stores.CertificateStore,
			AccountStore:     stores.AccountStore,
			MemberStore:      stores.MemberStore,
			AccessLogStore:   stores.AccessLogStore,
			OutboxStore:      stores.OutboxStore,
			GenerateID:       generateID,
			Now:              timeNow,
		}
		cert, err := orchestrators.ExecuteReviewCertificate(ctx, input, deps)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, orchestrators.ErrNotAuthorizedToReview) {
				status = http.StatusForbidden
			} else if errors.Is(err, caciDomain.ErrNotPending) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, cert)

	case "file":
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		serveCertificateFile(w, r, sess, certID)

	case "log":
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := requireReviewer(w, r); !ok {
			return
		}
		entries, err := stores.AccessLogStore.ListByCertificate(ctx, certID)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, entries)

	default:
		http.Error(w, "invalid path", http.StatusBadRequest)
	}
}

// serveCertificateFile streams a certificate document. Only the owning
// member and reviewers may fetch it, and every download lands in the
// access log.
func serveCertificateFile(w http.ResponseWriter, r *http.Request, sess middleware.Session, certID string) {
	ctx := r.Context()

	cert, err := stores.CertificateStore.GetByID(ctx, certID)
	if err != nil {
		http.Error(w, "certificate not found", http.StatusNotFound)
		return
	}

	if !middleware.IsReviewerOrAdmin(ctx) {
		ownID, err := memberForSession(r, sess)
		if err != nil || ownID != cert.MemberID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	f, err := stores.FileStore.Open(ctx, cert.FileKey)
	if err != nil {
		http.Error(w, "document not available", http.StatusNotFound)
		return
	}
	defer f.Close()

	orchestrators.ExecuteRecordAccess(ctx, orchestrators.RecordAccessInput{
		CertificateID: certID,
		ActorID:       sess.AccountID,
		Action:        caciDomain.AccessDownload,
		Context:       "document_download",
	}, orchestrators.RecordAccessDeps{
		AccessLogStore: stores.AccessLogStore,
		GenerateID:     generateID,
		Now:            timeNow,
	})

	switch filepath.Ext(cert.FileKey) {
	case ".pdf":
		w.Header().Set("Content-Type", "application/pdf")
	case ".png":
		w.Header().Set("Content-Type", "image/png")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", "attachment")
	io.Copy(w, f)
}
