package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"divehub/internal/application/orchestrators"
	"divehub/internal/domain/outbox"
)

// newOutboxProcessor builds a processor wired to the configured email sender.
func newOutboxProcessor() *orchestrators.OutboxProcessor {
	executors := map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{
			Sender:  emailSender,
			From:    emailFromAddress,
			ReplyTo: emailReplyTo,
		},
	}
	return orchestrators.NewOutboxProcessor(stores.OutboxStore, executors)
}

// handleAdminOutbox handles admin endpoints for managing outbox entries.
// Routes: GET /admin/outbox (list failed entries), POST /admin/outbox/{id}/retry,
// POST /admin/outbox/{id}/abandon
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case "GET":
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		status := r.URL.Query().Get("status")
		if status == "" {
			status = outbox.StatusFailed
		}

		var entries []outbox.Entry
		var err error
		if status == "all" {
			entries, err = stores.OutboxStore.ListPending(ctx, limit)
		} else {
			entries, err = stores.OutboxStore.ListFailed(ctx, limit)
		}
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, entries)

	case "POST":
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "outbox" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		entryID := parts[2]
		action := parts[3]

		processor := newOutboxProcessor()

		switch action {
		case "retry":
			if err := processor.ProcessSingle(ctx, entryID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, map[string]string{"status": "retry triggered"})

		case "abandon":
			if err := processor.AbandonEntry(ctx, entryID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, map[string]string{"status": "abandoned"})

		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAdminPerf handles GET /admin/perf: a snapshot of request and query
// timings from the in-memory collector.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if perfCollector == nil {
		http.Error(w, "perf collection disabled", http.StatusServiceUnavailable)
		return
	}

	window := 15 * time.Minute
	if v := r.URL.Query().Get("window_minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24*60 {
			window = time.Duration(n) * time.Minute
		}
	}
	topN := 20
	if v := r.URL.Query().Get("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			topN = n
		}
	}

	writeJSON(w, perfCollector.Snapshot(timeNow().Add(-window), topN))
}
