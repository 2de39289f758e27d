package web

import "net/http"

// registerRoutes maps every URL to its handler. Sub-resource dispatch
// (IDs, actions) happens inside the handlers.
func registerRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/logout", handleLogout)
	mux.HandleFunc("/api/activate", handleActivate)
	mux.HandleFunc("/api/change-password", handleChangePassword)

	// Accounts (admin)
	mux.HandleFunc("/api/accounts", handleAccounts)

	// Members
	mux.HandleFunc("/api/members", handleMembers)
	mux.HandleFunc("/api/members/", handleMemberByID)

	// Events, rules, registrations
	mux.HandleFunc("/api/events", handleEvents)
	mux.HandleFunc("/api/events/", handleEventByID)
	mux.HandleFunc("/api/participations/", handleParticipationAction)

	// Medical certificates
	mux.HandleFunc("/api/caci", handleCertificates)
	mux.HandleFunc("/api/caci/pending", handleCertificatesPending)
	mux.HandleFunc("/api/caci/", handleCertificateByID)

	// Content
	mux.HandleFunc("/api/articles", handleArticles)
	mux.HandleFunc("/api/articles/", handleArticleByID)
	mux.HandleFunc("/articles/", handleArticleBySlug)
	mux.HandleFunc("/api/galleries", handleGalleries)
	mux.HandleFunc("/api/galleries/", handleGalleryByID)
	mux.HandleFunc("/media/", handleMedia)

	// Dashboard and admin
	mux.HandleFunc("/api/dashboard", handleDashboard)
	mux.HandleFunc("/admin/outbox", handleAdminOutbox)
	mux.HandleFunc("/admin/outbox/", handleAdminOutbox)
	mux.HandleFunc("/admin/perf", handleAdminPerf)
}
