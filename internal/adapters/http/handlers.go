package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"divehub/internal/adapters/http/middleware"
	accountStore "divehub/internal/adapters/storage/account"
	memberStore "divehub/internal/adapters/storage/member"
	"divehub/internal/application/orchestrators"
	"divehub/internal/application/projections"
	accountDomain "divehub/internal/domain/account"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// parseTimeParam accepts RFC3339 or a bare calendar date.
func parseTimeParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// requireSession extracts the session or responds 401.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireRoles extracts the session and enforces one of the given roles.
func requireRoles(w http.ResponseWriter, r *http.Request, roles ...string) (middleware.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return middleware.Session{}, false
	}
	for _, role := range roles {
		if sess.Role == role {
			return sess, true
		}
	}
	slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", strings.Join(roles, ","))
	http.Error(w, "Forbidden", http.StatusForbidden)
	return middleware.Session{}, false
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	return requireRoles(w, r, accountDomain.RoleAdmin)
}

func requireOrganizer(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	return requireRoles(w, r, accountDomain.RoleAdmin, accountDomain.RoleOrganizer)
}

func requireReviewer(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	return requireRoles(w, r, accountDomain.RoleAdmin, accountDomain.RoleReviewer)
}

// memberForSession resolves the member record linked to the session's account.
func memberForSession(r *http.Request, sess middleware.Session) (string, error) {
	m, err := stores.MemberStore.GetByAccountID(r.Context(), sess.AccountID)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	input := orchestrators.LoginInput{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input.Email = r.FormValue("Email")
		input.Password = r.FormValue("Password")
	} else {
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}

	deps := orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role, result.PasswordChangeRequired)
	if err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	middleware.SetSessionCookie(w, token)
	writeJSON(w, map[string]any{
		"account_id":               result.AccountID,
		"role":                     result.Role,
		"password_change_required": result.PasswordChangeRequired,
	})
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie("divehub_session")
	if err == nil {
		sessions.Delete(cookie.Value)
	}

	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleActivate handles POST /api/activate: redeem an activation token and
// set the first password.
func handleActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	input := orchestrators.ActivateAccountInput{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input.Token = r.FormValue("Token")
		input.Password = r.FormValue("Password")
	} else {
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}

	deps := orchestrators.ActivateAccountDeps{
		AccountStore: stores.AccountStore,
		GetByID:      stores.AccountStore.GetByID,
		Now:          timeNow,
	}
	if err := orchestrators.ExecuteActivateAccount(r.Context(), input, deps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword handles POST /api/change-password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		CurrentPassword string
		NewPassword     string
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	deps := orchestrators.ChangePasswordDeps{
		AccountStore: stores.AccountStore,
	}
	input := orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	}
	if err := orchestrators.ExecuteChangePassword(r.Context(), input, deps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Session keeps the stale flag otherwise, forcing the change page again.
	if cookie, err := r.Cookie("divehub_session"); err == nil {
		sess.PasswordChangeRequired = false
		sessions.Update(cookie.Value, sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAccounts handles GET (list) and POST (create/invite) for /api/accounts.
// Admin only.
func handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		accounts, err := stores.AccountStore.List(ctx, accountStore.ListFilter{
			Role: r.URL.Query().Get("role"),
		})
		if err != nil {
			internalError(w, err)
			return
		}
		// Never serialize password hashes
		type accountView struct {
			ID        string    `json:"id"`
			Email     string    `json:"email"`
			Role      string    `json:"role"`
			Status    string    `json:"status"`
			CreatedAt time.Time `json:"created_at"`
		}
		views := make([]accountView, 0, len(accounts))
		for _, a := range accounts {
			views = append(views, accountView{
				ID:        a.ID,
				Email:     a.Email,
				Role:      a.Role,
				Status:    a.Status,
				CreatedAt: a.CreatedAt,
			})
		}
		writeJSON(w, views)

	case "POST":
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Email    string
			Password string
			Role     string
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		deps := orchestrators.CreateAccountDeps{
			AccountStore: stores.AccountStore,
			OutboxStore:  stores.OutboxStore,
			GenerateID:   generateID,
			Now:          timeNow,
		}

		// No password means an invitation: the account goes out pending
		// activation and the owner picks their own password.
		if body.Password == "" {
			id, err := orchestrators.ExecuteInviteAccount(ctx, orchestrators.InviteAccountInput{
				Email:   body.Email,
				Role:    body.Role,
				BaseURL: BaseURL,
			}, deps)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, map[string]string{"id": id, "status": accountDomain.StatusPendingActivation})
			return
		}

		id, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
			Email:    body.Email,
			Password: body.Password,
			Role:     body.Role,
		}, deps)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]string{"id": id, "status": accountDomain.StatusActive})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleMembers handles GET (list) and POST (create/update) for /api/members.
func handleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		if _, ok := requireOrganizer(w, r); !ok {
			return
		}
		q := r.URL.Query()
		limit := 50
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		members, err := stores.MemberStore.List(ctx, memberStore.ListFilter{
			Limit:       limit,
			Status:      q.Get("status"),
			DivingLevel: q.Get("diving_level"),
			Search:      q.Get("search"),
			Sort:        q.Get("sort"),
			Dir:         q.Get("dir"),
		})
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, members)

	case "POST":
		sess, ok := requireOrganizer(w, r)
		if !ok {
			return
		}
		var body struct {
			ID               string
			AccountID        string
			Name             string
			Email            string
			BirthDate        string
			DivingLevel      string
			FreedivingLevel  string
			Insured          bool
			IsDiver          bool
			IsFreediver      bool
			IsPilot          bool
			IsInstructor     bool
			IsDivingDirector bool
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		var birthDate time.Time
		if body.BirthDate != "" {
			var err error
			birthDate, err = parseTimeParam(body.BirthDate)
			if err != nil {
				http.Error(w, "Invalid birth date", http.StatusBadRequest)
				return
			}
		}

		input := orchestrators.SaveMemberInput{
			ID:               body.ID,
			ActorID:          sess.AccountID,
			AccountID:        body.AccountID,
			Name:             body.Name,
			Email:            body.Email,
			BirthDate:        birthDate,
			DivingLevel:      body.DivingLevel,
			FreedivingLevel:  body.FreedivingLevel,
			Insured:          body.Insured,
			IsDiver:          body.IsDiver,
			IsFreediver:      body.IsFreediver,
			IsPilot:          body.IsPilot,
			IsInstructor:     body.IsInstructor,
			IsDivingDirector: body.IsDivingDirector,
		}
		deps := orchestrators.SaveMemberDeps{
			MemberStore:  stores.MemberStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		}
		m, err := orchestrators.ExecuteSaveMember(ctx, input, deps)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, m)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleMemberByID handles /api/members/{id} and the archive/restore actions.
// Routes: GET /api/members/{id} (profile), POST /api/members/{id}/archive,
// POST /api/members/{id}/restore
func handleMemberByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	memberID := parts[2]

	if len(parts) == 4 && r.Method == "POST" {
		if _, ok := requireOrganizer(w, r); !ok {
			return
		}
		input := orchestrators.ArchiveMemberInput{MemberID: memberID, ActorID: sess.AccountID}
		deps := orchestrators.SaveMemberDeps{
			MemberStore:  stores.MemberStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		}
		var err error
		switch parts[3] {
		case "archive":
			err = orchestrators.ExecuteArchiveMember(ctx, input, deps)
		case "restore":
			err = orchestrators.ExecuteRestoreMember(ctx, input, deps)
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Members may view their own profile; staff may view anyone's.
	if !middleware.IsOrganizerOrAdmin(ctx) {
		ownID, err := memberForSession(r, sess)
		if err != nil || ownID != memberID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	result, err := projections.QueryGetMemberProfile(ctx, projections.GetMemberProfileQuery{
		MemberID: memberID,
	}, projections.GetMemberProfileDeps{
		MemberStore:        stores.MemberStore,
		EventStore:         stores.EventStore,
		ParticipationStore: stores.ParticipationStore,
		CertificateStore:   stores.CertificateStore,
		Now:                timeNow,
	})
	if err != nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// handleDashboard handles GET /api/dashboard
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOrganizer(w, r); !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := projections.QueryGetDashboard(r.Context(), projections.GetDashboardDeps{
		MemberStore:        stores.MemberStore,
		EventStore:         stores.EventStore,
		ParticipationStore: stores.ParticipationStore,
		CertificateStore:   stores.CertificateStore,
		Now:                timeNow,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, result)
}
