package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"divehub/internal/adapters/http/middleware"
	eventStore "divehub/internal/adapters/storage/event"
	"divehub/internal/application/orchestrators"
	"divehub/internal/application/projections"
	eligibilityDomain "divehub/internal/domain/eligibility"
	eventDomain "divehub/internal/domain/event"
)

// eventRequest is the JSON body for creating or updating an event.
type eventRequest struct {
	ID                     string
	Title                  string
	Type                   string
	Description            string
	Location               string
	StartDate              string
	EndDate                string
	MaxParticipants        int
	MinDivingLevel         string
	MinAge                 int
	MaxAge                 int
	RequiresCACI           bool
	RequiresDivingDirector bool
	RequiresPilot          bool
	RequiresBoat           bool
	AllowWaitingList       bool
}

// handleEvents handles GET (list) and POST (create/update) for /api/events.
func handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		if _, ok := requireSession(w, r); !ok {
			return
		}
		q := r.URL.Query()
		filter := eventStore.ListFilter{Type: q.Get("type")}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				filter.Limit = n
			}
		}
		if v := q.Get("from"); v != "" {
			if t, err := parseTimeParam(v); err == nil {
				filter.From = t
			}
		}
		if v := q.Get("to"); v != "" {
			if t, err := parseTimeParam(v); err == nil {
				filter.To = t
			}
		}
		events, err := stores.EventStore.List(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, events)

	case "POST":
		sess, ok := requireOrganizer(w, r)
		if !ok {
			return
		}
		var body eventRequest
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		startDate, err := parseTimeParam(body.StartDate)
		if err != nil {
			http.Error(w, "Invalid start date", http.StatusBadRequest)
			return
		}
		var endDate time.Time
		if body.EndDate != "" {
			endDate, err = parseTimeParam(body.EndDate)
			if err != nil {
				http.Error(w, "Invalid end date", http.StatusBadRequest)
				return
			}
		}

		input := orchestrators.SaveEventInput{
			ID:                     body.ID,
			ActorID:                sess.AccountID,
			Title:                  body.Title,
			Type:                   body.Type,
			Description:            body.Description,
			Location:               body.Location,
			StartDate:              startDate,
			EndDate:                endDate,
			MaxParticipants:        body.MaxParticipants,
			MinDivingLevel:         body.MinDivingLevel,
			MinAge:                 body.MinAge,
			MaxAge:                 body.MaxAge,
			RequiresCACI:           body.RequiresCACI,
			RequiresDivingDirector: body.RequiresDivingDirector,
			RequiresPilot:          body.RequiresPilot,
			RequiresBoat:           body.RequiresBoat,
			AllowWaitingList:       body.AllowWaitingList,
		}
		deps := orchestrators.SaveEventDeps{
			EventStore:   stores.EventStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		}
		ev, err := orchestrators.ExecuteSaveEvent(ctx, input, deps)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, orchestrators.ErrNotAuthorizedToManageEvents) {
				status = http.StatusForbidden
			} else if errors.Is(err, orchestrators.ErrEventLocked) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, ev)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleEventByID handles /api/events/{id} and its sub-resources.
// Routes: GET /api/events/{id} (roster), DELETE /api/events/{id},
// GET/PUT /api/events/{id}/rules, POST /api/events/{id}/register
func handleEventByID(w http.ResponseWriter, r *http.Request) {
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
	eventID := parts[2]

	if len(parts) == 4 {
		switch parts[3] {
		case "rules":
			handleEventRules(w, r, sess, eventID)
		case "register":
			handleEventRegister(w, r, sess, eventID)
		default:
			http.Error(w, "invalid path", http.StatusBadRequest)
		}
		return
	}

	switch r.Method {
	case "GET":
		deps := projections.GetEventRosterDeps{
			EventStore:         stores.EventStore,
			MemberStore:        stores.MemberStore,
			ParticipationStore: stores.ParticipationStore,
			Now:                timeNow,
		}
		// Medical status columns are staff-only
		if middleware.IsOrganizerOrAdmin(ctx) || middleware.IsReviewerOrAdmin(ctx) {
			deps.CertificateStore = stores.CertificateStore
		}
		result, err := projections.QueryGetEventRoster(ctx, projections.GetEventRosterQuery{
			EventID: eventID,
		}, deps)
		if err != nil {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		writeJSON(w, result)

	case "DELETE":
		if _, ok := requireOrganizer(w, r); !ok {
			return
		}
		err := orchestrators.ExecuteDeleteEvent(ctx, orchestrators.DeleteEventInput{
			EventID: eventID,
			ActorID: sess.AccountID,
		}, orchestrators.SetEventRulesDeps{
			EventStore:   stores.EventStore,
			RuleStore:    stores.RuleStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ruleRequest is one eligibility rule in a set-rules request.
type ruleRequest struct {
	Attribute    string
	Operator     string
	RawValue     string
	Active       bool
	ErrorMessage string
}

func handleEventRules(w http.ResponseWriter, r *http.Request, sess middleware.Session, eventID string) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		if _, ok := requireOrganizer(w, r); !ok {
			return
		}
		rules, err := stores.RuleStore.ListByEvent(ctx, eventID)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, rules)

	case "PUT", "POST":
		if _, ok := requireOrganizer(w, r); !ok {
			return
		}
		var body []ruleRequest
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		rules := make([]eligibilityDomain.Rule, 0, len(body))
		for _, rr := range body {
			rules = append(rules, eligibilityDomain.Rule{
				Attribute:    rr.Attribute,
				Operator:     rr.Operator,
				RawValue:     rr.RawValue,
				Active:       rr.Active,
				ErrorMessage: rr.ErrorMessage,
			})
		}
		err := orchestrators.ExecuteSetEventRules(ctx, orchestrators.SetEventRulesInput{
			EventID: eventID,
			ActorID: sess.AccountID,
			Rules:   rules,
		}, orchestrators.SetEventRulesDeps{
			EventStore:   stores.EventStore,
			RuleStore:    stores.RuleStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func handleEventRegister(w http.ResponseWriter, r *http.Request, sess middleware.Session, eventID string) {
	ctx := r.Context()

	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		MemberID          string // staff may register on behalf of a member
		Quantity          int
		ParticipationType string
		MeetingPoint      string
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	memberID := body.MemberID
	if memberID == "" || !middleware.IsOrganizerOrAdmin(ctx) {
		ownID, err := memberForSession(r, sess)
		if err != nil {
			http.Error(w, "no member record linked to this account", http.StatusForbidden)
			return
		}
		memberID = ownID
	}

	input := orchestrators.RegisterParticipationInput{
		EventID:           eventID,
		MemberID:          memberID,
		Quantity:          body.Quantity,
		ParticipationType: body.ParticipationType,
		MeetingPoint:      body.MeetingPoint,
		ActorID:           sess.AccountID,
	}
	deps := orchestrators.RegisterParticipationDeps{
		EventStore:         stores.EventStore,
		MemberStore:        stores.MemberStore,
		RuleStore:          stores.RuleStore,
		ParticipationStore: stores.ParticipationStore,
		CertificateStore:   stores.CertificateStore,
		AccessLogStore:     stores.AccessLogStore,
		OutboxStore:        stores.OutboxStore,
		Evaluator:          eligibilityDomain.NewEvaluator(),
		GenerateID:         generateID,
		Now:                timeNow,
	}
	p, err := orchestrators.ExecuteRegisterParticipation(ctx, input, deps)
	if err != nil {
		var eligErr *eligibilityDomain.Error
		status := http.StatusBadRequest
		switch {
		case errors.As(err, &eligErr):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, orchestrators.ErrCapacityExceeded):
			status = http.StatusConflict
		case errors.Is(err, orchestrators.ErrAlreadyRegistered):
			status = http.StatusConflict
		case errors.Is(err, eventDomain.ErrEventStarted):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, p)
}

// handleParticipationAction handles POST /api/participations/{id}/cancel
// and POST /api/participations/{id}/confirm.
func handleParticipationAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	participationID := parts[2]

	switch parts[3] {
	case "confirm":
		if _, ok := requireOrganizer(w, r); !ok {
			return
		}
		p, err := orchestrators.ExecuteConfirmParticipation(ctx, orchestrators.ConfirmParticipationInput{
			ParticipationID: participationID,
			ActorID:         sess.AccountID,
		}, orchestrators.ConfirmParticipationDeps{
			ParticipationStore: stores.ParticipationStore,
			AccountStore:       stores.AccountStore,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, p)
		return
	case "cancel":
	default:
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	// Staff may cancel anyone; members only themselves. The orchestrator
	// enforces ownership when MemberID is set.
	input := orchestrators.CancelParticipationInput{ParticipationID: participationID}
	if !middleware.IsOrganizerOrAdmin(ctx) {
		ownID, err := memberForSession(r, sess)
		if err != nil {
			http.Error(w, "no member record linked to this account", http.StatusForbidden)
			return
		}
		input.MemberID = ownID
	}

	promoted, err := orchestrators.ExecuteCancelParticipation(ctx, input, orchestrators.CancelParticipationDeps{
		EventStore:         stores.EventStore,
		MemberStore:        stores.MemberStore,
		ParticipationStore: stores.ParticipationStore,
		OutboxStore:        stores.OutboxStore,
		GenerateID:         generateID,
		Now:                timeNow,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, orchestrators.ErrNotOwnParticipation) {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{"promoted": len(promoted)})
}
