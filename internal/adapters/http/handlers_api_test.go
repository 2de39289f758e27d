package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"divehub/internal/adapters/http/middleware"
	accountStore "divehub/internal/adapters/storage/account"
	articleStore "divehub/internal/adapters/storage/article"
	eventStore "divehub/internal/adapters/storage/event"
	"divehub/internal/adapters/storage/files"
	galleryStore "divehub/internal/adapters/storage/gallery"
	memberStore "divehub/internal/adapters/storage/member"
	participationStore "divehub/internal/adapters/storage/participation"
	accountDomain "divehub/internal/domain/account"
	articleDomain "divehub/internal/domain/article"
	caciDomain "divehub/internal/domain/caci"
	eligibilityDomain "divehub/internal/domain/eligibility"
	eventDomain "divehub/internal/domain/event"
	galleryDomain "divehub/internal/domain/gallery"
	memberDomain "divehub/internal/domain/member"
	outboxDomain "divehub/internal/domain/outbox"
	participationDomain "divehub/internal/domain/participation"
)

// --- Mock stores ---

type mockAccountStore struct {
	accounts map[string]accountDomain.Account
	tokens   map[string]accountDomain.ActivationToken
}

func (m *mockAccountStore) GetByID(ctx context.Context, id string) (accountDomain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return accountDomain.Account{}, sql.ErrNoRows
}

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (accountDomain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return accountDomain.Account{}, sql.ErrNoRows
}

func (m *mockAccountStore) Save(ctx context.Context, a accountDomain.Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Delete(ctx context.Context, id string) error {
	delete(m.accounts, id)
	return nil
}

func (m *mockAccountStore) List(ctx context.Context, filter accountStore.ListFilter) ([]accountDomain.Account, error) {
	var list []accountDomain.Account
	for _, a := range m.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		list = append(list, a)
	}
	return list, nil
}

func (m *mockAccountStore) Count(ctx context.Context) (int, error) {
	return len(m.accounts), nil
}

func (m *mockAccountStore) SaveActivationToken(ctx context.Context, token accountDomain.ActivationToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAccountStore) GetActivationTokenByToken(ctx context.Context, token string) (accountDomain.ActivationToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return accountDomain.ActivationToken{}, sql.ErrNoRows
}

func (m *mockAccountStore) InvalidateTokensForAccount(ctx context.Context, accountID string) error {
	for k, t := range m.tokens {
		if t.AccountID == accountID {
			t.Used = true
			m.tokens[k] = t
		}
	}
	return nil
}

type mockMemberStore struct {
	members map[string]memberDomain.Member
}

func (m *mockMemberStore) GetByID(ctx context.Context, id string) (memberDomain.Member, error) {
	if mem, ok := m.members[id]; ok {
		return mem, nil
	}
	return memberDomain.Member{}, sql.ErrNoRows
}

func (m *mockMemberStore) GetByEmail(ctx context.Context, email string) (memberDomain.Member, error) {
	for _, mem := range m.members {
		if mem.Email == email {
			return mem, nil
		}
	}
	return memberDomain.Member{}, sql.ErrNoRows
}

func (m *mockMemberStore) GetByAccountID(ctx context.Context, accountID string) (memberDomain.Member, error) {
	for _, mem := range m.members {
		if mem.AccountID == accountID {
			return mem, nil
		}
	}
	return memberDomain.Member{}, sql.ErrNoRows
}

func (m *mockMemberStore) Save(ctx context.Context, mem memberDomain.Member) error {
	m.members[mem.ID] = mem
	return nil
}

func (m *mockMemberStore) Delete(ctx context.Context, id string) error {
	delete(m.members, id)
	return nil
}

func (m *mockMemberStore) List(ctx context.Context, filter memberStore.ListFilter) ([]memberDomain.Member, error) {
	var list []memberDomain.Member
	for _, mem := range m.members {
		if filter.Status != "" && mem.Status != filter.Status {
			continue
		}
		list = append(list, mem)
	}
	return list, nil
}

func (m *mockMemberStore) Count(ctx context.Context, filter memberStore.ListFilter) (int, error) {
	list, _ := m.List(ctx, filter)
	return len(list), nil
}

func (m *mockMemberStore) SearchByName(ctx context.Context, query string, limit int) ([]memberDomain.Member, error) {
	var list []memberDomain.Member
	for _, mem := range m.members {
		if strings.Contains(strings.ToLower(mem.Name), strings.ToLower(query)) {
			list = append(list, mem)
		}
	}
	return list, nil
}

type mockEventStore struct {
	events map[string]eventDomain.Event
}

func (m *mockEventStore) GetByID(ctx context.Context, id string) (eventDomain.Event, error) {
	if ev, ok := m.events[id]; ok {
		return ev, nil
	}
	return eventDomain.Event{}, sql.ErrNoRows
}

func (m *mockEventStore) Save(ctx context.Context, ev eventDomain.Event) error {
	m.events[ev.ID] = ev
	return nil
}

func (m *mockEventStore) Delete(ctx context.Context, id string) error {
	delete(m.events, id)
	return nil
}

func (m *mockEventStore) List(ctx context.Context, filter eventStore.ListFilter) ([]eventDomain.Event, error) {
	var list []eventDomain.Event
	for _, ev := range m.events {
		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		list = append(list, ev)
	}
	return list, nil
}

func (m *mockEventStore) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]eventDomain.Event, error) {
	var list []eventDomain.Event
	for _, ev := range m.events {
		if ev.StartDate.After(from) {
			list = append(list, ev)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type mockRuleStore struct {
	rules map[string]eligibilityDomain.Rule
}

func (m *mockRuleStore) GetByID(ctx context.Context, id string) (eligibilityDomain.Rule, error) {
	if r, ok := m.rules[id]; ok {
		return r, nil
	}
	return eligibilityDomain.Rule{}, sql.ErrNoRows
}

func (m *mockRuleStore) ListByEvent(ctx context.Context, eventID string) ([]eligibilityDomain.Rule, error) {
	var list []eligibilityDomain.Rule
	for _, r := range m.rules {
		if r.EventID == eventID {
			list = append(list, r)
		}
	}
	return list, nil
}

func (m *mockRuleStore) Save(ctx context.Context, r eligibilityDomain.Rule) error {
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleStore) Delete(ctx context.Context, id string) error {
	delete(m.rules, id)
	return nil
}

func (m *mockRuleStore) DeleteByEvent(ctx context.Context, eventID string) error {
	for id, r := range m.rules {
		if r.EventID == eventID {
			delete(m.rules, id)
		}
	}
	return nil
}

type mockParticipationStore struct {
	participations map[string]participationDomain.Participation
}

func (m *mockParticipationStore) GetByID(ctx context.Context, id string) (participationDomain.Participation, error) {
	if p, ok := m.participations[id]; ok {
		return p, nil
	}
	return participationDomain.Participation{}, sql.ErrNoRows
}

func (m *mockParticipationStore) GetActiveByEventAndMember(ctx context.Context, eventID, memberID string) (participationDomain.Participation, error) {
	for _, p := range m.participations {
		if p.EventID == eventID && p.MemberID == memberID && p.Status != participationDomain.StatusCancelled {
			return p, nil
		}
	}
	return participationDomain.Participation{}, sql.ErrNoRows
}

func (m *mockParticipationStore) Save(ctx context.Context, p participationDomain.Participation) error {
	m.participations[p.ID] = p
	return nil
}

func (m *mockParticipationStore) Delete(ctx context.Context, id string) error {
	delete(m.participations, id)
	return nil
}

func (m *mockParticipationStore) ListByEvent(ctx context.Context, eventID string) ([]participationDomain.Participation, error) {
	var list []participationDomain.Participation
	for _, p := range m.participations {
		if p.EventID == eventID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockParticipationStore) ListByMember(ctx context.Context, memberID string) ([]participationDomain.Participation, error) {
	var list []participationDomain.Participation
	for _, p := range m.participations {
		if p.MemberID == memberID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockParticipationStore) ListWaiting(ctx context.Context, eventID string) ([]participationDomain.Participation, error) {
	var list []participationDomain.Participation
	for _, p := range m.participations {
		if p.EventID == eventID && p.Status == participationDomain.StatusWaitingList {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *mockParticipationStore) SumConfirmedQuantity(ctx context.Context, eventID string) (int, error) {
	total := 0
	for _, p := range m.participations {
		if p.EventID == eventID && p.CountsAgainstCapacity() {
			total += p.Quantity
		}
	}
	return total, nil
}

func (m *mockParticipationStore) Register(ctx context.Context, p participationDomain.Participation, maxParticipants int) error {
	if _, err := m.GetActiveByEventAndMember(ctx, p.EventID, p.MemberID); err == nil {
		return participationStore.ErrDuplicate
	}
	if maxParticipants > 0 {
		taken, _ := m.SumConfirmedQuantity(ctx, p.EventID)
		if taken+p.Quantity > maxParticipants {
			return participationStore.ErrCapacityFull
		}
	}
	m.participations[p.ID] = p
	return nil
}

type mockCertStore struct {
	certs map[string]caciDomain.Certificate
}

func (m *mockCertStore) GetByID(ctx context.Context, id string) (caciDomain.Certificate, error) {
	if c, ok := m.certs[id]; ok {
		return c, nil
	}
	return caciDomain.Certificate{}, sql.ErrNoRows
}

func (m *mockCertStore) GetCurrentByMember(ctx context.Context, memberID string, now time.Time) (caciDomain.Certificate, error) {
	for _, c := range m.certs {
		if c.MemberID == memberID && c.Status == caciDomain.StatusValidated && c.ExpiryDate.After(now) {
			return c, nil
		}
	}
	return caciDomain.Certificate{}, sql.ErrNoRows
}

func (m *mockCertStore) Save(ctx context.Context, c caciDomain.Certificate) error {
	m.certs[c.ID] = c
	return nil
}

func (m *mockCertStore) Delete(ctx context.Context, id string) error {
	delete(m.certs, id)
	return nil
}

func (m *mockCertStore) ListByMember(ctx context.Context, memberID string) ([]caciDomain.Certificate, error) {
	var list []caciDomain.Certificate
	for _, c := range m.certs {
		if c.MemberID == memberID {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockCertStore) ListByStatus(ctx context.Context, status string) ([]caciDomain.Certificate, error) {
	var list []caciDomain.Certificate
	for _, c := range m.certs {
		if c.Status == status {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockCertStore) ListDueForDeletion(ctx context.Context, asOf time.Time) ([]caciDomain.Certificate, error) {
	return nil, nil
}

func (m *mockCertStore) ListExpiringOn(ctx context.Context, day time.Time) ([]caciDomain.Certificate, error) {
	return nil, nil
}

type mockAccessLogStore struct {
	entries []caciDomain.AccessLog
}

func (m *mockAccessLogStore) Append(ctx context.Context, e caciDomain.AccessLog) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAccessLogStore) ListByCertificate(ctx context.Context, certificateID string) ([]caciDomain.AccessLog, error) {
	var list []caciDomain.AccessLog
	for _, e := range m.entries {
		if e.CertificateID == certificateID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockAccessLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockGalleryStore struct {
	galleries map[string]galleryDomain.Gallery
	photos    map[string]galleryDomain.Photo
}

func (m *mockGalleryStore) GetByID(ctx context.Context, id string) (galleryDomain.Gallery, error) {
	if g, ok := m.galleries[id]; ok {
		return g, nil
	}
	return galleryDomain.Gallery{}, sql.ErrNoRows
}

func (m *mockGalleryStore) GetBySlug(ctx context.Context, slug string) (galleryDomain.Gallery, error) {
	for _, g := range m.galleries {
		if g.Slug == slug {
			return g, nil
		}
	}
	return galleryDomain.Gallery{}, sql.ErrNoRows
}

func (m *mockGalleryStore) Save(ctx context.Context, g galleryDomain.Gallery) error {
	m.galleries[g.ID] = g
	return nil
}

func (m *mockGalleryStore) Delete(ctx context.Context, id string) error {
	delete(m.galleries, id)
	return nil
}

func (m *mockGalleryStore) List(ctx context.Context, filter galleryStore.ListFilter) ([]galleryDomain.Gallery, error) {
	var list []galleryDomain.Gallery
	for _, g := range m.galleries {
		if filter.PublishedOnly && !g.Published {
			continue
		}
		list = append(list, g)
	}
	return list, nil
}

func (m *mockGalleryStore) ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]galleryDomain.Gallery, error) {
	return nil, nil
}

func (m *mockGalleryStore) ListExpiringOn(ctx context.Context, day time.Time) ([]galleryDomain.Gallery, error) {
	return nil, nil
}

func (m *mockGalleryStore) SavePhoto(ctx context.Context, p galleryDomain.Photo) error {
	m.photos[p.ID] = p
	return nil
}

func (m *mockGalleryStore) DeletePhoto(ctx context.Context, id string) error {
	delete(m.photos, id)
	return nil
}

func (m *mockGalleryStore) ListPhotos(ctx context.Context, galleryID string) ([]galleryDomain.Photo, error) {
	var list []galleryDomain.Photo
	for _, p := range m.photos {
		if p.GalleryID == galleryID {
			list = append(list, p)
		}
	}
	return list, nil
}

type mockArticleStore struct {
	articles map[string]articleDomain.Article
}

func (m *mockArticleStore) GetByID(ctx context.Context, id string) (articleDomain.Article, error) {
	if a, ok := m.articles[id]; ok {
		return a, nil
	}
	return articleDomain.Article{}, sql.ErrNoRows
}

func (m *mockArticleStore) GetBySlug(ctx context.Context, slug string) (articleDomain.Article, error) {
	for _, a := range m.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return articleDomain.Article{}, sql.ErrNoRows
}

func (m *mockArticleStore) Save(ctx context.Context, a articleDomain.Article) error {
	m.articles[a.ID] = a
	return nil
}

func (m *mockArticleStore) Delete(ctx context.Context, id string) error {
	delete(m.articles, id)
	return nil
}

func (m *mockArticleStore) List(ctx context.Context, filter articleStore.ListFilter) ([]articleDomain.Article, error) {
	var list []articleDomain.Article
	for _, a := range m.articles {
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		list = append(list, a)
	}
	return list, nil
}

type mockOutboxStore struct {
	entries map[string]outboxDomain.Entry
}

func (m *mockOutboxStore) GetByID(ctx context.Context, id string) (outboxDomain.Entry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return outboxDomain.Entry{}, sql.ErrNoRows
}

func (m *mockOutboxStore) Save(ctx context.Context, e outboxDomain.Entry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(ctx context.Context, limit int) ([]outboxDomain.Entry, error) {
	var list []outboxDomain.Entry
	for _, e := range m.entries {
		if len(list) >= limit {
			break
		}
		list = append(list, e)
	}
	return list, nil
}

func (m *mockOutboxStore) ListFailed(ctx context.Context, limit int) ([]outboxDomain.Entry, error) {
	var list []outboxDomain.Entry
	for _, e := range m.entries {
		if e.Status == outboxDomain.StatusFailed {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockOutboxStore) ListByActionType(ctx context.Context, actionType string, status string, limit int) ([]outboxDomain.Entry, error) {
	var list []outboxDomain.Entry
	for _, e := range m.entries {
		if e.ActionType == actionType && (status == "" || e.Status == status) {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockOutboxStore) Delete(ctx context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

type mockFileStore struct {
	files map[string][]byte
}

func (m *mockFileStore) Save(ctx context.Context, key string, r io.Reader) error {
	m.files[key] = []byte("stored")
	return nil
}

func (m *mockFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, ok := m.files[key]; !ok {
		return nil, files.ErrNotFound
	}
	return io.NopCloser(strings.NewReader("document bytes")), nil
}

func (m *mockFileStore) Delete(ctx context.Context, key string) error {
	delete(m.files, key)
	return nil
}

// newTestStores builds a Stores struct backed entirely by mocks and
// installs it in the package globals the handlers read.
func newTestStores() *Stores {
	s := &Stores{
		AccountStore:       &mockAccountStore{accounts: map[string]accountDomain.Account{}, tokens: map[string]accountDomain.ActivationToken{}},
		MemberStore:        &mockMemberStore{members: map[string]memberDomain.Member{}},
		EventStore:         &mockEventStore{events: map[string]eventDomain.Event{}},
		RuleStore:          &mockRuleStore{rules: map[string]eligibilityDomain.Rule{}},
		ParticipationStore: &mockParticipationStore{participations: map[string]participationDomain.Participation{}},
		CertificateStore:   &mockCertStore{certs: map[string]caciDomain.Certificate{}},
		AccessLogStore:     &mockAccessLogStore{},
		GalleryStore:       &mockGalleryStore{galleries: map[string]galleryDomain.Gallery{}, photos: map[string]galleryDomain.Photo{}},
		ArticleStore:       &mockArticleStore{articles: map[string]articleDomain.Article{}},
		OutboxStore:        &mockOutboxStore{entries: map[string]outboxDomain.Entry{}},
		FileStore:          &mockFileStore{files: map[string][]byte{}},
	}
	stores = s
	sessions = middleware.NewSessionStore()
	return s
}

// authRequest returns a request with the given session injected into context.
func authRequest(method, url string, body string, sess middleware.Session) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	ctx := middleware.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx)
}

var adminSession = middleware.Session{
	AccountID: "acct-admin",
	Email:     "admin@club.test",
	Role:      accountDomain.RoleAdmin,
	CreatedAt: time.Now(),
}

var organizerSession = middleware.Session{
	AccountID: "acct-org",
	Email:     "organizer@club.test",
	Role:      accountDomain.RoleOrganizer,
	CreatedAt: time.Now(),
}

var reviewerSession = middleware.Session{
	AccountID: "acct-rev",
	Email:     "reviewer@club.test",
	Role:      accountDomain.RoleReviewer,
	CreatedAt: time.Now(),
}

var memberSession = middleware.Session{
	AccountID: "acct-member",
	Email:     "diver@club.test",
	Role:      accountDomain.RoleMember,
	CreatedAt: time.Now(),
}

// seedOrganizerAccount stores the organizer account the orchestrators
// resolve for role checks.
func seedOrganizerAccount(s *Stores) {
	s.AccountStore.Save(context.Background(), accountDomain.Account{
		ID:     "acct-org",
		Email:  "organizer@club.test",
		Role:   accountDomain.RoleOrganizer,
		Status: accountDomain.StatusActive,
	})
}

func seedLinkedMember(s *Stores) memberDomain.Member {
	m := memberDomain.Member{
		ID:          "mem-1",
		AccountID:   "acct-member",
		Email:       "diver@club.test",
		Name:        "Alice Diver",
		BirthDate:   time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC),
		DivingLevel: memberDomain.LevelN2,
		Insured:     true,
		IsDiver:     true,
		Status:      memberDomain.StatusActive,
	}
	s.MemberStore.Save(context.Background(), m)
	return m
}

// --- Tests: auth ---

func TestHandleLogin_Valid(t *testing.T) {
	s := newTestStores()
	acct := accountDomain.Account{
		ID:     "acct-1",
		Email:  "diver@club.test",
		Role:   accountDomain.RoleMember,
		Status: accountDomain.StatusActive,
	}
	acct.SetPassword("longenoughpassword")
	s.AccountStore.Save(context.Background(), acct)

	body := `{"Email":"diver@club.test","Password":"longenoughpassword"}`
	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Header().Get("Set-Cookie"); !strings.Contains(got, "divehub_session=") {
		t.Errorf("expected session cookie, got %q", got)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	s := newTestStores()
	acct := accountDomain.Account{
		ID:     "acct-1",
		Email:  "diver@club.test",
		Role:   accountDomain.RoleMember,
		Status: accountDomain.StatusActive,
	}
	acct.SetPassword("longenoughpassword")
	s.AccountStore.Save(context.Background(), acct)

	body := `{"Email":"diver@club.test","Password":"not the password"}`
	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// --- Tests: events ---

func TestHandleEvents_POST_Organizer(t *testing.T) {
	s := newTestStores()
	seedOrganizerAccount(s)

	start := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	body := `{"Title":"Sortie Cavalaire","Type":"dive","StartDate":"` + start + `","MaxParticipants":12,"AllowWaitingList":true}`
	req := authRequest("POST", "/api/events", body, organizerSession)
	rec := httptest.NewRecorder()
	handleEvents(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var ev eventDomain.Event
	json.NewDecoder(rec.Body).Decode(&ev)
	if ev.ID == "" || ev.CreatedBy != "acct-org" {
		t.Errorf("event not persisted with creator: %+v", ev)
	}
}

func TestHandleEvents_POST_MemberForbidden(t *testing.T) {
	newTestStores()
	body := `{"Title":"Rogue event","Type":"dive","StartDate":"2030-01-01"}`
	req := authRequest("POST", "/api/events", body, memberSession)
	rec := httptest.NewRecorder()
	handleEvents(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleEventRegister_Self(t *testing.T) {
	s := newTestStores()
	seedLinkedMember(s)
	s.EventStore.Save(context.Background(), eventDomain.Event{
		ID:              "ev-1",
		Title:           "Lake training",
		Type:            eventDomain.TypeTraining,
		StartDate:       time.Now().Add(48 * time.Hour),
		MaxParticipants: 10,
	})

	req := authRequest("POST", "/api/events/ev-1/register", `{"Quantity":1}`, memberSession)
	rec := httptest.NewRecorder()
	handleEventByID(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var p participationDomain.Participation
	json.NewDecoder(rec.Body).Decode(&p)
	if p.MemberID != "mem-1" || p.Status != participationDomain.StatusRegistered {
		t.Errorf("unexpected participation: %+v", p)
	}
}

func TestHandleEventRegister_NoLinkedMember(t *testing.T) {
	s := newTestStores()
	s.EventStore.Save(context.Background(), eventDomain.Event{
		ID:        "ev-1",
		Title:     "Lake training",
		Type:      eventDomain.TypeTraining,
		StartDate: time.Now().Add(48 * time.Hour),
	})

	req := authRequest("POST", "/api/events/ev-1/register", `{}`, memberSession)
	rec := httptest.NewRecorder()
	handleEventByID(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleEventByID_RosterHidesCACIFromMembers(t *testing.T) {
	s := newTestStores()
	m := seedLinkedMember(s)
	s.EventStore.Save(context.Background(), eventDomain.Event{
		ID:        "ev-1",
		Title:     "Sortie",
		Type:      eventDomain.TypeDive,
		StartDate: time.Now().Add(48 * time.Hour),
	})
	s.ParticipationStore.Save(context.Background(), participationDomain.Participation{
		ID:       "p-1",
		EventID:  "ev-1",
		MemberID: m.ID,
		Status:   participationDomain.StatusRegistered,
		Quantity: 1,
	})

	req := authRequest("GET", "/api/events/ev-1", "", memberSession)
	rec := httptest.NewRecorder()
	handleEventByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
}

// --- Tests: certificates ---

func TestServeCertificateFile_OwnerAllowedAndLogged(t *testing.T) {
	s := newTestStores()
	seedLinkedMember(s)
	s.CertificateStore.Save(context.Background(), caciDomain.Certificate{
		ID:       "cert-1",
		MemberID: "mem-1",
		FileKey:  "caci-cert-1.pdf",
		Status:   caciDomain.StatusValidated,
		Consent:  true,
	})
	s.FileStore.Save(context.Background(), "caci-cert-1.pdf", strings.NewReader("pdf"))

	req := authRequest("GET", "/api/caci/cert-1/file", "", memberSession)
	rec := httptest.NewRecorder()
	handleCertificateByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	logs, _ := s.AccessLogStore.ListByCertificate(context.Background(), "cert-1")
	if len(logs) != 1 || logs[0].Action != caciDomain.AccessDownload {
		t.Errorf("expected one download log entry, got %+v", logs)
	}
}

func TestServeCertificateFile_ForbiddenForOtherMember(t *testing.T) {
	s := newTestStores()
	seedLinkedMember(s)
	s.CertificateStore.Save(context.Background(), caciDomain.Certificate{
		ID:       "cert-9",
		MemberID: "mem-other",
		FileKey:  "caci-cert-9.pdf",
		Status:   caciDomain.StatusValidated,
		Consent:  true,
	})

	req := authRequest("GET", "/api/caci/cert-9/file", "", memberSession)
	rec := httptest.NewRecorder()
	handleCertificateByID(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleCertificatesPending_ReviewerOnly(t *testing.T) {
	s := newTestStores()
	s.CertificateStore.Save(context.Background(), caciDomain.Certificate{
		ID:       "cert-1",
		MemberID: "mem-1",
		Status:   caciDomain.StatusPending,
		Consent:  true,
	})

	req := authRequest("GET", "/api/caci/pending", "", reviewerSession)
	rec := httptest.NewRecorder()
	handleCertificatesPending(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	var certs []caciDomain.Certificate
	json.NewDecoder(rec.Body).Decode(&certs)
	if len(certs) != 1 {
		t.Errorf("got %d pending certs, want 1", len(certs))
	}

	req = authRequest("GET", "/api/caci/pending", "", memberSession)
	rec = httptest.NewRecorder()
	handleCertificatesPending(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d for member", rec.Code, http.StatusForbidden)
	}
}

// --- Tests: articles ---

func TestHandleArticles_GET_PublicSeesPublishedOnly(t *testing.T) {
	s := newTestStores()
	s.ArticleStore.Save(context.Background(), articleDomain.Article{
		ID: "a-1", Kind: articleDomain.KindNews, Status: articleDomain.StatusPublished,
		Title: "Saison 2026", Slug: "saison-2026", Content: "On y va",
	})
	s.ArticleStore.Save(context.Background(), articleDomain.Article{
		ID: "a-2", Kind: articleDomain.KindNews, Status: articleDomain.StatusDraft,
		Title: "Brouillon", Slug: "brouillon", Content: "pas fini",
	})

	req := httptest.NewRequest("GET", "/api/articles", nil)
	rec := httptest.NewRecorder()
	handleArticles(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	var articles []articleDomain.Article
	json.NewDecoder(rec.Body).Decode(&articles)
	if len(articles) != 1 || articles[0].ID != "a-1" {
		t.Errorf("expected only the published article, got %+v", articles)
	}
}

func TestHandleArticleBySlug_RendersMarkdown(t *testing.T) {
	s := newTestStores()
	s.ArticleStore.Save(context.Background(), articleDomain.Article{
		ID: "a-1", Kind: articleDomain.KindPage, Status: articleDomain.StatusPublished,
		Title: "Le club", Slug: "le-club", Content: "# Bienvenue\n\nVenez plonger.",
	})

	req := httptest.NewRequest("GET", "/articles/le-club", nil)
	rec := httptest.NewRecorder()
	handleArticleBySlug(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !strings.Contains(body, "<h1") || !strings.Contains(body, "Bienvenue") {
		t.Errorf("markdown not rendered: %s", body)
	}
}

func TestHandleArticleBySlug_DraftHidden(t *testing.T) {
	s := newTestStores()
	s.ArticleStore.Save(context.Background(), articleDomain.Article{
		ID: "a-1", Kind: articleDomain.KindPage, Status: articleDomain.StatusDraft,
		Title: "Secret", Slug: "secret", Content: "pas encore",
	})

	req := httptest.NewRequest("GET", "/articles/secret", nil)
	rec := httptest.NewRecorder()
	handleArticleBySlug(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// --- Tests: galleries ---

func TestHandleGalleries_GET_UnpublishedHidden(t *testing.T) {
	s := newTestStores()
	s.GalleryStore.Save(context.Background(), galleryDomain.Gallery{
		ID: "g-1", Title: "Cavalaire", Slug: "cavalaire", Published: true,
	})
	s.GalleryStore.Save(context.Background(), galleryDomain.Gallery{
		ID: "g-2", Title: "Tri en cours", Slug: "tri", Published: false,
	})

	req := httptest.NewRequest("GET", "/api/galleries", nil)
	rec := httptest.NewRecorder()
	handleGalleries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	var galleries []galleryDomain.Gallery
	json.NewDecoder(rec.Body).Decode(&galleries)
	if len(galleries) != 1 || galleries[0].ID != "g-1" {
		t.Errorf("expected only the published gallery, got %+v", galleries)
	}
}

// --- Tests: admin ---

func TestHandleAdminOutbox_AdminOnly(t *testing.T) {
	newTestStores()

	req := authRequest("GET", "/admin/outbox", "", memberSession)
	rec := httptest.NewRecorder()
	handleAdminOutbox(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d for member", rec.Code, http.StatusForbidden)
	}

	req = authRequest("GET", "/admin/outbox", "", adminSession)
	rec = httptest.NewRecorder()
	handleAdminOutbox(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("got %d, want %d for admin", rec.Code, http.StatusOK)
	}
}

func TestHandleDashboard_RequiresStaff(t *testing.T) {
	newTestStores()

	req := authRequest("GET", "/api/dashboard", "", memberSession)
	rec := httptest.NewRecorder()
	handleDashboard(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = authRequest("GET", "/api/dashboard", "", organizerSession)
	rec = httptest.NewRecorder()
	handleDashboard(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleMemberByID_OwnProfileOnly(t *testing.T) {
	s := newTestStores()
	seedLinkedMember(s)

	req := authRequest("GET", "/api/members/mem-1", "", memberSession)
	rec := httptest.NewRecorder()
	handleMemberByID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	req = authRequest("GET", "/api/members/mem-other", "", memberSession)
	rec = httptest.NewRecorder()
	handleMemberByID(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d for foreign profile", rec.Code, http.StatusForbidden)
	}
}
