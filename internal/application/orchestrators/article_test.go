package orchestrators

import (
	"context"
	"errors"
	"testing"

	"divehub/internal/domain/article"
)

type mockArticleStore struct {
	articles map[string]article.Article
}

func (m *mockArticleStore) GetByID(_ context.Context, id string) (article.Article, error) {
	a, ok := m.articles[id]
	if !ok {
		return article.Article{}, errors.New("article not found")
	}
	return a, nil
}

func (m *mockArticleStore) GetBySlug(_ context.Context, slug string) (article.Article, error) {
	for _, a := range m.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return article.Article{}, errors.New("article not found")
}

func (m *mockArticleStore) Save(_ context.Context, a article.Article) error {
	m.articles[a.ID] = a
	return nil
}

func newMockArticleStore() *mockArticleStore {
	return &mockArticleStore{articles: make(map[string]article.Article)}
}

func TestExecuteCreateArticle_Valid(t *testing.T) {
	store := newMockArticleStore()

	a, err := ExecuteCreateArticle(context.Background(), CreateArticleInput{
		Kind:       article.KindNews,
		Title:      "Season opening dive",
		Slug:       "season-opening",
		Content:    "**See you** at the harbor",
		AuthorName: "Marine",
		ShowAuthor: true,
		CreatedBy:  "org-1",
	}, CreateArticleDeps{
		ArticleStore: store,
		GenerateID:   seqID(),
		Now:          fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != article.StatusDraft {
		t.Errorf("expected status=draft, got %s", a.Status)
	}
	if _, ok := store.articles[a.ID]; !ok {
		t.Error("expected article persisted")
	}
}

func TestExecuteCreateArticle_DuplicateSlug(t *testing.T) {
	store := newMockArticleStore()
	deps := CreateArticleDeps{ArticleStore: store, GenerateID: seqID(), Now: fixedNow}

	if _, err := ExecuteCreateArticle(context.Background(), CreateArticleInput{
		Kind:      article.KindPage,
		Title:     "About the club",
		Slug:      "about",
		Content:   "History",
		CreatedBy: "org-1",
	}, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := ExecuteCreateArticle(context.Background(), CreateArticleInput{
		Kind:      article.KindPage,
		Title:     "Another about",
		Slug:      "about",
		Content:   "Duplicate",
		CreatedBy: "org-1",
	}, deps)
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestExecutePublishArticle_Valid(t *testing.T) {
	store := newMockArticleStore()
	store.articles["a-1"] = article.Article{
		ID:        "a-1",
		Kind:      article.KindNews,
		Status:    article.StatusDraft,
		Title:     "Draft news",
		Content:   "body",
		CreatedBy: "org-1",
		CreatedAt: fixedTime,
	}

	a, err := ExecutePublishArticle(context.Background(), PublishArticleInput{
		ArticleID:   "a-1",
		PublisherID: "org-2",
	}, PublishArticleDeps{ArticleStore: store, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != article.StatusPublished {
		t.Errorf("expected status=published, got %s", a.Status)
	}
	if a.PublishedBy != "org-2" {
		t.Errorf("expected PublishedBy=org-2, got %s", a.PublishedBy)
	}
	if !a.PublishedAt.Equal(fixedTime) {
		t.Errorf("expected PublishedAt=%v, got %v", fixedTime, a.PublishedAt)
	}
}

func TestExecutePublishArticle_AlreadyPublished(t *testing.T) {
	store := newMockArticleStore()
	store.articles["a-1"] = article.Article{
		ID:        "a-1",
		Kind:      article.KindNews,
		Status:    article.StatusPublished,
		Title:     "Published news",
		Content:   "body",
		CreatedBy: "org-1",
	}

	_, err := ExecutePublishArticle(context.Background(), PublishArticleInput{
		ArticleID:   "a-1",
		PublisherID: "org-2",
	}, PublishArticleDeps{ArticleStore: store, Now: fixedNow})
	if err == nil {
		t.Fatal("expected error publishing an already published article")
	}
}

func TestExecutePinArticle_PinAndUnpin(t *testing.T) {
	store := newMockArticleStore()
	store.articles["a-1"] = article.Article{
		ID:        "a-1",
		Kind:      article.KindNews,
		Status:    article.StatusPublished,
		Title:     "News",
		Content:   "body",
		CreatedBy: "org-1",
	}
	deps := EditArticleDeps{ArticleStore: store, Now: fixedNow}

	a, err := ExecutePinArticle(context.Background(), PinArticleInput{ArticleID: "a-1", Pinned: true}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Pinned || !a.PinnedAt.Equal(fixedTime) {
		t.Errorf("expected pinned at %v, got pinned=%v at %v", fixedTime, a.Pinned, a.PinnedAt)
	}

	a, err = ExecutePinArticle(context.Background(), PinArticleInput{ArticleID: "a-1", Pinned: false}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Pinned {
		t.Error("expected article unpinned")
	}

	if _, err := ExecutePinArticle(context.Background(), PinArticleInput{ArticleID: "a-1", Pinned: false}, deps); err == nil {
		t.Error("expected error unpinning an unpinned article")
	}
}

func TestExecuteEditArticle_PartialUpdate(t *testing.T) {
	store := newMockArticleStore()
	store.articles["a-1"] = article.Article{
		ID:         "a-1",
		Kind:       article.KindPage,
		Status:     article.StatusPublished,
		Title:      "Training",
		Slug:       "training",
		Content:    "old content",
		AuthorName: "Old Author",
		CreatedBy:  "org-1",
	}

	a, err := ExecuteEditArticle(context.Background(), EditArticleInput{
		ArticleID:  "a-1",
		Content:    "new content",
		AuthorName: "",
	}, EditArticleDeps{ArticleStore: store, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "Training" {
		t.Errorf("expected title kept, got %s", a.Title)
	}
	if a.Content != "new content" {
		t.Errorf("expected content updated, got %s", a.Content)
	}
	// AuthorName is always overwritten, empty clears it.
	if a.AuthorName != "" {
		t.Errorf("expected author cleared, got %s", a.AuthorName)
	}
	if !a.UpdatedAt.Equal(fixedTime) {
		t.Errorf("expected UpdatedAt set, got %v", a.UpdatedAt)
	}
}
