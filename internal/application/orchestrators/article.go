package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"divehub/internal/domain/article"
)

// ArticleStoreForOrchestrator defines the store interface needed by article orchestrators.
type ArticleStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (article.Article, error)
	GetBySlug(ctx context.Context, slug string) (article.Article, error)
	Save(ctx context.Context, a article.Article) error
}

// ErrSlugTaken means another article already uses the requested slug.
var ErrSlugTaken = errors.New("an article with this slug already exists")

// --- Create Article ---

// CreateArticleInput carries input for the create article orchestrator.
type CreateArticleInput struct {
	Kind         string
	Title        string
	Slug         string
	Content      string
	AuthorName   string
	ShowAuthor   bool
	VisibleFrom  time.Time
	VisibleUntil time.Time
	CreatedBy    string // AccountID of creator
}

// CreateArticleDeps holds dependencies for CreateArticle.
type CreateArticleDeps struct {
	ArticleStore ArticleStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteCreateArticle creates a new article in draft status.
// PRE: Title, Content, Kind must be valid; CreatedBy must be non-empty
// POST: Article created in draft status with generated ID
// INVARIANT: slug is unique across articles
func ExecuteCreateArticle(ctx context.Context, input CreateArticleInput, deps CreateArticleDeps) (article.Article, error) {
	if input.CreatedBy == "" {
		return article.Article{}, errors.New("creator account ID is required")
	}

	a := article.Article{
		ID:           deps.GenerateID(),
		Kind:         input.Kind,
		Status:       article.StatusDraft,
		Title:        input.Title,
		Slug:         input.Slug,
		Content:      input.Content,
		CreatedBy:    input.CreatedBy,
		AuthorName:   input.AuthorName,
		ShowAuthor:   input.ShowAuthor,
		VisibleFrom:  input.VisibleFrom,
		VisibleUntil: input.VisibleUntil,
		CreatedAt:    deps.Now(),
	}

	if err := a.Validate(); err != nil {
		return article.Article{}, err
	}

	if a.Slug != "" {
		if existing, err := deps.ArticleStore.GetBySlug(ctx, a.Slug); err == nil && existing.ID != a.ID {
			return article.Article{}, ErrSlugTaken
		}
	}

	if err := deps.ArticleStore.Save(ctx, a); err != nil {
		return article.Article{}, err
	}

	slog.Info("article_event", "event", "article_created", "article_id", a.ID, "kind", a.Kind, "created_by", input.CreatedBy)
	return a, nil
}

// --- Edit Article ---

// EditArticleInput carries input for the edit article orchestrator.
type EditArticleInput struct {
	ArticleID    string
	Title        string
	Slug         string
	Content      string
	Kind         string
	AuthorName   string
	ShowAuthor   bool
	VisibleFrom  time.Time
	VisibleUntil time.Time
}

// EditArticleDeps holds dependencies for EditArticle.
type EditArticleDeps struct {
	ArticleStore ArticleStoreForOrchestrator
	Now          func() time.Time
}

// ExecuteEditArticle updates fields on an existing article.
// Partial-update semantics:
//   - Title, Content, Kind, Slug: only updated when the input value is non-empty (cannot be cleared).
//   - AuthorName, ShowAuthor, VisibleFrom, VisibleUntil: always overwritten (can be cleared by sending zero-values).
//
// PRE: ArticleID must be non-empty; article must exist
// POST: Article fields updated, UpdatedAt set
func ExecuteEditArticle(ctx context.Context, input EditArticleInput, deps EditArticleDeps) (article.Article, error) {
	if input.ArticleID == "" {
		return article.Article{}, errors.New("article ID is required")
	}

	a, err := deps.ArticleStore.GetByID(ctx, input.ArticleID)
	if err != nil {
		return article.Article{}, err
	}

	if input.Title != "" {
		a.Title = input.Title
	}
	if input.Content != "" {
		a.Content = input.Content
	}
	if input.Kind != "" {
		a.Kind = input.Kind
	}
	if input.Slug != "" {
		a.Slug = input.Slug
	}
	a.AuthorName = input.AuthorName
	a.ShowAuthor = input.ShowAuthor
	a.VisibleFrom = input.VisibleFrom
	a.VisibleUntil = input.VisibleUntil
	a.UpdatedAt = deps.Now()

	if err := a.Validate(); err != nil {
		return article.Article{}, err
	}

	if a.Slug != "" {
		if existing, err := deps.ArticleStore.GetBySlug(ctx, a.Slug); err == nil && existing.ID != a.ID {
			return article.Article{}, ErrSlugTaken
		}
	}

	if err := deps.ArticleStore.Save(ctx, a); err != nil {
		return article.Article{}, err
	}

	slog.Info("article_event", "event", "article_edited", "article_id", a.ID, "title", a.Title)
	return a, nil
}

// --- Publish Article ---

// PublishArticleInput carries input for the publish article orchestrator.
type PublishArticleInput struct {
	ArticleID   string
	PublisherID string // AccountID of publisher
}

// PublishArticleDeps holds dependencies for PublishArticle.
type PublishArticleDeps struct {
	ArticleStore ArticleStoreForOrchestrator
	Now          func() time.Time
}

// ExecutePublishArticle publishes a draft article.
// PRE: ArticleID and PublisherID must be non-empty; article must exist and be in draft status
// POST: Article status set to published, PublishedBy and PublishedAt set
func ExecutePublishArticle(ctx context.Context, input PublishArticleInput, deps PublishArticleDeps) (article.Article, error) {
	if input.ArticleID == "" {
		return article.Article{}, errors.New("article ID is required")
	}
	if input.PublisherID == "" {
		return article.Article{}, errors.New("publisher ID is required")
	}

	a, err := deps.ArticleStore.GetByID(ctx, input.ArticleID)
	if err != nil {
		return article.Article{}, err
	}

	if err := a.Publish(input.PublisherID, deps.Now()); err != nil {
		return article.Article{}, err
	}

	if err := deps.ArticleStore.Save(ctx, a); err != nil {
		return article.Article{}, err
	}

	slog.Info("article_event", "event", "article_published", "article_id", a.ID, "published_by", input.PublisherID)
	return a, nil
}

// --- Pin/Unpin Article ---

// PinArticleInput carries input for the pin/unpin article orchestrator.
type PinArticleInput struct {
	ArticleID string
	Pinned    bool // true = pin, false = unpin
}

// ExecutePinArticle pins or unpins an article on the news list.
// PRE: ArticleID must be non-empty; article must exist
// POST: Pinned/PinnedAt updated, UpdatedAt set
func ExecutePinArticle(ctx context.Context, input PinArticleInput, deps EditArticleDeps) (article.Article, error) {
	if input.ArticleID == "" {
		return article.Article{}, errors.New("article ID is required")
	}

	a, err := deps.ArticleStore.GetByID(ctx, input.ArticleID)
	if err != nil {
		return article.Article{}, err
	}

	if input.Pinned {
		if err := a.Pin(deps.Now()); err != nil {
			return article.Article{}, err
		}
	} else {
		if err := a.Unpin(); err != nil {
			return article.Article{}, err
		}
	}
	a.UpdatedAt = deps.Now()

	if err := deps.ArticleStore.Save(ctx, a); err != nil {
		return article.Article{}, err
	}

	slog.Info("article_event", "event", "article_pin_changed", "article_id", a.ID, "pinned", input.Pinned)
	return a, nil
}
