package article

import (
	"errors"
	"regexp"
	"time"
)

// Article kinds
const (
	KindNews = "news" // dated club news item
	KindPage = "page" // standalone site page (about, training, boat...)
)

// Article statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength   = 200
	MaxSlugLength    = 200
	MaxContentLength = 50000
)

// Domain errors
var (
	ErrEmptyTitle    = errors.New("article title cannot be empty")
	ErrEmptyContent  = errors.New("article content cannot be empty")
	ErrInvalidKind   = errors.New("article kind must be one of: news, page")
	ErrInvalidStatus = errors.New("article status must be one of: draft, published")
	ErrInvalidSlug   = errors.New("article slug must be lowercase letters, digits, and hyphens")
	ErrAlreadyPinned = errors.New("article is already pinned")
	ErrNotPinned     = errors.New("article is not pinned")
)

// ValidKinds contains all valid article kinds.
var ValidKinds = []string{KindNews, KindPage}

// ValidStatuses contains all valid article statuses.
var ValidStatuses = []string{StatusDraft, StatusPublished}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Article is a site page or news item. Content supports Markdown and is
// rendered at the HTTP layer.
type Article struct {
	ID           string
	Kind         string // news, page
	Status       string // draft, published
	Title        string
	Slug         string // URL path segment, unique among pages
	Content      string // Markdown content
	CreatedBy    string // AccountID of creator
	PublishedBy  string // AccountID of publisher (empty if draft)
	AuthorName   string // display name of the author
	ShowAuthor   bool
	Pinned       bool // pinned to top of the news list
	PinnedAt     time.Time
	VisibleFrom  time.Time // scheduled appearance (zero = immediately)
	VisibleUntil time.Time // scheduled disappearance (zero = indefinite)
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PublishedAt  time.Time
}

// Validate checks if the Article has valid data.
// PRE: Article struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Article) Validate() error {
	if a.Title == "" {
		return ErrEmptyTitle
	}
	if len(a.Title) > MaxTitleLength {
		return errors.New("article title cannot exceed 200 characters")
	}
	if a.Content == "" {
		return ErrEmptyContent
	}
	if len(a.Content) > MaxContentLength {
		return errors.New("article content cannot exceed 50000 characters")
	}
	if !isValidKind(a.Kind) {
		return ErrInvalidKind
	}
	if !isValidStatus(a.Status) {
		return ErrInvalidStatus
	}
	if len(a.Slug) > MaxSlugLength {
		return errors.New("article slug cannot exceed 200 characters")
	}
	if a.Slug != "" && !slugRegex.MatchString(a.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

// IsVisible returns true if the article is currently visible based on the
// scheduled window.
// PRE: now is the injected clock reading
// POST: Returns true if the article falls within its visibility window
func (a *Article) IsVisible(now time.Time) bool {
	if !a.VisibleFrom.IsZero() && now.Before(a.VisibleFrom) {
		return false
	}
	if !a.VisibleUntil.IsZero() && now.After(a.VisibleUntil) {
		return false
	}
	return true
}

// Pin marks the article as pinned.
// PRE: Article is not already pinned
// POST: Pinned is true, PinnedAt is set
func (a *Article) Pin(now time.Time) error {
	if a.Pinned {
		return ErrAlreadyPinned
	}
	a.Pinned = true
	a.PinnedAt = now
	return nil
}

// Unpin removes the pinned status.
// PRE: Article is pinned
// POST: Pinned is false, PinnedAt is zeroed
func (a *Article) Unpin() error {
	if !a.Pinned {
		return ErrNotPinned
	}
	a.Pinned = false
	a.PinnedAt = time.Time{}
	return nil
}

// IsDraft returns true if the article is in draft state.
// INVARIANT: Status field is not mutated
func (a *Article) IsDraft() bool {
	return a.Status == StatusDraft
}

// IsPublished returns true if the article has been published.
// INVARIANT: Status field is not mutated
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// Publish moves the article from draft to published.
// PRE: Article is in draft state, publisherID is non-empty
// POST: Status is published, PublishedBy and PublishedAt are set
func (a *Article) Publish(publisherID string, now time.Time) error {
	if a.IsPublished() {
		return errors.New("article is already published")
	}
	if publisherID == "" {
		return errors.New("publisher ID is required")
	}
	a.Status = StatusPublished
	a.PublishedBy = publisherID
	a.PublishedAt = now
	return nil
}

func isValidKind(k string) bool {
	for _, v := range ValidKinds {
		if v == k {
			return true
		}
	}
	return false
}

func isValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}
