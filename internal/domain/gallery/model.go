package gallery

import (
	"errors"
	"regexp"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxSlugLength        = 200
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Gallery is a time-boxed photo gallery for a club trip or event. Galleries
// can carry an expiry date after which they disappear from the site; the
// reminder scheduler warns owners before that happens.
type Gallery struct {
	ID          string
	Title       string
	Slug        string
	Description string
	EventID     string    // optional link to the event the photos come from
	ExpiryDate  time.Time // zero value means the gallery never expires
	Published   bool
	CreatedBy   string // account ID of the creator
	CreatedAt   time.Time
}

// Photo is a single image inside a gallery.
type Photo struct {
	ID        string
	GalleryID string
	FileKey   string
	Caption   string
	SortOrder int
	CreatedAt time.Time
}

// Validate checks the gallery's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (g *Gallery) Validate() error {
	if g.Title == "" {
		return errors.New("gallery title cannot be empty")
	}
	if len(g.Title) > MaxTitleLength {
		return errors.New("gallery title cannot exceed 200 characters")
	}
	if len(g.Description) > MaxDescriptionLength {
		return errors.New("gallery description cannot exceed 2000 characters")
	}
	if len(g.Slug) > MaxSlugLength {
		return errors.New("gallery slug cannot exceed 200 characters")
	}
	if g.Slug != "" && !slugRegex.MatchString(g.Slug) {
		return errors.New("gallery slug must be lowercase letters, digits, and hyphens")
	}
	return nil
}

// Validate checks the photo's invariants.
// PRE: none
// POST: returns nil if valid, error otherwise
func (p *Photo) Validate() error {
	if p.GalleryID == "" {
		return errors.New("photo gallery ID cannot be empty")
	}
	if p.FileKey == "" {
		return errors.New("photo file key cannot be empty")
	}
	return nil
}

// IsExpired returns true once the gallery's expiry date has passed.
// PRE: now is the injected clock reading
// INVARIANT: Gallery fields are not mutated
func (g *Gallery) IsExpired(now time.Time) bool {
	return !g.ExpiryDate.IsZero() && now.After(g.ExpiryDate)
}
