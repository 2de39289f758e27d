package article

import (
	"testing"
	"time"
)

var articleNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func validArticle() Article {
	return Article{
		ID:        "a1",
		Kind:      KindNews,
		Status:    StatusDraft,
		Title:     "New compressor installed",
		Slug:      "new-compressor",
		Content:   "The club **compressor** has been replaced.",
		CreatedBy: "admin-1",
	}
}

// TestArticle_Validate tests article validation rules.
func TestArticle_Validate(t *testing.T) {
	a := validArticle()
	if err := a.Validate(); err != nil {
		t.Fatalf("expected valid article, got: %v", err)
	}

	tests := []struct {
		name   string
		modify func(a *Article)
	}{
		{"empty title", func(a *Article) { a.Title = "" }},
		{"empty content", func(a *Article) { a.Content = "" }},
		{"invalid kind", func(a *Article) { a.Kind = "blog" }},
		{"invalid status", func(a *Article) { a.Status = "archived" }},
		{"invalid slug", func(a *Article) { a.Slug = "Not A Slug" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := validArticle()
			tc.modify(&a)
			if err := a.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// TestArticle_Publish tests the draft to published transition.
func TestArticle_Publish(t *testing.T) {
	a := validArticle()
	if err := a.Publish("admin-1", articleNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.IsPublished() || a.PublishedBy != "admin-1" || !a.PublishedAt.Equal(articleNow) {
		t.Errorf("expected published state, got %+v", a)
	}
	if err := a.Publish("admin-1", articleNow); err == nil {
		t.Error("expected error on double publish")
	}
}

// TestArticle_IsVisible tests the scheduled visibility window.
func TestArticle_IsVisible(t *testing.T) {
	a := validArticle()
	if !a.IsVisible(articleNow) {
		t.Error("article with no window is always visible")
	}
	a.VisibleFrom = articleNow.Add(time.Hour)
	if a.IsVisible(articleNow) {
		t.Error("not visible before VisibleFrom")
	}
	a.VisibleFrom = time.Time{}
	a.VisibleUntil = articleNow.Add(-time.Hour)
	if a.IsVisible(articleNow) {
		t.Error("not visible after VisibleUntil")
	}
}

// TestArticle_PinUnpin tests the pinned lifecycle.
func TestArticle_PinUnpin(t *testing.T) {
	a := validArticle()
	if err := a.Pin(articleNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Pin(articleNow); err != ErrAlreadyPinned {
		t.Errorf("expected ErrAlreadyPinned, got %v", err)
	}
	if err := a.Unpin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Unpin(); err != ErrNotPinned {
		t.Errorf("expected ErrNotPinned, got %v", err)
	}
}
