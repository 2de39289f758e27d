package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"divehub/internal/domain/gallery"
)

// GalleryStoreForOrchestrator defines the store interface needed by gallery orchestrators.
type GalleryStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (gallery.Gallery, error)
	GetBySlug(ctx context.Context, slug string) (gallery.Gallery, error)
	Save(ctx context.Context, g gallery.Gallery) error
	SavePhoto(ctx context.Context, p gallery.Photo) error
	DeletePhoto(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, galleryID string) ([]gallery.Photo, error)
}

// Orchestrator errors for gallery management.
var (
	ErrNotAuthorizedForGalleries = errors.New("account is not authorized to manage galleries")
	ErrGallerySlugTaken          = errors.New("a gallery with this slug already exists")
)

// SaveGalleryInput carries input for the orchestrator. A zero ID creates a
// new gallery.
type SaveGalleryInput struct {
	ID          string
	ActorID     string
	Title       string
	Slug        string
	Description string
	EventID     string
	ExpiryDate  time.Time
	Published   bool
}

// SaveGalleryDeps holds dependencies for SaveGallery.
type SaveGalleryDeps struct {
	GalleryStore GalleryStoreForOrchestrator
	AccountStore AccountStoreForManage
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSaveGallery creates or updates a gallery.
// PRE: Actor has the organizer or admin role
// POST: Gallery persisted
// INVARIANT: slug is unique across galleries
func ExecuteSaveGallery(ctx context.Context, input SaveGalleryInput, deps SaveGalleryDeps) (gallery.Gallery, error) {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return gallery.Gallery{}, err
	}
	if !actor.IsOrganizerOrAdmin() {
		return gallery.Gallery{}, ErrNotAuthorizedForGalleries
	}

	g := gallery.Gallery{
		ID:          input.ID,
		Title:       input.Title,
		Slug:        input.Slug,
		Description: input.Description,
		EventID:     input.EventID,
		ExpiryDate:  input.ExpiryDate,
		Published:   input.Published,
		CreatedBy:   input.ActorID,
		CreatedAt:   deps.Now(),
	}

	if input.ID != "" {
		existing, err := deps.GalleryStore.GetByID(ctx, input.ID)
		if err != nil {
			return gallery.Gallery{}, err
		}
		g.CreatedBy = existing.CreatedBy
		g.CreatedAt = existing.CreatedAt
	} else {
		g.ID = deps.GenerateID()
	}

	if err := g.Validate(); err != nil {
		return gallery.Gallery{}, err
	}

	if g.Slug != "" {
		if existing, err := deps.GalleryStore.GetBySlug(ctx, g.Slug); err == nil && existing.ID != g.ID {
			return gallery.Gallery{}, ErrGallerySlugTaken
		}
	}

	if err := deps.GalleryStore.Save(ctx, g); err != nil {
		return gallery.Gallery{}, err
	}

	slog.Info("gallery_event", "event", "gallery_saved", "gallery_id", g.ID, "title", g.Title, "actor_id", input.ActorID)
	return g, nil
}

// AddPhotoInput carries input for the orchestrator.
type AddPhotoInput struct {
	GalleryID string
	ActorID   string
	Caption   string
	SortOrder int
	Extension string // file extension including the dot, e.g. ".jpg"
	File      io.Reader
}

// AddPhotoDeps holds dependencies for AddPhoto.
type AddPhotoDeps struct {
	GalleryStore GalleryStoreForOrchestrator
	AccountStore AccountStoreForManage
	FileStore    FileStoreForUpload
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteAddPhoto stores a photo file and attaches it to a gallery.
// The file is written before the row so a failed insert cannot leave a
// dangling row; a failed insert removes the file again.
// PRE: Actor has the organizer or admin role, gallery exists
// POST: Photo row saved, file stored under the photo's file key
func ExecuteAddPhoto(ctx context.Context, input AddPhotoInput, deps AddPhotoDeps) (gallery.Photo, error) {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return gallery.Photo{}, err
	}
	if !actor.IsOrganizerOrAdmin() {
		return gallery.Photo{}, ErrNotAuthorizedForGalleries
	}

	g, err := deps.GalleryStore.GetByID(ctx, input.GalleryID)
	if err != nil {
		return gallery.Photo{}, err
	}

	id := deps.GenerateID()
	ext := input.Extension
	if ext == "" {
		ext = ".jpg"
	}
	p := gallery.Photo{
		ID:        id,
		GalleryID: g.ID,
		FileKey:   fmt.Sprintf("photo-%s%s", id, ext),
		Caption:   input.Caption,
		SortOrder: input.SortOrder,
		CreatedAt: deps.Now(),
	}
	if err := p.Validate(); err != nil {
		return gallery.Photo{}, err
	}

	if err := deps.FileStore.Save(ctx, p.FileKey, input.File); err != nil {
		return gallery.Photo{}, fmt.Errorf("storing photo file: %w", err)
	}
	if err := deps.GalleryStore.SavePhoto(ctx, p); err != nil {
		if delErr := deps.FileStore.Delete(ctx, p.FileKey); delErr != nil {
			slog.Error("gallery_event", "event", "photo_cleanup_failed", "file_key", p.FileKey, "error", delErr)
		}
		return gallery.Photo{}, err
	}

	slog.Info("gallery_event", "event", "photo_added", "photo_id", p.ID, "gallery_id", g.ID, "actor_id", input.ActorID)
	return p, nil
}

// RemovePhotoInput carries input for the orchestrator.
type RemovePhotoInput struct {
	GalleryID string
	PhotoID   string
	ActorID   string
}

// ExecuteRemovePhoto deletes a photo row and its stored file.
// PRE: Actor has the organizer or admin role
// POST: Photo row and file are gone; a missing file is not an error
func ExecuteRemovePhoto(ctx context.Context, input RemovePhotoInput, deps AddPhotoDeps) error {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return err
	}
	if !actor.IsOrganizerOrAdmin() {
		return ErrNotAuthorizedForGalleries
	}

	photos, err := deps.GalleryStore.ListPhotos(ctx, input.GalleryID)
	if err != nil {
		return err
	}
	for _, p := range photos {
		if p.ID != input.PhotoID {
			continue
		}
		if err := deps.GalleryStore.DeletePhoto(ctx, p.ID); err != nil {
			return err
		}
		if err := deps.FileStore.Delete(ctx, p.FileKey); err != nil {
			slog.Warn("gallery_event", "event", "photo_file_delete_failed", "file_key", p.FileKey, "error", err)
		}
		slog.Info("gallery_event", "event", "photo_removed", "photo_id", p.ID, "gallery_id", input.GalleryID, "actor_id", input.ActorID)
		return nil
	}
	return fmt.Errorf("photo not found in gallery: %s", input.PhotoID)
}
