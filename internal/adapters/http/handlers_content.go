package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"divehub/internal/adapters/http/middleware"
	articleStore "divehub/internal/adapters/storage/article"
	galleryStore "divehub/internal/adapters/storage/gallery"
	"divehub/internal/application/orchestrators"
	articleDomain "divehub/internal/domain/article"
)

// maxPhotoUploadBytes caps gallery photo uploads at 20 MB.
const maxPhotoUploadBytes = 20 << 20

// articleRequest is the JSON body for creating or editing an article.
type articleRequest struct {
	Kind         string
	Title        string
	Slug         string
	Content      string
	AuthorName   string
	ShowAuthor   bool
	VisibleFrom  string
	VisibleUntil string
}

func (ar articleRequest) visibility() (from, until time.Time, err error) {
	if ar.VisibleFrom != "" {
		if from, err = parseTimeParam(ar.VisibleFrom); err != nil {
			return
		}
	}
	if ar.VisibleUntil != "" {
		until, err = parseTimeParam(ar.VisibleUntil)
	}
	return
}

// handleArticles handles GET (list) and POST (create) for /api/articles.
func handleArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		filter := articleStore.ListFilter{
			Kind:        r.URL.Query().Get("kind"),
			PinnedFirst: true,
		}
		// Drafts and scheduling internals are staff-only
		staff := middleware.IsOrganizerOrAdmin(ctx)
		if staff {
			filter.Status = r.URL.Query().Get("status")
		} else {
			filter.Status = articleDomain.StatusPublished
		}
		articles, err := stores.ArticleStore.List(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}
		if !staff {
			now := timeNow()
			visible := articles[:0]
			for _, a := range articles {
				if a.IsVisible(now) {
					visible = append(visible, a)
				}
			}
			articles = visible
		}
		writeJSON(w, articles)

	case "POST":
		sess, ok := requireOrganizer(w, r)
		if !ok {
			return
		}
		var body articleRequest
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		from, until, err := body.visibility()
		if err != nil {
			http.Error(w, "invalid visibility date", http.StatusBadRequest)
			return
		}

		a, err := orchestrators.ExecuteCreateArticle(ctx, orchestrators.CreateArticleInput{
			Kind:         body.Kind,
			Title:        body.Title,
			Slug:         body.Slug,
			Content:      body.Content,
			AuthorName:   body.AuthorName,
			ShowAuthor:   body.ShowAuthor,
			VisibleFrom:  from,
			VisibleUntil: until,
			CreatedBy:    sess.AccountID,
		}, orchestrators.CreateArticleDeps{
			ArticleStore: stores.ArticleStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, orchestrators.ErrSlugTaken) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, a)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleArticleByID handles /api/articles/{id} and its actions.
// Routes: POST /api/articles/{id} (edit), POST /api/articles/{id}/publish,
// POST /api/articles/{id}/pin
func handleArticleByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireOrganizer(w, r)
	if !ok {
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	articleID := parts[2]

	if len(parts) == 4 {
		switch parts[3] {
		case "publish":
			a, err := orchestrators.ExecutePublishArticle(ctx, orchestrators.PublishArticleInput{
				ArticleID:   articleID,
				PublisherID: sess.AccountID,
			}, orchestrators.PublishArticleDeps{
				ArticleStore: stores.ArticleStore,
				Now:          timeNow,
			})
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, a)
		case "pin":
			var body struct {
				Pinned bool
			}
			if err := strictDecode(r, &body); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
			a, err := orchestrators.ExecutePinArticle(ctx, orchestrators.PinArticleInput{
				ArticleID: articleID,
				Pinned:    body.Pinned,
			}, orchestrators.EditArticleDeps{
				ArticleStore: stores.ArticleStore,
				Now:          timeNow,
			})
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, a)
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}
		return
	}

	var body articleRequest
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	from, until, err := body.visibility()
	if err != nil {
		http.Error(w, "invalid visibility date", http.StatusBadRequest)
		return
	}

	a, err := orchestrators.ExecuteEditArticle(ctx, orchestrators.EditArticleInput{
		ArticleID:    articleID,
		Title:        body.Title,
		Slug:         body.Slug,
		Content:      body.Content,
		Kind:         body.Kind,
		AuthorName:   body.AuthorName,
		ShowAuthor:   body.ShowAuthor,
		VisibleFrom:  from,
		VisibleUntil: until,
	}, orchestrators.EditArticleDeps{
		ArticleStore: stores.ArticleStore,
		Now:          timeNow,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, orchestrators.ErrSlugTaken) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, a)
}

// articlePage is the minimal public shell around rendered article content.
var articlePage = template.Must(template.New("article").Parse(`<!doctype html>
<html lang="fr">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<article>
<h1>{{.Title}}</h1>
{{if .Author}}<p class="author">{{.Author}}</p>{{end}}
{{.Body}}
</article>
</body>
</html>
`))

// handleArticleBySlug handles GET /articles/{slug}: the public rendered page.
func handleArticleBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	slug := strings.TrimPrefix(r.URL.Path, "/articles/")
	if slug == "" || strings.Contains(slug, "/") {
		http.NotFound(w, r)
		return
	}

	a, err := stores.ArticleStore.GetBySlug(r.Context(), slug)
	if err != nil || a.Status != articleDomain.StatusPublished || !a.IsVisible(timeNow()) {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(a.Content), &buf); err != nil {
		internalError(w, err)
		return
	}

	author := ""
	if a.ShowAuthor {
		author = a.AuthorName
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	articlePage.Execute(w, map[string]any{
		"Title":  a.Title,
		"Author": author,
		"Body":   template.HTML(buf.String()),
	})
}

// handleGalleries handles GET (list) and POST (create/update) for /api/galleries.
func handleGalleries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		filter := galleryStore.ListFilter{
			EventID: r.URL.Query().Get("event_id"),
		}
		if !middleware.IsOrganizerOrAdmin(ctx) {
			filter.PublishedOnly = true
		}
		galleries, err := stores.GalleryStore.List(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, galleries)

	case "POST":
		sess, ok := requireOrganizer(w, r)
		if !ok {
			return
		}
		var body struct {
			ID          string
			Title       string
			Slug        string
			Description string
			EventID     string
			ExpiryDate  string
			Published   bool
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		var expiry time.Time
		if body.ExpiryDate != "" {
			var err error
			expiry, err = parseTimeParam(body.ExpiryDate)
			if err != nil {
				http.Error(w, "invalid expiry date", http.StatusBadRequest)
				return
			}
		}

		g, err := orchestrators.ExecuteSaveGallery(ctx, orchestrators.SaveGalleryInput{
			ID:          body.ID,
			ActorID:     sess.AccountID,
			Title:       body.Title,
			Slug:        body.Slug,
			Description: body.Description,
			EventID:     body.EventID,
			ExpiryDate:  expiry,
			Published:   body.Published,
		}, orchestrators.SaveGalleryDeps{
			GalleryStore: stores.GalleryStore,
			AccountStore: stores.AccountStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, orchestrators.ErrGallerySlugTaken) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, g)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleGalleryByID handles /api/galleries/{id} and its photos.
// Routes: GET /api/galleries/{id}, GET/POST /api/galleries/{id}/photos,
// DELETE /api/galleries/{id}/photos/{photoID}
func handleGalleryByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	galleryID := parts[2]

	if len(parts) == 3 {
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		g, err := stores.GalleryStore.GetByID(ctx, galleryID)
		if err != nil {
			http.Error(w, "gallery not found", http.StatusNotFound)
			return
		}
		if !g.Published && !middleware.IsOrganizerOrAdmin(ctx) {
			http.Error(w, "gallery not found", http.StatusNotFound)
			return
		}
		photos, err := stores.GalleryStore.ListPhotos(ctx, galleryID)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, map[string]any{"gallery": g, "photos": photos})
		return
	}

	if parts[3] != "photos" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 4 && r.Method == "POST":
		sess, ok := requireOrganizer(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadBytes)
		if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
			http.Error(w, "invalid multipart upload", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "photo file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		sortOrder := 0
		fmt.Sscanf(r.FormValue("sort_order"), "%d", &sortOrder)

		p, err := orchestrators.ExecuteAddPhoto(ctx, orchestrators.AddPhotoInput{
			GalleryID: galleryID,
			ActorID:   sess.AccountID,
			Caption:   r.FormValue("caption"),
			SortOrder: sortOrder,
			Extension: strings.ToLower(filepath.Ext(header.Filename)),
			File:      file,
		}, orchestrators.AddPhotoDeps{
			GalleryStore: stores.GalleryStore,
			AccountStore: stores.AccountStore,
			FileStore:    stores.FileStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, p)

	case len(parts) == 5 && r.Method == "DELETE":
		sess, ok := requireOrganizer(w, r)
		if !ok {
			return
		}
		err := orchestrators.ExecuteRemovePhoto(ctx, orchestrators.RemovePhotoInput{
			GalleryID: galleryID,
			PhotoID:   parts[4],
			ActorID:   sess.AccountID,
		}, orchestrators.AddPhotoDeps{
			GalleryStore: stores.GalleryStore,
			AccountStore: stores.AccountStore,
			FileStore:    stores.FileStore,
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

// handleMedia handles GET /media/{key}: public photo files. Certificate
// documents use a different key prefix and are never served from here.
func handleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/media/")
	if !strings.HasPrefix(key, "photo-") || strings.Contains(key, "/") {
		http.NotFound(w, r)
		return
	}

	f, err := stores.FileStore.Open(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	switch filepath.Ext(key) {
	case ".png":
		w.Header().Set("Content-Type", "image/png")
	case ".gif":
		w.Header().Set("Content-Type", "image/gif")
	case ".webp":
		w.Header().Set("Content-Type", "image/webp")
	default:
		w.Header().Set("Content-Type", "image/jpeg")
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	io.Copy(w, f)
}
