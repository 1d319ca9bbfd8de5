package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/service"
	"github.com/sakif/music-server/internal/upload"
)

// AdminHandler performs catalogue writes. Every route sits behind
// RequireAuth + RequireAdmin, and the create routes behind the upload
// middleware, which has already streamed the multipart body to temp files.
//
// HTTP:
//
//	GET    /api/admin/check        → {"admin": true}
//	POST   /api/admin/songs        → multipart: title, artist, albumId?, duration, audioFile, imageFile
//	DELETE /api/admin/songs/{id}
//	POST   /api/admin/albums       → multipart: title, artist, releaseYear, imageFile
//	DELETE /api/admin/albums/{id}
type AdminHandler struct {
	catalog *service.CatalogService
	errs    *Errors
}

func NewAdminHandler(catalog *service.CatalogService, errs *Errors) *AdminHandler {
	return &AdminHandler{catalog: catalog, errs: errs}
}

// HandleCheck only runs if RequireAdmin let the request through.
func (h *AdminHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"admin": true})
}

func (h *AdminHandler) HandleCreateSong(w http.ResponseWriter, r *http.Request) {
	// nil when the body was not multipart; the service then reports the
	// missing files.
	form := upload.FormFromContext(r.Context())

	duration, err := formSeconds(form, "duration")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	song, err := h.catalog.CreateSong(r.Context(), service.CreateSongInput{
		Title:    form.Value("title"),
		Artist:   form.Value("artist"),
		AlbumID:  form.Value("albumId"),
		Duration: duration,
		Audio:    form.File("audioFile"),
		Image:    form.File("imageFile"),
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (h *AdminHandler) HandleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteSong(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Song deleted successfully"})
}

func (h *AdminHandler) HandleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	form := upload.FormFromContext(r.Context())

	year, err := formInt(form, "releaseYear")
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	album, err := h.catalog.CreateAlbum(r.Context(), service.CreateAlbumInput{
		Title:       form.Value("title"),
		Artist:      form.Value("artist"),
		ReleaseYear: year,
		Image:       form.File("imageFile"),
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

func (h *AdminHandler) HandleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteAlbum(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Album deleted successfully"})
}

// formInt parses an integer form field. A missing field is 0 and is left to
// the validator; a malformed one is a validation error here.
func formInt(form *upload.Form, field string) (int, error) {
	raw := strings.TrimSpace(form.Value(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(field, field+" must be a whole number")
	}
	return n, nil
}

// formSeconds parses a duration in seconds. Fractions are accepted and
// rounded to the nearest second.
func formSeconds(form *upload.Form, field string) (int, error) {
	raw := strings.TrimSpace(form.Value(field))
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, apperror.ValidationFailed(field, field+" must be a number of seconds")
	}
	return int(math.Round(f)), nil
}
