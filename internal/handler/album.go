package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/music-server/internal/service"
)

// AlbumHandler serves GET /api/albums and GET /api/albums/{albumId}.
type AlbumHandler struct {
	albums *service.AlbumService
	errs   *Errors
}

func NewAlbumHandler(albums *service.AlbumService, errs *Errors) *AlbumHandler {
	return &AlbumHandler{albums: albums, errs: errs}
}

func (h *AlbumHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albums.List(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// HandleGet returns the album with a "songs" array resolved in album order.
func (h *AlbumHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.albums.GetDetail(r.Context(), chi.URLParam(r, "albumId"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
