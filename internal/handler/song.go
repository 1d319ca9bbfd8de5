package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/service"
)

// SongHandler serves the read side of /api/songs.
//
// HTTP:
//
//	GET /api/songs               → every song, newest first (admin)
//	GET /api/songs/featured      → 6 random cards
//	GET /api/songs/made-for-you  → 4 random cards
//	GET /api/songs/trending      → 4 random cards
//	GET /api/songs/{id}          → one song
type SongHandler struct {
	songs *service.SongService
	errs  *Errors
}

func NewSongHandler(songs *service.SongService, errs *Errors) *SongHandler {
	return &SongHandler{songs: songs, errs: errs}
}

func (h *SongHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.List(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *SongHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	song, err := h.songs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *SongHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	h.writeRail(w, r, h.songs.Featured)
}

func (h *SongHandler) HandleMadeForYou(w http.ResponseWriter, r *http.Request) {
	h.writeRail(w, r, h.songs.MadeForYou)
}

func (h *SongHandler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	h.writeRail(w, r, h.songs.Trending)
}

func (h *SongHandler) writeRail(w http.ResponseWriter, r *http.Request, rail func(context.Context) ([]model.SongCard, error)) {
	cards, err := rail(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}
