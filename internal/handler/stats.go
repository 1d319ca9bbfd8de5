package handler

import (
	"net/http"

	"github.com/sakif/music-server/internal/service"
)

type StatsHandler struct {
	stats *service.StatsService
	errs  *Errors
}

func NewStatsHandler(stats *service.StatsService, errs *Errors) *StatsHandler {
	return &StatsHandler{stats: stats, errs: errs}
}

// HandleGet: GET /api/stats → {"totalSongs":…, "totalUsers":…, "totalAlbums":…, "totalArtists":…}
func (h *StatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Get(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
