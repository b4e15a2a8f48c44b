package handler

import (
	"net/http"

	"github.com/shotbox/shotbox/internal/api"
	"github.com/shotbox/shotbox/internal/textnorm"
)

// Search handles GET /api/search?q= -- free-text caption search. The query is
// normalized through the same pipeline as captions, so a kana query finds
// shots captioned in romaji and vice versa.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	key := textnorm.Normalize(r.URL.Query().Get("q"))
	if key == "" {
		api.BadRequest(w, "missing or empty query")
		return
	}

	p := page(r)
	shots, total, err := h.DB.SearchShots(key, h.Config.PageSize, h.Config.PageSize*(p-1))
	if err != nil {
		api.Internal(w, "search failed")
		return
	}
	h.writeShotPage(w, shots, total, p)
}
