package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shotbox/shotbox/internal/api"
	"github.com/shotbox/shotbox/internal/config"
	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/ingest"
	"github.com/shotbox/shotbox/internal/model"
	"github.com/shotbox/shotbox/internal/moderation"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	DB         database.Database
	Ingest     *ingest.Service
	Moderation *moderation.Service
	Config     *config.Config
}

// shotView augments a shot with its resolved image URLs, so clients never
// re-derive file locations from the hash and legacy flag themselves.
type shotView struct {
	*model.Shot
	Images []string `json:"images"`
}

func (h *Handler) view(s *model.Shot) shotView {
	base := strings.TrimRight(h.Config.BaseURL, "/")
	set := s.Image()
	urls := make([]string, 0, len(set.Files))
	for _, rel := range set.Files {
		urls = append(urls, fmt.Sprintf("%s/uploads/%s", base, rel))
	}
	return shotView{Shot: s, Images: urls}
}

func (h *Handler) views(shots []*model.Shot) []shotView {
	out := make([]shotView, 0, len(shots))
	for _, s := range shots {
		out = append(out, h.view(s))
	}
	return out
}

// page extracts the 1-based page query parameter.
func page(r *http.Request) int {
	p := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p = n
		}
	}
	return p
}

// writeShotPage writes a paginated shot listing in the standard envelope.
func (h *Handler) writeShotPage(w http.ResponseWriter, shots []*model.Shot, total, pageNum int) {
	perPage := h.Config.PageSize
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	info := api.ResultInfo{
		Page:       pageNum,
		PerPage:    perPage,
		Count:      len(shots),
		TotalCount: total,
		TotalPages: totalPages,
	}
	api.WriteJSON(w, http.StatusOK, api.PaginatedResponse(map[string]interface{}{"shots": h.views(shots)}, info))
}
