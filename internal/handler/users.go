package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shotbox/shotbox/internal/api"
)

// Me handles GET /api/me -- the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(api.GetUser(r.Context())))
}

// UserShots handles GET /api/users/{username}/shots.
func (h *Handler) UserShots(w http.ResponseWriter, r *http.Request) {
	user, err := h.DB.GetUserByUsername(chi.URLParam(r, "username"))
	if err != nil {
		api.NotFound(w, "user not found")
		return
	}

	p := page(r)
	shots, total, err := h.DB.UserShots(user.ID, h.Config.PageSize, h.Config.PageSize*(p-1))
	if err != nil {
		api.Internal(w, "failed to list shots")
		return
	}
	h.writeShotPage(w, shots, total, p)
}

// UserBookmarks handles GET /api/users/{username}/bookmarks.
func (h *Handler) UserBookmarks(w http.ResponseWriter, r *http.Request) {
	user, err := h.DB.GetUserByUsername(chi.URLParam(r, "username"))
	if err != nil {
		api.NotFound(w, "user not found")
		return
	}

	p := page(r)
	shots, total, err := h.DB.UserBookmarks(user.ID, h.Config.PageSize, h.Config.PageSize*(p-1))
	if err != nil {
		api.Internal(w, "failed to list bookmarks")
		return
	}
	h.writeShotPage(w, shots, total, p)
}
