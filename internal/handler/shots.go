package handler

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/shotbox/shotbox/internal/api"
	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/ingest"
	"github.com/shotbox/shotbox/internal/model"
	"github.com/shotbox/shotbox/internal/moderation"
)

// SubmitShot handles POST /api/shots -- multipart upload of an image with a
// caption. The upload is spooled to a temp file and handed to the ingestion
// orchestrator.
func (h *Handler) SubmitShot(w http.ResponseWriter, r *http.Request) {
	user := api.GetUser(r.Context())
	if !user.CanUpload {
		api.Forbidden(w, "account is not allowed to upload")
		return
	}

	// MaxBytesReader enforces the cap on the wire; ParseMultipartForm's
	// argument only bounds in-memory spooling.
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.Config.MaxUploadBytes); err != nil {
		api.TooLarge(w, "invalid multipart form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		api.BadRequest(w, "missing required field: image")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "shotbox-upload-*")
	if err != nil {
		api.Internal(w, "failed to spool upload")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		api.Internal(w, "failed to spool upload")
		return
	}
	if err := tmp.Close(); err != nil {
		api.Internal(w, "failed to spool upload")
		return
	}

	shot, err := h.Ingest.Submit(r.Context(), user.ID, r.FormValue("text"), tmpPath)
	if err != nil {
		var valErr *ingest.ValidationError
		var dupErr *ingest.DuplicateError
		switch {
		case errors.As(err, &valErr):
			api.UnprocessableEntity(w, valErr.Reason)
		case errors.As(err, &dupErr):
			// Recoverable: hand the matches back so the client can offer a
			// "view duplicates" choice.
			api.Conflict(w, api.Response{
				Result:  map[string]interface{}{"duplicates": h.views(dupErr.Matches)},
				Success: false,
				Errors:  []api.Error{{Code: 9409, Message: dupErr.Error()}},
			})
		default:
			api.Internal(w, "submission failed")
		}
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(h.view(shot)))
}

// ListRecent handles GET /api/shots.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	p := page(r)
	shots, total, err := h.DB.RecentShots(h.Config.PageSize, h.Config.PageSize*(p-1))
	if err != nil {
		api.Internal(w, "failed to list shots")
		return
	}
	h.writeShotPage(w, shots, total, p)
}

// ListTop handles GET /api/shots/top -- shots with at least one bookmark.
func (h *Handler) ListTop(w http.ResponseWriter, r *http.Request) {
	p := page(r)
	shots, total, err := h.DB.TopShots(h.Config.PageSize, h.Config.PageSize*(p-1))
	if err != nil {
		api.Internal(w, "failed to list shots")
		return
	}
	h.writeShotPage(w, shots, total, p)
}

// ListFlagged handles GET /api/shots/flagged -- the moderation queue.
func (h *Handler) ListFlagged(w http.ResponseWriter, r *http.Request) {
	user := api.GetUser(r.Context())
	if !user.IsMod {
		api.Forbidden(w, "moderators only")
		return
	}

	p := page(r)
	shots, total, err := h.DB.FlaggedShots(h.Config.PageSize, h.Config.PageSize*(p-1))
	if err != nil {
		api.Internal(w, "failed to list shots")
		return
	}
	h.writeShotPage(w, shots, total, p)
}

// GetShot handles GET /api/shots/{hash}.
func (h *Handler) GetShot(w http.ResponseWriter, r *http.Request) {
	shot, err := h.DB.GetShotByHash(chi.URLParam(r, "hash"))
	if err != nil {
		api.NotFound(w, "shot not found")
		return
	}
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(h.view(shot)))
}

// DeleteShot handles DELETE /api/shots/{hash}. Owners and moderators only.
func (h *Handler) DeleteShot(w http.ResponseWriter, r *http.Request) {
	user := api.GetUser(r.Context())

	shot, err := h.DB.GetShotByHash(chi.URLParam(r, "hash"))
	if err != nil {
		api.NotFound(w, "shot not found")
		return
	}

	if err := h.Moderation.DeleteShot(user, shot.ID); err != nil {
		switch {
		case errors.Is(err, moderation.ErrForbidden):
			api.Forbidden(w, "not allowed to delete this shot")
		case errors.Is(err, database.ErrNotFound):
			api.NotFound(w, "shot not found")
		default:
			api.Internal(w, "failed to delete shot")
		}
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(struct{}{}))
}

// ToggleBookmark handles POST /api/shots/{hash}/bookmark.
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Moderation.Bookmark)
}

// ToggleFlag handles POST /api/shots/{hash}/flag.
func (h *Handler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Moderation.Flag)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, fn func(*model.User, int64) (*database.ToggleResult, error)) {
	user := api.GetUser(r.Context())

	shot, err := h.DB.GetShotByHash(chi.URLParam(r, "hash"))
	if err != nil {
		api.NotFound(w, "shot not found")
		return
	}

	res, err := fn(user, shot.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			api.NotFound(w, "shot not found")
			return
		}
		api.Internal(w, "failed to toggle")
		return
	}

	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(map[string]interface{}{
		"present": res.Present,
		"count":   res.Count,
	}))
}
