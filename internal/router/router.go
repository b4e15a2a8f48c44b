package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shotbox/shotbox/internal/api"
	"github.com/shotbox/shotbox/internal/config"
	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/handler"
	"github.com/shotbox/shotbox/internal/ingest"
	"github.com/shotbox/shotbox/internal/moderation"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	DB     database.Database
	Config *config.Config
	Router chi.Router
}

// New creates a new Server with a fully configured chi router.
func New(db database.Database, ing *ingest.Service, mod *moderation.Service, cfg *config.Config) *Server {
	s := &Server{DB: db, Config: cfg}

	h := &handler.Handler{
		DB:         db,
		Ingest:     ing,
		Moderation: mod,
		Config:     cfg,
	}

	r := chi.NewRouter()

	// CORS — must be before other middleware to handle preflight OPTIONS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check (no auth required).
	r.Get("/health", s.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(api.IdentityMiddleware(db))

		// Public reads.
		r.Get("/shots", h.ListRecent)
		r.Get("/shots/top", h.ListTop)
		r.Get("/shots/{hash}", h.GetShot)
		r.Get("/search", h.Search)
		r.Get("/users/{username}/shots", h.UserShots)
		r.Get("/users/{username}/bookmarks", h.UserBookmarks)

		// Authenticated operations.
		r.Group(func(r chi.Router) {
			r.Use(api.RequireUser)

			r.Get("/me", h.Me)
			r.Get("/shots/flagged", h.ListFlagged)
			r.Post("/shots", h.SubmitShot)
			r.Delete("/shots/{hash}", h.DeleteShot)
			r.Post("/shots/{hash}/bookmark", h.ToggleBookmark)
			r.Post("/shots/{hash}/flag", h.ToggleFlag)
		})
	})

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}
