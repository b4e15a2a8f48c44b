package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/shotbox/shotbox/internal/config"
	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/derivative"
	"github.com/shotbox/shotbox/internal/ingest"
	"github.com/shotbox/shotbox/internal/moderation"
	"github.com/shotbox/shotbox/internal/router"
	"github.com/shotbox/shotbox/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := storage.NewFileSystem(cfg.UploadPath)
	pipe := derivative.NewPipeline(store, cfg.FullLadder)
	detector := ingest.NewDetector(db, cfg.DuplicateWindow)
	ing := ingest.NewService(db, store, pipe, detector, cfg.MinUploadBytes)
	mod := moderation.NewService(db, store)

	srv := router.New(db, ing, mod, cfg)

	slog.Info("starting server", "addr", cfg.ListenAddr, "full_ladder", cfg.FullLadder)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
