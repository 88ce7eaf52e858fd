package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/cors"

	appdownload "tubegate/internal/application/download"
	appplaylist "tubegate/internal/application/playlist"
	"tubegate/internal/config"
	"tubegate/internal/infrastructure/artifact"
	"tubegate/internal/infrastructure/fetchd"
	"tubegate/internal/infrastructure/sqlite"
	httptransport "tubegate/internal/transport/http"
)

// artifactCreator narrows the store to the writer-producing port the
// download service consumes.
type artifactCreator struct {
	store *artifact.Store
}

func (c artifactCreator) Create() (appdownload.ArtifactWriter, error) {
	return c.store.Create()
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := config.Load()

	store := artifact.NewStore(cfg.ArtifactDir)
	if err := store.EnsureDir(); err != nil {
		logger.Error("artifact storage init failed", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		logger.Error("database dir init failed", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	repo, err := sqlite.NewPlaylistRepository(cfg.DatabasePath, cfg.DBPoolSize, logger)
	if err != nil {
		logger.Error("database init failed", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	fetcher := fetchd.NewClient(cfg.FetchdURL, logger)

	downloadService := appdownload.NewService(fetcher, artifactCreator{store: store}, "/downloads/file", logger)
	playlistService := appplaylist.NewService(repo, fetcher, logger)

	handler := httptransport.NewHandler(downloadService, playlistService, store, logger)
	router := httptransport.NewRouter(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", cfg.ServerAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}
