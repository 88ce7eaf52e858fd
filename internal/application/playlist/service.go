package playlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"tubegate/internal/domain/playlist"
)

// ErrInvalidInput means a required field was missing or blank.
var ErrInvalidInput = errors.New("invalid input")

// Service handles playlist use cases.
type Service struct {
	repo     Repository
	metadata MetadataSource
	logger   *slog.Logger
}

// NewService creates the playlist use-case service with injected ports.
func NewService(repo Repository, metadata MetadataSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, metadata: metadata, logger: logger}
}

// Create adds a new, empty playlist.
func (s *Service) Create(ctx context.Context, name string) (playlist.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return playlist.Playlist{}, ErrInvalidInput
	}
	return s.repo.CreatePlaylist(ctx, name)
}

// List returns all playlists with their videos, newest first.
func (s *Service) List(ctx context.Context) ([]playlist.Playlist, error) {
	return s.repo.ListPlaylists(ctx)
}

// Get returns one playlist with its videos.
func (s *Service) Get(ctx context.Context, id string) (playlist.Playlist, error) {
	if strings.TrimSpace(id) == "" {
		return playlist.Playlist{}, ErrInvalidInput
	}
	return s.repo.GetPlaylist(ctx, id)
}

// Rename updates a playlist name.
func (s *Service) Rename(ctx context.Context, id, name string) (playlist.Playlist, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(id) == "" || name == "" {
		return playlist.Playlist{}, ErrInvalidInput
	}
	return s.repo.RenamePlaylist(ctx, id, name)
}

// Delete removes a playlist and its videos.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	return s.repo.DeletePlaylist(ctx, id)
}

// AddVideo resolves metadata for the URL and stores the video in the
// playlist. The metadata snapshot is taken once, at add time.
func (s *Service) AddVideo(ctx context.Context, playlistID, url string) (playlist.Video, error) {
	url = strings.TrimSpace(url)
	if strings.TrimSpace(playlistID) == "" || url == "" {
		return playlist.Video{}, ErrInvalidInput
	}

	meta, err := s.metadata.Metadata(ctx, url)
	if err != nil {
		s.logger.Warn("metadata lookup failed", "playlist", playlistID, "url", url, "error", err)
		return playlist.Video{}, err
	}

	return s.repo.AddVideo(ctx, playlistID, url, meta)
}

// GetVideo returns one stored video.
func (s *Service) GetVideo(ctx context.Context, id string) (playlist.Video, error) {
	if strings.TrimSpace(id) == "" {
		return playlist.Video{}, ErrInvalidInput
	}
	return s.repo.GetVideo(ctx, id)
}

// DeleteVideo removes a video from its playlist.
func (s *Service) DeleteVideo(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteVideo(ctx, id)
}
