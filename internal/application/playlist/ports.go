package playlist

import (
	"context"

	"tubegate/internal/domain/download"
	"tubegate/internal/domain/playlist"
)

// Repository is an application port for playlist persistence.
type Repository interface {
	CreatePlaylist(ctx context.Context, name string) (playlist.Playlist, error)
	ListPlaylists(ctx context.Context) ([]playlist.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (playlist.Playlist, error)
	RenamePlaylist(ctx context.Context, id, name string) (playlist.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error

	AddVideo(ctx context.Context, playlistID, url string, meta download.Metadata) (playlist.Video, error)
	GetVideo(ctx context.Context, id string) (playlist.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

// MetadataSource resolves video metadata when a URL is added to a
// playlist. Satisfied by the download provider.
type MetadataSource interface {
	Metadata(ctx context.Context, sourceURL string) (download.Metadata, error)
}
