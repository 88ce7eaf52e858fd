// Package sqlite persists playlists in a local SQLite database using a
// fixed-size connection pool with WAL journaling.
package sqlite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"tubegate/internal/domain/download"
	"tubegate/internal/domain/playlist"
)

const schema = `
CREATE TABLE IF NOT EXISTS playlists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
	id            TEXT PRIMARY KEY,
	playlist_id   TEXT NOT NULL,
	url           TEXT NOT NULL,
	title         TEXT NOT NULL,
	duration      INTEGER NOT NULL,
	thumbnail_url TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	UNIQUE(playlist_id, url)
);

CREATE INDEX IF NOT EXISTS videos_by_playlist ON videos(playlist_id, created_at);
`

// PlaylistRepository stores playlists and their videos. Safe for
// concurrent use; each call borrows one pooled connection.
type PlaylistRepository struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
}

// NewPlaylistRepository opens (and creates if needed) the database at
// path. Pass ":memory:" with poolSize 1 for tests. The caller must
// Close the repository.
func NewPlaylistRepository(path string, poolSize int, logger *slog.Logger) (*PlaylistRepository, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}

	logger.Info("playlist database opened", "path", path, "pool_size", poolSize)
	return &PlaylistRepository{pool: pool, logger: logger}, nil
}

// prepareConn applies pragmas and the schema once per pooled connection.
func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite: applying schema: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (r *PlaylistRepository) Close() error {
	return r.pool.Close()
}

// CreatePlaylist inserts a new playlist with a generated id.
func (r *PlaylistRepository) CreatePlaylist(ctx context.Context, name string) (playlist.Playlist, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return playlist.Playlist{}, err
	}
	defer r.pool.Put(conn)

	id := uuid.NewString()
	err = sqlitex.Execute(conn,
		`INSERT INTO playlists (id, name, created_at) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{id, name, time.Now().Unix()}})
	if err != nil {
		if isUniqueViolation(err) {
			return playlist.Playlist{}, playlist.ErrDuplicate
		}
		return playlist.Playlist{}, fmt.Errorf("sqlite: insert playlist: %w", err)
	}

	return playlist.Playlist{ID: id, Name: name, Videos: []playlist.Video{}}, nil
}

// ListPlaylists returns every playlist with its videos, newest playlist
// first.
func (r *PlaylistRepository) ListPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	playlists := []playlist.Playlist{}
	err = sqlitex.Execute(conn,
		`SELECT id, name FROM playlists ORDER BY created_at DESC, id DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				playlists = append(playlists, playlist.Playlist{
					ID:   stmt.ColumnText(0),
					Name: stmt.ColumnText(1),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlite: list playlists: %w", err)
	}

	for i := range playlists {
		videos, err := r.videosOf(conn, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Videos = videos
	}
	return playlists, nil
}

// GetPlaylist returns one playlist with its videos.
func (r *PlaylistRepository) GetPlaylist(ctx context.Context, id string) (playlist.Playlist, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return playlist.Playlist{}, err
	}
	defer r.pool.Put(conn)

	return r.playlistByID(conn, id)
}

func (r *PlaylistRepository) playlistByID(conn *sqlite.Conn, id string) (playlist.Playlist, error) {
	var found bool
	result := playlist.Playlist{}
	err := sqlitex.Execute(conn,
		`SELECT id, name FROM playlists WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				result.ID = stmt.ColumnText(0)
				result.Name = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return playlist.Playlist{}, fmt.Errorf("sqlite: get playlist: %w", err)
	}
	if !found {
		return playlist.Playlist{}, playlist.ErrNotFound
	}

	videos, err := r.videosOf(conn, id)
	if err != nil {
		return playlist.Playlist{}, err
	}
	result.Videos = videos
	return result, nil
}

// RenamePlaylist updates the playlist name and returns the fresh row.
func (r *PlaylistRepository) RenamePlaylist(ctx context.Context, id, name string) (playlist.Playlist, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return playlist.Playlist{}, err
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE playlists SET name = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{name, id}})
	if err != nil {
		if isUniqueViolation(err) {
			return playlist.Playlist{}, playlist.ErrDuplicate
		}
		return playlist.Playlist{}, fmt.Errorf("sqlite: rename playlist: %w", err)
	}
	if conn.Changes() == 0 {
		return playlist.Playlist{}, playlist.ErrNotFound
	}
	return r.playlistByID(conn, id)
}

// DeletePlaylist removes a playlist and all of its videos.
func (r *PlaylistRepository) DeletePlaylist(ctx context.Context, id string) (err error) {
	conn, takeErr := r.pool.Take(ctx)
	if takeErr != nil {
		return takeErr
	}
	defer r.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)

	if err = sqlitex.Execute(conn,
		`DELETE FROM videos WHERE playlist_id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
		return fmt.Errorf("sqlite: delete playlist videos: %w", err)
	}
	if err = sqlitex.Execute(conn,
		`DELETE FROM playlists WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
		return fmt.Errorf("sqlite: delete playlist: %w", err)
	}
	if conn.Changes() == 0 {
		return playlist.ErrNotFound
	}
	return nil
}

// AddVideo stores a video with its resolved metadata snapshot.
func (r *PlaylistRepository) AddVideo(ctx context.Context, playlistID, url string, meta download.Metadata) (playlist.Video, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return playlist.Video{}, err
	}
	defer r.pool.Put(conn)

	// The playlist must exist; foreign keys are managed explicitly.
	var exists bool
	err = sqlitex.Execute(conn,
		`SELECT 1 FROM playlists WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{playlistID},
			ResultFunc: func(*sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	if err != nil {
		return playlist.Video{}, fmt.Errorf("sqlite: check playlist: %w", err)
	}
	if !exists {
		return playlist.Video{}, playlist.ErrNotFound
	}

	video := playlist.Video{
		ID:           uuid.NewString(),
		PlaylistID:   playlistID,
		URL:          url,
		Title:        meta.Title,
		Duration:     meta.Duration,
		ThumbnailURL: meta.ThumbnailURL,
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO videos (id, playlist_id, url, title, duration, thumbnail_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			video.ID, video.PlaylistID, video.URL, video.Title,
			video.Duration, video.ThumbnailURL, time.Now().Unix(),
		}})
	if err != nil {
		if isUniqueViolation(err) {
			return playlist.Video{}, playlist.ErrDuplicate
		}
		return playlist.Video{}, fmt.Errorf("sqlite: insert video: %w", err)
	}
	return video, nil
}

// GetVideo returns one stored video.
func (r *PlaylistRepository) GetVideo(ctx context.Context, id string) (playlist.Video, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return playlist.Video{}, err
	}
	defer r.pool.Put(conn)

	var found bool
	var video playlist.Video
	err = sqlitex.Execute(conn,
		`SELECT id, playlist_id, url, title, duration, thumbnail_url FROM videos WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				video = scanVideo(stmt)
				return nil
			},
		})
	if err != nil {
		return playlist.Video{}, fmt.Errorf("sqlite: get video: %w", err)
	}
	if !found {
		return playlist.Video{}, playlist.ErrNotFound
	}
	return video, nil
}

// DeleteVideo removes one video from its playlist.
func (r *PlaylistRepository) DeleteVideo(ctx context.Context, id string) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM videos WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return fmt.Errorf("sqlite: delete video: %w", err)
	}
	if conn.Changes() == 0 {
		return playlist.ErrNotFound
	}
	return nil
}

func (r *PlaylistRepository) videosOf(conn *sqlite.Conn, playlistID string) ([]playlist.Video, error) {
	videos := []playlist.Video{}
	err := sqlitex.Execute(conn,
		`SELECT id, playlist_id, url, title, duration, thumbnail_url
		 FROM videos WHERE playlist_id = ? ORDER BY created_at, id`,
		&sqlitex.ExecOptions{
			Args: []any{playlistID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				videos = append(videos, scanVideo(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sqlite: list videos: %w", err)
	}
	return videos, nil
}

func scanVideo(stmt *sqlite.Stmt) playlist.Video {
	return playlist.Video{
		ID:           stmt.ColumnText(0),
		PlaylistID:   stmt.ColumnText(1),
		URL:          stmt.ColumnText(2),
		Title:        stmt.ColumnText(3),
		Duration:     stmt.ColumnInt(4),
		ThumbnailURL: stmt.ColumnText(5),
	}
}

func isUniqueViolation(err error) bool {
	code := sqlite.ErrCode(err)
	return code == sqlite.ResultConstraintUnique || code == sqlite.ResultConstraintPrimaryKey
}
