package playlist

import "errors"

var (
	// ErrNotFound means the playlist or video does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a uniqueness rule was violated: playlist names
	// are unique, and a video URL appears at most once per playlist.
	ErrDuplicate = errors.New("already exists")
)

// Playlist is a named, ordered collection of videos.
type Playlist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Videos []Video `json:"videos"`
}

// Video is a remote video saved into a playlist together with the
// metadata resolved at the time it was added.
type Video struct {
	ID           string `json:"id"`
	PlaylistID   string `json:"playlist_id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
}
