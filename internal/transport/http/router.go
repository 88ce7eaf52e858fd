package http

import (
	"github.com/gorilla/mux"
)

// NewRouter configures the HTTP routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/downloads", handler.StartDownload).Methods("GET")
	r.HandleFunc("/downloads/metadata", handler.VideoMetadata).Methods("GET")
	r.HandleFunc("/downloads/file/{artifactId}", handler.ServeArtifact).Methods("GET")

	// Video routes come before /playlists/{id} so "videos" is never
	// captured as a playlist id.
	r.HandleFunc("/playlists/videos/{playlistId}", handler.AddVideo).Methods("POST")
	r.HandleFunc("/playlists/videos/{videoId}", handler.GetVideo).Methods("GET")
	r.HandleFunc("/playlists/videos/{videoId}", handler.DeleteVideo).Methods("DELETE")

	r.HandleFunc("/playlists", handler.CreatePlaylist).Methods("POST")
	r.HandleFunc("/playlists", handler.ListPlaylists).Methods("GET")
	r.HandleFunc("/playlists/{id}", handler.GetPlaylist).Methods("GET")
	r.HandleFunc("/playlists/{id}", handler.UpdatePlaylist).Methods("PATCH")
	r.HandleFunc("/playlists/{id}", handler.DeletePlaylist).Methods("DELETE")

	r.HandleFunc("/health", handler.Health).Methods("GET")
	return r
}
