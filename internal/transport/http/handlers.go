package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	appdownload "tubegate/internal/application/download"
	appplaylist "tubegate/internal/application/playlist"
	downloaddomain "tubegate/internal/domain/download"
	playlistdomain "tubegate/internal/domain/playlist"
	"tubegate/internal/infrastructure/artifact"
)

type downloadUseCases interface {
	Metadata(ctx context.Context, sourceURL string) (downloaddomain.Metadata, error)
	Stream(ctx context.Context, sourceURL string, sink appdownload.EventSink) error
}

type playlistUseCases interface {
	Create(ctx context.Context, name string) (playlistdomain.Playlist, error)
	List(ctx context.Context) ([]playlistdomain.Playlist, error)
	Get(ctx context.Context, id string) (playlistdomain.Playlist, error)
	Rename(ctx context.Context, id, name string) (playlistdomain.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, url string) (playlistdomain.Video, error)
	GetVideo(ctx context.Context, id string) (playlistdomain.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

type artifactFiles interface {
	Open(id string) (*os.File, int64, error)
	Remove(id string) error
}

// Handler wires HTTP handlers with application use cases.
type Handler struct {
	downloads downloadUseCases
	playlists playlistUseCases
	files     artifactFiles
	logger    *slog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(downloads downloadUseCases, playlists playlistUseCases, files artifactFiles, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{downloads: downloads, playlists: playlists, files: files, logger: logger}
}

// StartDownload handles GET /downloads. The response is a live event
// stream; once its headers are sent, all reporting happens through
// events on that stream.
func (h *Handler) StartDownload(w http.ResponseWriter, r *http.Request) {
	sourceURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, `the "url" query parameter is required`)
		return
	}

	sink, err := newEventStream(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.downloads.Stream(r.Context(), sourceURL, sink); err != nil {
		// Already reported on the stream; log for correlation only.
		h.logger.Warn("download stream ended with error", "url", sourceURL, "error", err)
	}
}

// VideoMetadata handles GET /downloads/metadata.
func (h *Handler) VideoMetadata(w http.ResponseWriter, r *http.Request) {
	sourceURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, `the "url" query parameter is required`)
		return
	}

	meta, err := h.downloads.Metadata(r.Context(), sourceURL)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// ServeArtifact handles GET /downloads/file/{artifactId}: one retrieval
// per artifact. The file is removed once a transfer was attempted,
// whether or not it succeeded.
func (h *Handler) ServeArtifact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["artifactId"]
	if !downloaddomain.ValidArtifactID(id) {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	file, size, err := h.files.Open(id)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found or already retrieved")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		file.Close()
		if err := h.files.Remove(id); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			h.logger.Error("artifact cleanup failed", "artifact", id, "error", err)
		}
	}()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`"`)

	if _, err := io.Copy(w, file); err != nil {
		// Client went away mid-transfer. The deferred cleanup still
		// removes the artifact: retrieval is single-shot by policy.
		h.logger.Warn("artifact transfer interrupted", "artifact", id, "error", err)
	}
}

// CreatePlaylist handles POST /playlists.
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.playlists.Create(r.Context(), body.Name)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "playlist created", "data": created})
}

// ListPlaylists handles GET /playlists.
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.List(r.Context())
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": playlists})
}

// GetPlaylist handles GET /playlists/{id}.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	found, err := h.playlists.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": found})
}

// UpdatePlaylist handles PATCH /playlists/{id}.
func (h *Handler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.playlists.Rename(r.Context(), mux.Vars(r)["id"], body.Name)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "playlist updated", "data": updated})
}

// DeletePlaylist handles DELETE /playlists/{id}.
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.playlists.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "playlist deleted"})
}

// AddVideo handles POST /playlists/videos/{playlistId}.
func (h *Handler) AddVideo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	video, err := h.playlists.AddVideo(r.Context(), mux.Vars(r)["playlistId"], body.URL)
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "video added to playlist", "data": video})
}

// GetVideo handles GET /playlists/videos/{videoId}.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.playlists.GetVideo(r.Context(), mux.Vars(r)["videoId"])
	if err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": video})
}

// DeleteVideo handles DELETE /playlists/videos/{videoId}.
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := h.playlists.DeleteVideo(r.Context(), mux.Vars(r)["videoId"]); err != nil {
		h.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "video removed from playlist"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeMappedError translates application and upstream errors into
// client-facing status codes.
func (h *Handler) writeMappedError(w http.ResponseWriter, err error) {
	var upstream *appdownload.UpstreamError
	switch {
	case errors.Is(err, appplaylist.ErrInvalidInput), errors.Is(err, appdownload.ErrEmptyURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, playlistdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, playlistdomain.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	case errors.As(err, &upstream):
		if upstream.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, upstream.Message)
			return
		}
		writeError(w, http.StatusBadGateway, upstream.Message)
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
