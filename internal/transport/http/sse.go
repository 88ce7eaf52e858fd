package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tubegate/internal/domain/download"
)

// eventStream adapts an HTTP response into the relay's live event
// channel. Headers go out on construction; after that, every outcome is
// reported as an event on the open stream, never as a status code.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventStream{w: w, flusher: flusher}, nil
}

type progressEvent struct {
	Type            string `json:"type"`
	BytesDownloaded int64  `json:"bytes_downloaded"`
	TotalBytes      int64  `json:"total_bytes"`
}

type completedEvent struct {
	Type        string `json:"type"`
	DownloadURL string `json:"downloadUrl"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Progress forwards one progress notification, flushed immediately so
// the client sees it without transport buffering.
func (s *eventStream) Progress(update download.ProgressUpdate) error {
	return s.send(progressEvent{
		Type:            "progress",
		BytesDownloaded: update.BytesDownloaded,
		TotalBytes:      update.TotalBytes,
	})
}

// Completed delivers the terminal success event with the retrieval URL.
func (s *eventStream) Completed(downloadURL string) error {
	return s.send(completedEvent{Type: "completed", DownloadURL: downloadURL})
}

// Error delivers the terminal failure event.
func (s *eventStream) Error(message string) error {
	return s.send(errorEvent{Type: "error", Message: message})
}

func (s *eventStream) send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
