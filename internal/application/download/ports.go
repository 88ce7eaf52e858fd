package download

import (
	"context"
	"fmt"
	"io"

	"tubegate/internal/domain/download"
)

// Provider is an application port for the upstream media daemon: unary
// metadata lookup plus the server-streaming download call.
type Provider interface {
	Metadata(ctx context.Context, sourceURL string) (download.Metadata, error)
	OpenStream(ctx context.Context, sourceURL string) (Stream, error)
}

// Stream is one server-streaming download call in progress. Recv returns
// messages in upstream order and io.EOF at natural end of stream. Close
// releases the call; it must be safe after Recv returned an error.
type Stream interface {
	Recv() (download.Message, error)
	Close() error
}

// EventSink is the client-facing live event channel. A send error means
// the client is gone; the relay treats it as a disconnect.
type EventSink interface {
	Progress(update download.ProgressUpdate) error
	Completed(downloadURL string) error
	Error(message string) error
}

// ArtifactWriter is the write side of one artifact, owned by a single
// relay session until Finalize or Discard.
type ArtifactWriter interface {
	io.Writer
	ID() string
	Finalize() error
	Discard() error
}

// ArtifactStore is an application port for allocating artifacts.
type ArtifactStore interface {
	Create() (ArtifactWriter, error)
}

// UpstreamError is a failure reported by the provider, carrying the
// human-readable message forwarded to the live channel.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream failure (status %d): %s", e.Status, e.Message)
	}
	return "upstream failure: " + e.Message
}
