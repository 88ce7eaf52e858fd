package download

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"tubegate/internal/domain/download"
)

// ErrEmptyURL means the request carried no source URL. Rejected before
// any upstream call or artifact allocation.
var ErrEmptyURL = errors.New("missing source url")

// Service owns download use cases: unary metadata lookup and the stream
// relay that forks an upstream download stream into live client events
// and an on-disk artifact.
type Service struct {
	provider Provider
	store    ArtifactStore
	fileBase string
	logger   *slog.Logger
}

// NewService creates the download use-case service. fileBase is the
// public path prefix of the artifact retrieval endpoint, used to build
// the downloadUrl carried by the completed event.
func NewService(provider Provider, store ArtifactStore, fileBase string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		provider: provider,
		store:    store,
		fileBase: strings.TrimSuffix(fileBase, "/"),
		logger:   logger,
	}
}

// Metadata resolves title, duration and thumbnail for a source URL.
func (s *Service) Metadata(ctx context.Context, sourceURL string) (download.Metadata, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return download.Metadata{}, ErrEmptyURL
	}
	return s.provider.Metadata(ctx, sourceURL)
}

// Stream runs one relay session to its single terminal outcome:
//
//   - upstream end:   artifact finalized, one completed event
//   - upstream error: artifact deleted, one error event
//   - client gone:    upstream canceled, artifact deleted, no event
//
// All three paths resolve at this one call site, guarded by the
// session's settle transition. ErrEmptyURL is returned synchronously
// before any resource is acquired; every later failure is reported
// through the sink because the live channel is already open.
func (s *Service) Stream(ctx context.Context, sourceURL string, sink EventSink) error {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return ErrEmptyURL
	}

	// Canceling propagates to the upstream call on every early return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer, err := s.store.Create()
	if err != nil {
		s.logger.Error("artifact allocation failed", "url", sourceURL, "error", err)
		sink.Error("could not allocate storage for the download")
		return err
	}

	session := download.NewSession(sourceURL, writer.ID())
	log := s.logger.With("session", session.ID, "artifact", session.ArtifactID)
	log.Info("download session started", "url", sourceURL)

	stream, err := s.provider.OpenStream(ctx, sourceURL)
	if err != nil {
		session.Settle(download.StatusFailed)
		writer.Discard()
		log.Error("upstream open failed", "error", err)
		sink.Error(upstreamMessage(err))
		return err
	}
	defer stream.Close()

	for {
		msg, err := stream.Recv()
		if err != nil {
			return s.finish(ctx, session, writer, sink, log, err)
		}

		switch m := msg.(type) {
		case download.ProgressUpdate:
			if err := sink.Progress(m); err != nil {
				// Client is gone; nothing left to notify.
				if session.Settle(download.StatusAborted) {
					cancel()
					writer.Discard()
					log.Info("client disconnected, session aborted",
						"bytes_written", session.BytesWritten())
				}
				return nil
			}
		case download.PayloadChunk:
			if _, err := writer.Write(m.Data); err != nil {
				if session.Settle(download.StatusFailed) {
					cancel()
					writer.Discard()
					log.Error("artifact write failed", "error", err)
					sink.Error("could not persist the download")
				}
				return err
			}
			session.AddBytes(len(m.Data))
		default:
			err := errors.New("unknown upstream message kind")
			if session.Settle(download.StatusFailed) {
				cancel()
				writer.Discard()
				log.Error("relay stopped", "error", err)
				sink.Error(upstreamMessage(err))
			}
			return err
		}
	}
}

// finish resolves the terminal outcome after Recv stopped yielding
// messages. Exactly one of the three paths runs; the settle guard keeps
// a lost race from emitting or deleting twice.
func (s *Service) finish(ctx context.Context, session *download.Session, writer ArtifactWriter, sink EventSink, log *slog.Logger, recvErr error) error {
	// Disconnect races ahead of natural completion: the client context
	// is gone, so even a fully transferred payload has no recipient.
	if ctx.Err() != nil {
		if session.Settle(download.StatusAborted) {
			writer.Discard()
			log.Info("client disconnected, session aborted",
				"bytes_written", session.BytesWritten())
		}
		return nil
	}

	if errors.Is(recvErr, io.EOF) {
		if err := writer.Finalize(); err != nil {
			if session.Settle(download.StatusFailed) {
				writer.Discard()
				log.Error("artifact finalize failed", "error", err)
				sink.Error("could not persist the download")
			}
			return err
		}
		if !session.Settle(download.StatusCompleted) {
			// A racing settle owns cleanup; just release our claim.
			return nil
		}
		log.Info("download session completed", "bytes_written", session.BytesWritten())
		if err := sink.Completed(s.fileBase + "/" + session.ArtifactID); err != nil {
			// Client vanished between the last chunk and the terminal
			// event. The artifact stays until retrieval or cleanup.
			log.Warn("completed event not delivered", "error", err)
		}
		return nil
	}

	if session.Settle(download.StatusFailed) {
		writer.Discard()
		log.Error("upstream stream failed", "error", recvErr)
		sink.Error(upstreamMessage(recvErr))
	}
	return recvErr
}

// upstreamMessage extracts the human-readable message for the error
// event. Upstream failures carry their own text; anything else gets a
// generic message so internal details stay out of the client stream.
func upstreamMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	return "the download failed on the server"
}
