package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"tubegate/internal/domain/download"
)

// scriptedStream replays a fixed sequence of messages and ends with
// finalErr (io.EOF for natural completion). Recv honors the context so a
// canceled session stops mid-script like a real upstream call.
type scriptedStream struct {
	ctx      context.Context
	messages []download.Message
	finalErr error
	closed   bool
}

func (s *scriptedStream) Recv() (download.Message, error) {
	if s.ctx != nil && s.ctx.Err() != nil {
		return nil, s.ctx.Err()
	}
	if len(s.messages) == 0 {
		return nil, s.finalErr
	}
	msg := s.messages[0]
	s.messages = s.messages[1:]
	return msg, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type stubProvider struct {
	stream  *scriptedStream
	openErr error
	opened  int
	meta    download.Metadata
	metaErr error
}

func (p *stubProvider) Metadata(_ context.Context, _ string) (download.Metadata, error) {
	return p.meta, p.metaErr
}

func (p *stubProvider) OpenStream(ctx context.Context, _ string) (Stream, error) {
	p.opened++
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.stream.ctx = ctx
	return p.stream, nil
}

// memWriter is an in-memory ArtifactWriter recording its lifecycle.
type memWriter struct {
	id        string
	buf       bytes.Buffer
	finalized bool
	discarded bool
	writeErr  error
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return w.buf.Write(p)
}

func (w *memWriter) ID() string      { return w.id }
func (w *memWriter) Finalize() error { w.finalized = true; return nil }
func (w *memWriter) Discard() error  { w.discarded = true; return nil }

type memStore struct {
	writer    *memWriter
	createErr error
}

func (s *memStore) Create() (ArtifactWriter, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.writer, nil
}

// recordingSink captures everything sent to the live channel. After
// failAfter progress events it starts returning an error, simulating a
// client disconnect.
type recordingSink struct {
	progress  []download.ProgressUpdate
	completed []string
	errors    []string
	failAfter int
}

func (s *recordingSink) Progress(update download.ProgressUpdate) error {
	if s.failAfter > 0 && len(s.progress) >= s.failAfter {
		return errors.New("broken pipe")
	}
	s.progress = append(s.progress, update)
	return nil
}

func (s *recordingSink) Completed(url string) error {
	s.completed = append(s.completed, url)
	return nil
}

func (s *recordingSink) Error(message string) error {
	s.errors = append(s.errors, message)
	return nil
}

func (s *recordingSink) terminalEvents() int {
	return len(s.completed) + len(s.errors)
}

func progressMsg(done, total int64) download.Message {
	return download.ProgressUpdate{BytesDownloaded: done, TotalBytes: total}
}

func payloadMsg(data string) download.Message {
	return download.PayloadChunk{Data: []byte(data)}
}

func TestStream_HappyPath(t *testing.T) {
	stream := &scriptedStream{
		messages: []download.Message{
			progressMsg(10, 100),
			progressMsg(40, 100),
			progressMsg(100, 100),
			payloadMsg("aaa"), payloadMsg("bbb"), payloadMsg("ccc"),
		},
		finalErr: io.EOF,
	}
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4"}
	sink := &recordingSink{}
	svc := NewService(&stubProvider{stream: stream}, &memStore{writer: writer}, "/downloads/file", nil)

	if err := svc.Stream(context.Background(), "https://example.com/v", sink); err != nil {
		t.Fatalf("expected clean completion, got %v", err)
	}

	if len(sink.progress) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(sink.progress))
	}
	if sink.progress[0].BytesDownloaded != 10 || sink.progress[2].BytesDownloaded != 100 {
		t.Fatalf("progress events out of order: %+v", sink.progress)
	}
	if sink.terminalEvents() != 1 || len(sink.completed) != 1 {
		t.Fatalf("expected exactly one completed event, got completed=%v errors=%v", sink.completed, sink.errors)
	}
	if sink.completed[0] != "/downloads/file/"+writer.id {
		t.Fatalf("unexpected download url %q", sink.completed[0])
	}
	if writer.buf.String() != "aaabbbccc" {
		t.Fatalf("artifact content %q does not match payload order", writer.buf.String())
	}
	if !writer.finalized || writer.discarded {
		t.Fatalf("expected finalized artifact, got finalized=%v discarded=%v", writer.finalized, writer.discarded)
	}
	if !stream.closed {
		t.Fatalf("expected upstream stream to be closed")
	}
}

func TestStream_EmptyURLBeforeAnyResource(t *testing.T) {
	provider := &stubProvider{stream: &scriptedStream{finalErr: io.EOF}}
	store := &memStore{writer: &memWriter{id: "x"}}
	sink := &recordingSink{}
	svc := NewService(provider, store, "/downloads/file", nil)

	for _, url := range []string{"", "   "} {
		if err := svc.Stream(context.Background(), url, sink); !errors.Is(err, ErrEmptyURL) {
			t.Fatalf("expected ErrEmptyURL for %q, got %v", url, err)
		}
	}
	if provider.opened != 0 {
		t.Fatalf("expected no upstream call, got %d", provider.opened)
	}
	if sink.terminalEvents() != 0 {
		t.Fatalf("expected no events, got completed=%v errors=%v", sink.completed, sink.errors)
	}
}

func TestStream_UpstreamFailureMidStream(t *testing.T) {
	upstream := &UpstreamError{Message: "video unavailable"}
	stream := &scriptedStream{
		messages: []download.Message{progressMsg(10, 100), payloadMsg("aaa")},
		finalErr: upstream,
	}
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4"}
	sink := &recordingSink{}
	svc := NewService(&stubProvider{stream: stream}, &memStore{writer: writer}, "/downloads/file", nil)

	err := svc.Stream(context.Background(), "https://example.com/v", sink)
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(sink.progress) != 1 {
		t.Fatalf("expected 1 progress event, got %d", len(sink.progress))
	}
	if sink.terminalEvents() != 1 || len(sink.errors) != 1 {
		t.Fatalf("expected exactly one error event, got completed=%v errors=%v", sink.completed, sink.errors)
	}
	if sink.errors[0] != "video unavailable" {
		t.Fatalf("expected upstream message to be forwarded, got %q", sink.errors[0])
	}
	if !writer.discarded || writer.finalized {
		t.Fatalf("expected discarded artifact, got finalized=%v discarded=%v", writer.finalized, writer.discarded)
	}
}

func TestStream_OpenFailure(t *testing.T) {
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4"}
	sink := &recordingSink{}
	svc := NewService(&stubProvider{openErr: &UpstreamError{Message: "daemon down"}}, &memStore{writer: writer}, "/downloads/file", nil)

	if err := svc.Stream(context.Background(), "https://example.com/v", sink); err == nil {
		t.Fatalf("expected error")
	}
	if len(sink.errors) != 1 || sink.errors[0] != "daemon down" {
		t.Fatalf("expected one error event with upstream message, got %v", sink.errors)
	}
	if !writer.discarded {
		t.Fatalf("expected pre-allocated artifact to be discarded")
	}
}

func TestStream_ClientDisconnectDuringProgress(t *testing.T) {
	stream := &scriptedStream{
		messages: []download.Message{
			progressMsg(10, 100),
			progressMsg(50, 100),
			payloadMsg("never-written"),
		},
		finalErr: io.EOF,
	}
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4"}
	sink := &recordingSink{failAfter: 1}
	svc := NewService(&stubProvider{stream: stream}, &memStore{writer: writer}, "/downloads/file", nil)

	if err := svc.Stream(context.Background(), "https://example.com/v", sink); err != nil {
		t.Fatalf("disconnect must not surface as an error, got %v", err)
	}
	if len(sink.progress) != 1 {
		t.Fatalf("expected 1 delivered progress event, got %d", len(sink.progress))
	}
	if sink.terminalEvents() != 0 {
		t.Fatalf("expected no terminal event after disconnect, got completed=%v errors=%v", sink.completed, sink.errors)
	}
	if !writer.discarded || writer.finalized {
		t.Fatalf("expected discarded artifact, got finalized=%v discarded=%v", writer.finalized, writer.discarded)
	}
}

func TestStream_ContextCanceledMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := &scriptedStream{
		messages: []download.Message{progressMsg(10, 100)},
		finalErr: io.EOF,
	}
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4"}
	svc := NewService(&stubProvider{stream: stream}, &memStore{writer: writer}, "/downloads/file", nil)

	// Cancel before the relay starts: the first Recv observes the dead
	// context, which is the same path a mid-transfer disconnect takes.
	cancel()
	sink := &recordingSink{}
	if err := svc.Stream(ctx, "https://example.com/v", sink); err != nil {
		t.Fatalf("canceled session must not surface as an error, got %v", err)
	}
	if sink.terminalEvents() != 0 {
		t.Fatalf("expected no terminal event, got completed=%v errors=%v", sink.completed, sink.errors)
	}
	if !writer.discarded {
		t.Fatalf("expected discarded artifact")
	}
}

func TestStream_DisconnectWinsOverUpstreamEnd(t *testing.T) {
	// The upstream ends cleanly, but the client context died first. The
	// session must abort: no completed event, artifact deleted.
	ctx, cancel := context.WithCancel(context.Background())
	stream := &scriptedStream{finalErr: io.EOF}
	// Recv would return io.EOF immediately; kill the context first so the
	// ctx check in the terminal path runs against a settled disconnect.
	stream.messages = []download.Message{payloadMsg("aaa")}
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4"}
	sink := &recordingSink{}
	svc := NewService(&stubProvider{stream: stream}, &memStore{writer: writer}, "/downloads/file", nil)

	cancel()
	if err := svc.Stream(ctx, "https://example.com/v", sink); err != nil {
		t.Fatalf("expected silent abort, got %v", err)
	}
	if sink.terminalEvents() != 0 {
		t.Fatalf("expected no terminal event, got completed=%v errors=%v", sink.completed, sink.errors)
	}
	if writer.finalized {
		t.Fatalf("artifact must not be finalized after abort")
	}
	if !writer.discarded {
		t.Fatalf("artifact must be deleted after abort")
	}
}

func TestStream_WriteFailure(t *testing.T) {
	stream := &scriptedStream{
		messages: []download.Message{payloadMsg("aaa")},
		finalErr: io.EOF,
	}
	writer := &memWriter{id: "0123456789abcdef0123456789abcdef.mp4", writeErr: errors.New("disk full")}
	sink := &recordingSink{}
	svc := NewService(&stubProvider{stream: stream}, &memStore{writer: writer}, "/downloads/file", nil)

	if err := svc.Stream(context.Background(), "https://example.com/v", sink); err == nil {
		t.Fatalf("expected write failure to surface")
	}
	if len(sink.errors) != 1 {
		t.Fatalf("expected one error event, got %v", sink.errors)
	}
	if !writer.discarded {
		t.Fatalf("expected discarded artifact")
	}
}

func TestMetadata(t *testing.T) {
	provider := &stubProvider{meta: download.Metadata{Title: "clip", Duration: 12}}
	svc := NewService(provider, &memStore{writer: &memWriter{}}, "/downloads/file", nil)

	meta, err := svc.Metadata(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Title != "clip" || meta.Duration != 12 {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	if _, err := svc.Metadata(context.Background(), " "); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
}
