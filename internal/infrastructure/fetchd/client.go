// Package fetchd talks to the download daemon: a unary metadata lookup
// and a server-streaming download call carried over HTTP. The stream is
// newline-delimited JSON frames; payload bytes travel base64-encoded
// inside their frame.
package fetchd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	appdownload "tubegate/internal/application/download"
	"tubegate/internal/domain/download"
)

// Client is the HTTP adapter for the download daemon. It satisfies the
// application Provider port.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a daemon client for the given base URL. The
// underlying HTTP client has no overall timeout: download streams are
// long-lived, and cancellation comes from the request context.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 0, Transport: transport},
		logger:  logger,
	}
}

type metadataRequest struct {
	VideoURL string `json:"video_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Metadata resolves video metadata without downloading.
func (c *Client) Metadata(ctx context.Context, sourceURL string) (download.Metadata, error) {
	resp, err := c.post(ctx, "/metadata", sourceURL)
	if err != nil {
		return download.Metadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return download.Metadata{}, c.upstreamError(resp)
	}

	var meta download.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return download.Metadata{}, fmt.Errorf("fetchd: decoding metadata: %w", err)
	}
	return meta, nil
}

// OpenStream starts the server-streaming download call. The returned
// stream yields frames in arrival order; closing it (or canceling ctx)
// aborts the upstream transfer.
func (c *Client) OpenStream(ctx context.Context, sourceURL string) (appdownload.Stream, error) {
	resp, err := c.post(ctx, "/downloads", sourceURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.upstreamError(resp)
	}
	return &stream{
		body:   resp.Body,
		reader: bufio.NewReaderSize(resp.Body, 64<<10),
	}, nil
}

func (c *Client) post(ctx context.Context, path, sourceURL string) (*http.Response, error) {
	payload, err := json.Marshal(metadataRequest{VideoURL: sourceURL})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchd: %s: %w", path, err)
	}
	return resp, nil
}

// upstreamError maps a non-200 daemon response to an UpstreamError,
// preserving the daemon's error text when it sent one.
func (c *Client) upstreamError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := "download service error"
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	}
	c.logger.Warn("download daemon rejected request",
		"status", resp.StatusCode,
		"message", message,
	)
	return &appdownload.UpstreamError{Status: resp.StatusCode, Message: message}
}

// frame is one NDJSON line of the download stream.
type frame struct {
	Type            string `json:"type"`
	BytesDownloaded int64  `json:"bytes_downloaded"`
	TotalBytes      int64  `json:"total_bytes"`
	Data            []byte `json:"data"`
	Message         string `json:"message"`
}

type stream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Recv reads the next frame and maps it to a domain message. io.EOF
// after the last frame is the natural end of stream; an in-band error
// frame becomes an UpstreamError.
func (s *stream) Recv() (download.Message, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}

		var f frame
		if jsonErr := json.Unmarshal(trimmed, &f); jsonErr != nil {
			return nil, fmt.Errorf("fetchd: malformed frame: %w", jsonErr)
		}

		switch f.Type {
		case "progress":
			return download.ProgressUpdate{
				BytesDownloaded: f.BytesDownloaded,
				TotalBytes:      f.TotalBytes,
			}, nil
		case "payload":
			return download.PayloadChunk{Data: f.Data}, nil
		case "error":
			return nil, &appdownload.UpstreamError{Message: f.Message}
		default:
			return nil, fmt.Errorf("fetchd: unknown frame type %q", f.Type)
		}
	}
}

// Close aborts the call. The connection teardown is what propagates
// cancellation to the daemon mid-transfer.
func (s *stream) Close() error {
	return s.body.Close()
}
