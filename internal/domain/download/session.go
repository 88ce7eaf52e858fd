package download

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Status describes the lifecycle of a download session.
type Status int32

const (
	StatusActive Status = iota
	StatusCompleted
	StatusFailed
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a settled outcome.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// Session tracks one in-flight download. It leaves StatusActive exactly
// once: Settle performs a compare-and-swap so a race between client
// disconnect and upstream completion cannot produce two terminal actions.
type Session struct {
	ID         string
	SourceURL  string
	ArtifactID string

	status       atomic.Int32
	bytesWritten atomic.Int64
}

// NewSession starts an active session for the given source URL and
// artifact. The session ID is used only for log correlation.
func NewSession(sourceURL, artifactID string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		SourceURL:  sourceURL,
		ArtifactID: artifactID,
	}
}

// Settle transitions the session out of StatusActive. It returns true if
// this call won the transition, false if the session was already settled
// or the target is not terminal. The losing side must not emit events or
// touch the artifact.
func (s *Session) Settle(to Status) bool {
	if !to.Terminal() {
		return false
	}
	return s.status.CompareAndSwap(int32(StatusActive), int32(to))
}

// Status returns the current session status.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// AddBytes records payload bytes appended to the artifact. Advisory only.
func (s *Session) AddBytes(n int) {
	s.bytesWritten.Add(int64(n))
}

// BytesWritten returns the advisory payload byte counter.
func (s *Session) BytesWritten() int64 {
	return s.bytesWritten.Load()
}
