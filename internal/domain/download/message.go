package download

// Message is one frame of an upstream download stream. A frame is either
// a progress notification or a payload chunk, never both; consumers
// dispatch with a type switch over the two variants.
type Message interface {
	message()
}

// ProgressUpdate reports transfer progress. Forwarded to the client,
// never written to the artifact.
type ProgressUpdate struct {
	BytesDownloaded int64
	TotalBytes      int64
}

// PayloadChunk carries artifact bytes. Appended to the artifact in
// arrival order, never forwarded to the client.
type PayloadChunk struct {
	Data []byte
}

func (ProgressUpdate) message() {}
func (PayloadChunk) message()   {}
