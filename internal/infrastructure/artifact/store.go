package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tubegate/internal/domain/download"
)

var (
	// ErrInvalidID means the identifier does not have the generated
	// shape. Returned before any filesystem access.
	ErrInvalidID = errors.New("invalid artifact id")
	// ErrNotFound means no artifact exists for the identifier. Never
	// produced, already consumed and expired are indistinguishable.
	ErrNotFound = errors.New("artifact not found")
)

// Store maps generated artifact identifiers to files under a single
// directory. Each artifact is owned by exactly one writer until
// finalized, so no locking is needed beyond unique identifiers.
type Store struct {
	dir string
}

// NewStore creates an artifact store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// EnsureDir creates the artifact directory. Called once at startup.
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// Dir returns the artifact directory root.
func (s *Store) Dir() string {
	return s.dir
}

// Create allocates a fresh artifact, open for append. The returned
// writer owns the file until Finalize or Discard.
func (s *Store) Create() (*Writer, error) {
	id := download.NewArtifactID()
	path := filepath.Join(s.dir, id)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return &Writer{id: id, path: path, file: file}, nil
}

// Open validates the identifier and opens the artifact for reading.
// Returns the open file and its size.
func (s *Store) Open(id string) (*os.File, int64, error) {
	if !download.ValidArtifactID(id) {
		return nil, 0, ErrInvalidID
	}
	file, err := os.Open(filepath.Join(s.dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	return file, info.Size(), nil
}

// Remove deletes the artifact for the identifier.
func (s *Store) Remove(id string) error {
	if !download.ValidArtifactID(id) {
		return ErrInvalidID
	}
	err := os.Remove(filepath.Join(s.dir, id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Writer appends payload bytes to one artifact. Exactly one of Finalize
// or Discard must be called; both release the file handle.
type Writer struct {
	id     string
	path   string
	file   *os.File
	size   int64
	closed bool
}

// ID returns the artifact identifier this writer owns.
func (w *Writer) ID() string {
	return w.id
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.size
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("artifact %s: write after close", w.id)
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Finalize flushes and closes the artifact, making it durable and
// retrievable. The write handle is released.
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("finalize artifact %s: %w", w.id, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("finalize artifact %s: %w", w.id, err)
	}
	return nil
}

// Discard closes and deletes an incomplete artifact. Safe to call more
// than once.
func (w *Writer) Discard() error {
	if !w.closed {
		w.closed = true
		w.file.Close()
	}
	err := os.Remove(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard artifact %s: %w", w.id, err)
	}
	return nil
}
