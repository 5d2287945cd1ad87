// Package sink implements the memory-or-disk capture target the response
// reader streams a decoded body into: an in-memory buffer up to a configured
// threshold, spilling to a temp file for larger payloads. It also tracks
// running MD5/SHA-256 digests of the decoded stream, for verifying a
// server's RFC 3230 Digest response header once the body completes.
package sink

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/gofetch/gofetch/pkg/errors"
)

// DefaultMemoryLimit is the default threshold before a Sink spills to disk.
const DefaultMemoryLimit = 4 * 1024 * 1024 // 4MB

// Sink accepts a decompressed/decoded body stream and stores it either in
// memory or, once it grows past its limit, in a temp file. It satisfies
// io.Writer so pkg/reader can hand it directly to a decompressor as the
// destination of a push-stream.
type Sink struct {
	buf    bytes.Buffer
	file   *os.File
	path   string
	size   int64
	limit  int64
	mu     sync.Mutex
	closed bool

	md5    hash.Hash
	sha256 hash.Hash
}

// New creates a Sink with the given memory limit (DefaultMemoryLimit if
// limit is non-positive).
func New(limit int64) *Sink {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Sink{
		limit:  limit,
		md5:    md5.New(),
		sha256: sha256.New(),
	}
}

// Write stores p, spilling to disk once the accumulated size exceeds the
// sink's memory limit, and folds p into the running content digests.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.NewIOError("sink is closed", nil)
	}

	s.size += int64(len(p))
	s.md5.Write(p)
	s.sha256.Write(p)

	if s.file == nil && int64(s.buf.Len()+len(p)) <= s.limit {
		return s.buf.Write(p)
	}

	if s.file == nil {
		tmp, err := os.CreateTemp("", "gofetch-body-*.tmp")
		if err != nil {
			return 0, errors.NewIOError("creating temp file", err)
		}
		s.file = tmp
		s.path = tmp.Name()

		if s.buf.Len() > 0 {
			if _, err := tmp.Write(s.buf.Bytes()); err != nil {
				s.closeLocked()
				return 0, errors.NewIOError("writing to temp file", err)
			}
		}
		s.buf.Reset()
	}

	n, err := s.file.Write(p)
	if err != nil {
		return n, errors.NewIOError("writing to temp file", err)
	}
	return n, nil
}

// Bytes returns the in-memory payload. It is empty once the sink has
// spilled to disk; callers that need the data regardless of spill state
// should use Reader instead.
func (s *Sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return nil
	}
	return s.buf.Bytes()
}

// Path returns the backing temp file path, or "" if the sink has not spilled.
func (s *Sink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Size returns the total number of bytes written so far.
func (s *Sink) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Spilled reports whether the payload has moved to disk.
func (s *Sink) Spilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

// Reader returns a fresh reader over the stored payload, from memory or
// from the spilled file.
func (s *Sink) Reader() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.NewIOError("sink is closed", nil)
	}

	if s.file != nil {
		if err := s.file.Sync(); err != nil {
			return nil, errors.NewIOError("syncing temp file", err)
		}
		f, err := os.Open(s.path)
		if err != nil {
			return nil, errors.NewIOError("opening temp file for reading", err)
		}
		return f, nil
	}

	return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
}

// Close releases the backing temp file, if any. Idempotent and safe for
// concurrent calls.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Sink) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.file != nil {
		err := s.file.Close()
		if removeErr := os.Remove(s.path); removeErr != nil && err == nil {
			err = errors.NewIOError("removing temp file", removeErr)
		}
		s.file = nil
		s.path = ""
		if err != nil {
			return errors.NewIOError("closing temp file", err)
		}
	}
	return nil
}

// Reset clears the sink and prepares it for reuse.
func (s *Sink) Reset() error {
	if err := s.Close(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	s.size = 0
	s.closed = false
	s.md5 = md5.New()
	s.sha256 = sha256.New()
	return nil
}

// Sums returns the base64-encoded MD5 and SHA-256 digests of everything
// written so far, keyed by the algorithm name an RFC 3230 Digest header
// uses ("MD5", "SHA-256"). Safe to call before or after Close.
func (s *Sink) Sums() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]string{
		"MD5":     base64.StdEncoding.EncodeToString(s.md5.Sum(nil)),
		"SHA-256": base64.StdEncoding.EncodeToString(s.sha256.Sum(nil)),
	}
}
