package media

import (
	"context"
	"errors"
	"sync"
)

// Frame is one captured photo.
type Frame struct {
	Data []byte
	MIME string
}

var (
	// ErrPermissionDenied means the user (or OS) refused camera access.
	// Distinct from ErrUnavailable so the UI can offer the right recovery.
	ErrPermissionDenied = errors.New("media: camera permission denied")
	// ErrUnavailable means no usable camera device was found.
	ErrUnavailable = errors.New("media: camera unavailable")
	// ErrSuperseded means a newer acquisition started before this one resolved.
	ErrSuperseded = errors.New("media: acquisition superseded")
	// ErrSessionClosed means the capture session was torn down.
	ErrSessionClosed = errors.New("media: session closed")
)

// Stream is a live camera feed.
type Stream interface {
	Capture(ctx context.Context) (Frame, error)
	Close() error
}

// CameraSource acquires a camera stream. Implementations map their platform's
// denial/unavailability failures onto ErrPermissionDenied and ErrUnavailable.
type CameraSource interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Session owns camera acquisition for one capture screen. Acquisition never
// auto-retries; the caller triggers Acquire again manually. A retried
// acquisition supersedes the previous one: if the older attempt resolves
// afterwards its stream is closed and discarded instead of applied.
type Session struct {
	source CameraSource

	mu     sync.Mutex
	gen    uint64
	stream Stream
	closed bool
}

func NewSession(source CameraSource) *Session {
	return &Session{source: source}
}

// Acquire obtains a camera stream, replacing any stream a previous call owned.
func (s *Session) Acquire(ctx context.Context) (Stream, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	stream, err := s.source.Acquire(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		if stream != nil {
			stream.Close()
		}
		if s.closed {
			return nil, ErrSessionClosed
		}
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	if s.stream != nil {
		s.stream.Close()
	}
	s.stream = stream
	return stream, nil
}

// Close releases the camera device. Safe to call on component teardown at any
// point, including while an acquisition is still resolving.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
}
