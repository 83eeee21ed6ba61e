package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// FileSource is a CameraSource backed by an image on disk. Used by the CLI
// agent, which has no camera of its own.
type FileSource struct {
	Path string
}

func (f FileSource) Acquire(_ context.Context) (Stream, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		return nil, ErrUnavailable
	}
	if info.IsDir() {
		return nil, ErrUnavailable
	}
	return &fileStream{path: f.Path}, nil
}

type fileStream struct {
	path string
}

func (s *fileStream) Capture(_ context.Context) (Frame, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Frame{}, fmt.Errorf("media: read %s: %w", s.path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(s.path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return Frame{Data: data, MIME: mimeType}, nil
}

func (s *fileStream) Close() error {
	return nil
}
