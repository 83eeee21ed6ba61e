package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Destination is a server-issued upload target: where to put the bytes and
// the public URL they become reachable at.
type Destination struct {
	UploadURL string
	FileURL   string
}

// Uploader delivers one captured frame to storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, dest Destination, frame Frame) (string, error)
}

// HTTPUploader PUTs the payload to the presigned upload URL. This is the
// default path; the backend signs the destination.
type HTTPUploader struct {
	httpc *http.Client
}

func NewHTTPUploader(timeout time.Duration) *HTTPUploader {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPUploader{httpc: &http.Client{Timeout: timeout}}
}

func (u *HTTPUploader) Upload(ctx context.Context, dest Destination, frame Frame) (string, error) {
	if len(frame.Data) == 0 {
		return "", fmt.Errorf("media: empty frame")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest.UploadURL, bytes.NewReader(frame.Data))
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(frame.Data))
	if frame.MIME != "" {
		req.Header.Set("Content-Type", frame.MIME)
	}

	resp, err := u.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: upload: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media: upload rejected with status %d", resp.StatusCode)
	}
	return dest.FileURL, nil
}
