package cues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/storage"
)

// DefaultFetchTimeout bounds a single SRT fetch.
const DefaultFetchTimeout = 5 * time.Second

// maxSRTBytes caps how much of an upstream response is read.
const maxSRTBytes = 32 << 20

// Fetcher retrieves SRT text. A missing document yields "" and no error.
type Fetcher interface {
	Fetch(ctx context.Context, srtURL string) (string, error)
}

// HTTPFetcher fetches SRT files over HTTP(S). file:// URLs are read from disk
// only after WithFileRoot, and only below that root.
type HTTPFetcher struct {
	client   *http.Client
	fileRoot string
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// WithFileRoot enables file:// URLs confined to root.
func (f *HTTPFetcher) WithFileRoot(root string) *HTTPFetcher {
	f.fileRoot = root
	return f
}

// Fetch returns the SRT body at srtURL. 404 means no captions yet and is
// reported as empty text; any other failure is an upstream error.
func (f *HTTPFetcher) Fetch(ctx context.Context, srtURL string) (string, error) {
	u, err := url.Parse(srtURL)
	if err != nil {
		return "", apperr.Validation("invalid srt url: %v", err)
	}
	if u.Scheme == "file" {
		return f.readLocal(u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srtURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstream, "", "failed fetching SRT", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstream, "", "failed fetching SRT", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Wrap(apperr.ErrUpstream, "", fmt.Sprintf("failed fetching SRT: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSRTBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUpstream, "", "failed reading SRT", err)
	}
	return string(body), nil
}

func (f *HTTPFetcher) readLocal(u *url.URL) (string, error) {
	if f.fileRoot == "" {
		return "", apperr.Validation("file urls are not supported")
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", apperr.Validation("file urls must not name a host")
	}
	path, err := storage.ConfineLocalFile(f.fileRoot, filepath.FromSlash(u.Path))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return "", nil
		case errors.Is(err, apperr.ErrValidation):
			return "", err
		}
		return "", apperr.Wrap(apperr.ErrUpstream, "", "failed reading SRT", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.ErrUpstream, "", "failed reading SRT", err)
	}
	return string(data), nil
}
