// Package notify hands freshly generated captions to the external media-sync
// service. Delivery is best-effort: failures are logged, never returned.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single webhook call.
const DefaultTimeout = 5 * time.Second

// ImportPayload is the body POSTed to media-sync. Timeline and SubtitleTrack
// are always sent as null; media-sync picks its own defaults.
type ImportPayload struct {
	SHA256        string  `json:"sha256"`
	SRTRelPath    string  `json:"srt_rel_path"`
	Timeline      *string `json:"timeline"`
	SubtitleTrack *string `json:"subtitle_track"`
}

// Notifier announces a completed artifact set. It has no error result: the
// caller cannot observe delivery failures.
type Notifier interface {
	CaptionsReady(ctx context.Context, project string, payload ImportPayload)
}

// NewMediaSync returns a webhook notifier for baseURL, or a no-op notifier
// when baseURL is empty.
func NewMediaSync(baseURL string, timeout time.Duration, logger *zap.Logger) Notifier {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return noopNotifier{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mediaSync{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type noopNotifier struct{}

func (noopNotifier) CaptionsReady(context.Context, string, ImportPayload) {}

type mediaSync struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// deliveryError describes why a webhook call did not land. It stays inside
// this package.
type deliveryError struct {
	status int
	body   string
	err    error
}

func (e *deliveryError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func (m *mediaSync) CaptionsReady(ctx context.Context, project string, payload ImportPayload) {
	endpoint := m.endpoint(project)
	if err := m.post(ctx, endpoint, payload); err != nil {
		m.logger.Warn("media-sync handoff failed",
			zap.String("project", project),
			zap.String("url", endpoint),
			zap.Error(err),
		)
		return
	}
	m.logger.Info("media-sync handoff delivered", zap.String("project", project), zap.String("srt", payload.SRTRelPath))
}

func (m *mediaSync) endpoint(project string) string {
	return fmt.Sprintf("%s/api/projects/%s/resolve/jobs/import-captions", m.baseURL, url.PathEscape(project))
}

func (m *mediaSync) post(ctx context.Context, endpoint string, payload ImportPayload) *deliveryError {
	body, err := json.Marshal(payload)
	if err != nil {
		return &deliveryError{err: fmt.Errorf("encode payload: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &deliveryError{err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return &deliveryError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &deliveryError{status: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}
	return nil
}
