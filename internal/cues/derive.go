// Package cues resolves the SRT file that belongs to a media URL and answers
// playback-time caption lookups against it.
package cues

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/storage"
)

// MapMode selects how a media URL is rewritten into its SRT URL.
type MapMode string

const (
	// SideBySide expects the SRT next to the video.
	SideBySide MapMode = "side_by_side"
	// CaptionsDir expects the SRT under the project's captions directory.
	CaptionsDir MapMode = "captions_dir"
)

// ParseMapMode validates a configured mode name.
func ParseMapMode(value string) (MapMode, error) {
	switch mode := MapMode(strings.TrimSpace(value)); mode {
	case SideBySide, CaptionsDir:
		return mode, nil
	case "":
		return CaptionsDir, nil
	default:
		return "", apperr.Wrap(apperr.ErrConfiguration, "srt map mode", fmt.Sprintf("unknown SRT map mode: %s", value), nil)
	}
}

// ingest prefixes rewritten by CaptionsDir, most specific first
var ingestPrefixes = []string{"/ingest/originals/", "/ingest/"}

// DeriveSRTURL maps a media URL to the URL its captions are published at.
// Query and fragment are dropped and the extension must be a supported video
// container.
func DeriveSRTURL(mediaURL string, mode MapMode) (string, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return "", apperr.Validation("media_url is required")
	}
	u, err := url.Parse(mediaURL)
	if err != nil {
		return "", apperr.Validation("invalid media url: %v", err)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	p := u.Path
	ext := path.Ext(p)
	if !storage.IsSupportedVideo(p) {
		return "", apperr.Validation("unsupported media extension: %s", strings.ToLower(ext))
	}

	switch mode {
	case SideBySide:
	case CaptionsDir:
		p = rewriteIngest(p)
	default:
		return "", apperr.Wrap(apperr.ErrConfiguration, "derive srt url", fmt.Sprintf("unknown SRT map mode: %s", mode), nil)
	}

	u.Path = strings.TrimSuffix(p, ext) + ".srt"
	u.RawPath = ""
	return u.String(), nil
}

// rewriteIngest replaces the first ingest segment with /captions/. Matching is
// case-insensitive and only one rewrite is applied.
func rewriteIngest(p string) string {
	lower := strings.ToLower(p)
	for _, prefix := range ingestPrefixes {
		if idx := strings.Index(lower, prefix); idx >= 0 {
			return p[:idx] + "/captions/" + p[idx+len(prefix):]
		}
	}
	return p
}
