package cues

import (
	"context"

	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/captions"
	"github.com/cdaprod/captioner/internal/types"
)

// ActiveCueAt returns the first cue, in slice order, whose closed interval
// [StartMs, EndMs] contains tMs. Cues are expected sorted by StartMs, so on
// overlap the earliest-starting cue wins.
func ActiveCueAt(cues []types.Cue, tMs int64) (types.Cue, bool) {
	for _, cue := range cues {
		if cue.StartMs <= tMs && tMs <= cue.EndMs {
			return cue, true
		}
	}
	return types.Cue{}, false
}

// Resolver ties URL derivation, fetching and decoding together.
type Resolver struct {
	mode    MapMode
	fetcher Fetcher
	logger  *zap.Logger
}

// NewResolver builds a resolver. The mode must already be validated.
func NewResolver(mode MapMode, fetcher Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{mode: mode, fetcher: fetcher, logger: logger}
}

// Mode reports the configured mapping mode.
func (r *Resolver) Mode() MapMode {
	return r.mode
}

// SRTURL derives the SRT location for mediaURL.
func (r *Resolver) SRTURL(mediaURL string) (string, error) {
	return DeriveSRTURL(mediaURL, r.mode)
}

// SRTText fetches the raw SRT for mediaURL. Empty text means no captions yet.
func (r *Resolver) SRTText(ctx context.Context, mediaURL string) (string, string, error) {
	srtURL, err := r.SRTURL(mediaURL)
	if err != nil {
		return "", "", err
	}
	text, err := r.fetcher.Fetch(ctx, srtURL)
	if err != nil {
		r.logger.Warn("srt fetch failed", zap.String("srt_url", srtURL), zap.Error(err))
		return srtURL, "", err
	}
	return srtURL, text, nil
}

// Cues fetches and decodes the captions for mediaURL.
func (r *Resolver) Cues(ctx context.Context, mediaURL string) (string, []types.Cue, error) {
	srtURL, text, err := r.SRTText(ctx, mediaURL)
	if err != nil {
		return srtURL, nil, err
	}
	decoded := captions.DecodeSRT(text)
	r.logger.Debug("decoded srt", zap.String("srt_url", srtURL), zap.Int("cues", len(decoded)))
	return srtURL, decoded, nil
}

// Active fetches the captions for mediaURL and returns the cue covering tMs.
func (r *Resolver) Active(ctx context.Context, mediaURL string, tMs int64) (string, types.Cue, bool, error) {
	srtURL, decoded, err := r.Cues(ctx, mediaURL)
	if err != nil {
		return srtURL, types.Cue{}, false, err
	}
	cue, ok := ActiveCueAt(decoded, tMs)
	return srtURL, cue, ok, nil
}
