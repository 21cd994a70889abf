package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/cues"
	"github.com/cdaprod/captioner/internal/types"
)

// CuesHandler resolves captions for media URLs
type CuesHandler struct {
	resolver *cues.Resolver
}

// NewCuesHandler creates a new cues handler
func NewCuesHandler(resolver *cues.Resolver) *CuesHandler {
	return &CuesHandler{resolver: resolver}
}

// SRT proxies the raw SRT text derived from media_url
func (h *CuesHandler) SRT(c *fiber.Ctx) error {
	srtURL, text, err := h.resolver.SRTText(c.UserContext(), c.Query("media_url"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/x-subrip")
	c.Set("X-SRT-URL", srtURL)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.SendString(text)
}

// Cues returns every decoded cue for media_url
func (h *CuesHandler) Cues(c *fiber.Ctx) error {
	mediaURL := c.Query("media_url")
	srtURL, decoded, err := h.resolver.Cues(c.UserContext(), mediaURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"media_url": mediaURL,
		"srt_url":   srtURL,
		"cues":      decoded,
	})
}

// Active returns the cue covering t_ms
func (h *CuesHandler) Active(c *fiber.Ctx) error {
	tMs, err := parseMillis(c.Query("t_ms"))
	if err != nil {
		return respondError(c, err)
	}
	srtURL, cue, ok, err := h.resolver.Active(c.UserContext(), c.Query("media_url"), tMs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(activePayload(srtURL, cue, ok))
}

// activePayload is shared by the HTTP and WebSocket followers. A miss keeps
// the same keys with null timing.
func activePayload(srtURL string, cue types.Cue, ok bool) fiber.Map {
	if !ok {
		return fiber.Map{"text": "", "startMs": nil, "endMs": nil, "srt_url": srtURL}
	}
	return fiber.Map{
		"startMs": cue.StartMs,
		"endMs":   cue.EndMs,
		"text":    cue.Text,
		"srt_url": srtURL,
	}
}

func parseMillis(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Validation("t_ms is required")
	}
	tMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("t_ms must be an integer")
	}
	if tMs < 0 {
		return 0, apperr.Validation("t_ms must be >= 0")
	}
	return tMs, nil
}
