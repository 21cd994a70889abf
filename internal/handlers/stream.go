package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/cues"
)

// StreamHandler follows playback over a WebSocket: the client sends the
// current position in milliseconds and gets the active cue back.
type StreamHandler struct {
	resolver *cues.Resolver
	logger   *zap.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(resolver *cues.Resolver, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{resolver: resolver, logger: logger}
}

// Upgrade rejects plain HTTP requests on the WebSocket route
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle processes WebSocket connections. Cues are fetched once per
// connection; "END" closes it.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	sessionID := uuid.NewString()
	mediaURL := c.Query("media_url")
	log := h.logger.With(zap.String("session", sessionID), zap.String("media_url", mediaURL))

	srtURL, decoded, err := h.resolver.Cues(context.Background(), mediaURL)
	if err != nil {
		log.Warn("cue follower could not load captions", zap.Error(err))
		h.send(c, fiber.Map{"error": apperr.Message(err), "code": apperr.Code(err)})
		return
	}
	log.Info("cue follower connected", zap.String("srt_url", srtURL), zap.Int("cues", len(decoded)))
	h.send(c, fiber.Map{"srt_url": srtURL, "cues": len(decoded)})

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read ended", zap.Error(err))
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg := strings.TrimSpace(string(message))
		if msg == "END" {
			break
		}
		tMs, err := parseMillis(msg)
		if err != nil {
			h.send(c, fiber.Map{"error": apperr.Message(err), "code": apperr.Code(err)})
			continue
		}
		cue, ok := cues.ActiveCueAt(decoded, tMs)
		if !h.send(c, activePayload(srtURL, cue, ok)) {
			break
		}
	}
	log.Info("cue follower disconnected")
}

func (h *StreamHandler) send(c *websocket.Conn, payload fiber.Map) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode websocket payload", zap.Error(err))
		return false
	}
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}
