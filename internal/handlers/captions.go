package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/types"
)

// Generator produces and looks up caption artifact sets
type Generator interface {
	Validate(req pipeline.Request) error
	Generate(ctx context.Context, req pipeline.Request) (types.CaptionPaths, error)
	Lookup(ctx context.Context, project, videoRelPath string) (types.CaptionPaths, error)
}

// JobQueue runs generate requests in the background
type JobQueue interface {
	Enqueue(ctx context.Context, req pipeline.Request) (types.JobSnapshot, error)
	Get(id string) (types.JobSnapshot, bool)
}

// CaptionsHandler handles caption generation and lookup
type CaptionsHandler struct {
	generator Generator
	jobs      JobQueue
	logger    *zap.Logger
}

// NewCaptionsHandler creates a new captions handler. jobs may be nil, in which
// case async requests are rejected.
func NewCaptionsHandler(generator Generator, jobs JobQueue, logger *zap.Logger) *CaptionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptionsHandler{generator: generator, jobs: jobs, logger: logger}
}

// generateBody is the JSON accepted by the generate endpoint
type generateBody struct {
	VideoRelPath string `json:"video_rel_path"`
	ModelSize    string `json:"model_size"`
	MaxChars     *int   `json:"max_chars"`
}

// Lookup returns the artifact set for the current bytes of a video
func (h *CaptionsHandler) Lookup(c *fiber.Ctx) error {
	paths, err := h.generator.Lookup(c.UserContext(), c.Params("project"), c.Query("video_rel_path"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(paths)
}

// Generate runs the caption pipeline for one video, inline or as a job
func (h *CaptionsHandler) Generate(c *fiber.Ctx) error {
	var body generateBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, apperr.Validation("invalid request body"))
	}

	req := pipeline.Request{
		Project:      utils.CopyString(c.Params("project")),
		VideoRelPath: body.VideoRelPath,
		ModelSize:    body.ModelSize,
	}
	if body.MaxChars != nil {
		if *body.MaxChars < 1 {
			return respondError(c, apperr.Validation("max_chars must be at least 1"))
		}
		req.MaxChars = *body.MaxChars
	}

	if c.QueryBool("async") {
		if h.jobs == nil {
			return respondError(c, apperr.Validation("async generation is not enabled"))
		}
		if err := h.generator.Validate(req); err != nil {
			return respondError(c, err)
		}
		snap, err := h.jobs.Enqueue(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id": snap.ID,
			"status": snap.Status,
		})
	}

	paths, err := h.generator.Generate(c.UserContext(), req)
	if err != nil {
		h.logger.Warn("generate failed",
			zap.String("project", req.Project),
			zap.String("video", req.VideoRelPath),
			zap.Error(err),
		)
		return respondError(c, err)
	}
	return c.JSON(paths)
}

// Job reports the state of an async generate job
func (h *CaptionsHandler) Job(c *fiber.Ctx) error {
	if h.jobs == nil {
		return respondError(c, apperr.NotFound("job not found"))
	}
	snap, ok := h.jobs.Get(c.Params("id"))
	if !ok {
		return respondError(c, apperr.NotFound("job not found"))
	}
	return c.JSON(snap)
}
