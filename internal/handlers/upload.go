package handlers

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/storage"
)

// UploadHandler stores uploaded videos in a project's ingest directory
type UploadHandler struct {
	projectsRoot string
	maxSizeMB    int
	jobs         JobQueue
	logger       *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(projectsRoot string, maxSizeMB int, jobs JobQueue, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{
		projectsRoot: projectsRoot,
		maxSizeMB:    maxSizeMB,
		jobs:         jobs,
		logger:       logger,
	}
}

// Handle processes the upload request. With ?generate=true a caption job is
// queued for the new video.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	project := utils.CopyString(c.Params("project"))
	root, err := storage.ResolveProjectRoot(h.projectsRoot, project)
	if err != nil {
		return respondError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, apperr.Validation("no file uploaded"))
	}
	if h.maxSizeMB > 0 && file.Size > int64(h.maxSizeMB)*1024*1024 {
		return respondError(c, apperr.Validation("file too large (max %dMB)", h.maxSizeMB))
	}

	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(file.Filename, `\`, "/")))
	if !storage.IsSupportedVideo(name) {
		return respondError(c, apperr.Validation("unsupported media extension: %s", strings.ToLower(filepath.Ext(name))))
	}
	rel, err := storage.EnsureRelative(path.Join("ingest", name))
	if err != nil {
		return respondError(c, err)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Stat(target); err == nil {
		return respondError(c, apperr.Validation("%s already exists", rel))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return respondError(c, fmt.Errorf("create ingest directory: %w", err))
	}
	if err := c.SaveFile(file, target); err != nil {
		h.logger.Error("failed to save uploaded file", zap.String("path", target), zap.Error(err))
		return respondError(c, fmt.Errorf("save upload: %w", err))
	}
	h.logger.Info("video uploaded", zap.String("project", project), zap.String("video", rel), zap.Int64("bytes", file.Size))

	response := fiber.Map{"video_rel_path": rel}
	if c.QueryBool("generate") && h.jobs != nil {
		snap, err := h.jobs.Enqueue(c.UserContext(), pipeline.Request{
			Project:      project,
			VideoRelPath: rel,
			ModelSize:    utils.CopyString(c.FormValue("model_size")),
		})
		if err != nil {
			return respondError(c, err)
		}
		response["job_id"] = snap.ID
		response["status"] = snap.Status
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}
