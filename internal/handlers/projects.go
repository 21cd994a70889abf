package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cdaprod/captioner/internal/storage"
)

// ProjectsHandler browses the projects root
type ProjectsHandler struct {
	projectsRoot string
}

// NewProjectsHandler creates a new projects handler
func NewProjectsHandler(projectsRoot string) *ProjectsHandler {
	return &ProjectsHandler{projectsRoot: projectsRoot}
}

// List returns every visible project directory
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	projects, err := storage.ListProjects(h.projectsRoot)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"projects": projects})
}

// Media lists the supported videos under a project's ingest directory
func (h *ProjectsHandler) Media(c *fiber.Ctx) error {
	root, err := storage.ResolveProjectRoot(h.projectsRoot, c.Params("project"))
	if err != nil {
		return respondError(c, err)
	}
	videos, err := storage.ListProjectVideos(root)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"videos": videos})
}

// File serves a project file from one of the allow-listed top-level
// directories
func (h *ProjectsHandler) File(c *fiber.Ctx) error {
	root, err := storage.ResolveProjectRoot(h.projectsRoot, c.Params("project"))
	if err != nil {
		return respondError(c, err)
	}
	target, err := storage.ResolveServedFile(root, c.Query("path"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendFile(target)
}
