package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/cues"
	"github.com/cdaprod/captioner/internal/logging"
)

// Deps is everything the routes need
type Deps struct {
	ProjectsRoot string
	MaxUploadMB  int
	Generator    Generator
	Jobs         JobQueue
	Resolver     *cues.Resolver
	Logs         *logging.LogBuffer
	Logger       *zap.Logger
}

// Register mounts every route on app
func Register(app *fiber.App, d Deps) {
	projects := NewProjectsHandler(d.ProjectsRoot)
	captionsHandler := NewCaptionsHandler(d.Generator, d.Jobs, d.Logger)
	cuesHandler := NewCuesHandler(d.Resolver)
	streamHandler := NewStreamHandler(d.Resolver, d.Logger)
	uploadHandler := NewUploadHandler(d.ProjectsRoot, d.MaxUploadMB, d.Jobs, d.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/logs", func(c *fiber.Ctx) error {
		lines := []string{}
		if d.Logs != nil {
			lines = d.Logs.Lines()
		}
		return c.JSON(fiber.Map{"logs": lines})
	})

	api := app.Group("/api")
	api.Get("/projects", projects.List)
	api.Get("/projects/:project/media", projects.Media)
	api.Post("/projects/:project/media/upload", uploadHandler.Handle)
	api.Get("/projects/:project/file", projects.File)
	api.Get("/projects/:project/media/captions", captionsHandler.Lookup)
	api.Post("/projects/:project/media/generate-captions", captionsHandler.Generate)
	api.Get("/jobs/:id", captionsHandler.Job)

	api.Get("/captions/srt", cuesHandler.SRT)
	api.Get("/captions/cues", cuesHandler.Cues)
	api.Get("/captions/active", cuesHandler.Active)

	app.Use("/ws", streamHandler.Upgrade)
	app.Get("/ws/captions", websocket.New(streamHandler.Handle))
}
