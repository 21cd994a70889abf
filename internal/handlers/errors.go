package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/cdaprod/captioner/internal/apperr"
)

// respondError is the single place core errors become HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
		"error": apperr.Message(err),
		"code":  apperr.Code(err),
	})
}

// ErrorHandler renders errors that escape a handler, including Fiber's own
// routing errors, in the same JSON shape as handler responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
			"code":  "ERR_HTTP",
		})
	}
	return respondError(c, err)
}
