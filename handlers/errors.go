package handlers

import (
	"challenge-arena/logger"
	"challenge-arena/services"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// ErrorHandler maps service errors onto HTTP status codes.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		body := fiber.Map{"error": err.Error()}

		switch e := errors.Cause(err).(type) {
		case *services.NotFoundError:
			code = fiber.StatusNotFound
		case *services.BadRequestError:
			code = fiber.StatusBadRequest
		case *services.ConflictError:
			code = fiber.StatusConflict
		case *services.ForbiddenError:
			code = fiber.StatusForbidden
		case *ValidationError:
			code = fiber.StatusBadRequest
			body["fields"] = e.Fields
		case *fiber.Error:
			code = e.Code
		default:
			log.Error("[HTTP] unhandled error", c.Method(), c.Path(), err)
			body["error"] = "internal server error"
		}

		return c.Status(code).JSON(body)
	}
}
