package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vitaup/vitacore/internal/rowstore"
	"github.com/vitaup/vitacore/internal/service"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// respondError maps domain errors onto status codes. fallback is used for
// errors the domain does not classify.
func respondError(c *fiber.Ctx, err error, fallback int) error {
	var (
		input       *service.InputError
		profile     *service.InvalidProfileError
		unsupported *service.UnsupportedSourceError
		bad         *service.MalformedExternalResponseError
	)
	switch {
	case errors.As(err, &input):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &profile), errors.As(err, &unsupported):
		return apiError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &bad):
		return apiError(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, rowstore.ErrConflict):
		return apiError(c, fiber.StatusConflict, err.Error())
	default:
		return apiError(c, fallback, err.Error())
	}
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "request body is required")
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

// parseDayParam accepts YYYY-MM-DD or "today".
func parseDayParam(value string, loc *time.Location, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "today") {
		return now.In(loc), nil
	}
	return service.ParseDate(value, loc)
}

func (handler *Handler) requestUser(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("X-User-ID")); v != "" {
		return v
	}
	return handler.userID
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrNotFound)
}
