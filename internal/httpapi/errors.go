package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jackedney/bio-explorer/internal/gbif"
)

// APIError is a structured error response
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, code, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errFromSearch maps the search error taxonomy onto a response. Upstream
// details are logged, never echoed to the client.
func errFromSearch(c *fiber.Ctx, err error) error {
	logger := LoggerFromCtx(c.UserContext())

	switch {
	case errors.Is(err, gbif.ErrInvalidInput):
		return errBadRequest(c, "invalid query")
	case errors.Is(err, gbif.ErrUpstreamUnreachable):
		logger.Warn("upstream unreachable", "path", c.Path(), "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return newError(c, fiber.StatusGatewayTimeout, "upstream_timeout", "upstream service timed out")
		}
		return newError(c, fiber.StatusServiceUnavailable, "upstream_unavailable", "upstream service unavailable")
	case errors.Is(err, gbif.ErrUpstreamError):
		logger.Warn("upstream error", "path", c.Path(), "error", err)
		return newError(c, fiber.StatusBadGateway, "upstream_error", "upstream service error")
	default:
		logger.Error("search failed", "path", c.Path(), "error", err)
		return newError(c, fiber.StatusInternalServerError, "internal_error", "internal error")
	}
}

// ErrorHandler renders errors returned by handlers and middleware as APIError
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}

	code := "internal_error"
	switch status {
	case fiber.StatusNotFound:
		code = "not_found"
	case fiber.StatusMethodNotAllowed:
		code = "method_not_allowed"
	case fiber.StatusRequestTimeout:
		code = "timeout"
	case fiber.StatusTooManyRequests:
		code = "rate_limited"
	default:
		if status < 500 {
			code = "bad_request"
		}
	}

	return newError(c, status, code, message)
}
