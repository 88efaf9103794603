package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"powdercast/pkg/client"
)

// AppError is the one error shape handlers return; the fiber error
// handler turns it into a JSON body with a stable machine code.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func BadRequest(message string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Code: "bad_request", Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Status: fiber.StatusUnauthorized, Code: "unauthorized", Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Status: fiber.StatusForbidden, Code: "forbidden", Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Status: fiber.StatusNotFound, Code: "not_found", Message: message}
}

func Upstream(err error) *AppError {
	return &AppError{
		Status:  fiber.StatusBadGateway,
		Code:    "upstream_error",
		Message: "Upstream forecast service failed",
		Err:     err,
	}
}

// ErrorHandler maps handler errors onto HTTP responses. Authentication
// failures from the upstream client become 401s so the frontend can drop
// to the guest experience.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			switch {
			case errors.Is(err, client.ErrAuthentication):
				appErr = Unauthorized("Session expired")
			default:
				var fiberErr *fiber.Error
				if errors.As(err, &fiberErr) {
					appErr = &AppError{Status: fiberErr.Code, Code: "http_error", Message: fiberErr.Message}
				} else {
					appErr = Upstream(err)
				}
			}
		}

		if appErr.Status >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("path", c.Path()),
				zap.Int("status", appErr.Status),
				zap.Error(err))
		}

		return c.Status(appErr.Status).JSON(fiber.Map{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": detailOf(appErr),
		})
	}
}

func detailOf(e *AppError) string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
