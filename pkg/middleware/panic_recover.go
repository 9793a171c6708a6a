package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type panicRecoverMiddleware struct {
	logger *logrus.Logger
}

func NewPanicRecoverMiddleware(logger *logrus.Logger) Middleware {
	return &panicRecoverMiddleware{logger: logger}
}

func (m *panicRecoverMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				// The error id ties the sanitized client response to the
				// full log entry.
				errorID := uuid.New().String()[:8]
				m.logger.WithFields(logrus.Fields{
					"error":    r,
					"error_id": errorID,
					"path":     c.Path(),
					"method":   c.Method(),
				}).Error("HTTP server panic recovered")

				if c.Response().Header.StatusCode() == 0 {
					_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"detail":   "An internal error occurred. Please try again later.",
						"error_id": errorID,
					})
				}
			}
		}()

		return c.Next()
	}
}
