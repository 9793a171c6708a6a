package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/app/recommendation"
)

type invalidateUserHandler struct {
	logger          *logrus.Logger
	recommendations recommendation.Service
}

// NewInvalidateUserHandler drops a user's cached recommendation sections.
// Called after a search so the next "For You" load reflects it.
func NewInvalidateUserHandler(logger *logrus.Logger, recommendations recommendation.Service) Handler {
	return &invalidateUserHandler{
		logger:          logger,
		recommendations: recommendations,
	}
}

func (h *invalidateUserHandler) Handle(c *fiber.Ctx) error {
	uid := c.Params("user_id")
	if uid == "" {
		uid = userID(c)
	}
	if uid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user id is required"})
	}

	invalidated := h.recommendations.InvalidateUser(uid)
	return c.JSON(fiber.Map{"invalidated": invalidated})
}
