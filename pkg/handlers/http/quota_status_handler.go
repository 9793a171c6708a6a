package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/quota"
)

type quotaStatusHandler struct {
	logger  *logrus.Logger
	tracker *quota.Tracker
}

// NewQuotaStatusHandler exposes the daily provider budget for
// operational visibility.
func NewQuotaStatusHandler(logger *logrus.Logger, tracker *quota.Tracker) Handler {
	return &quotaStatusHandler{
		logger:  logger,
		tracker: tracker,
	}
}

func (h *quotaStatusHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.tracker.Stats())
}
