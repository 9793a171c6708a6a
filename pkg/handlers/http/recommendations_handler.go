package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/app/recommendation"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

const defaultRecommendationLimit = 20

type recommendationsRequest struct {
	Limit   int                `json:"limit"`
	Signals *preferenceSignals `json:"signals"`
}

type recommendationsHandler struct {
	logger          *logrus.Logger
	recommendations recommendation.Service
}

func NewRecommendationsHandler(logger *logrus.Logger, recommendations recommendation.Service) Handler {
	return &recommendationsHandler{
		logger:          logger,
		recommendations: recommendations,
	}
}

// Handle returns a flat personalized product list.
func (h *recommendationsHandler) Handle(c *fiber.Ctx) error {
	var req recommendationsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	limit := req.Limit
	if limit <= 0 {
		if q := c.Query("limit"); q != "" {
			limit, _ = strconv.Atoi(q)
		}
	}
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}

	var profile *domain.PreferenceProfile
	if req.Signals != nil {
		profile = recommendation.BuildProfile(req.Signals.Searches, req.Signals.Saved, req.Signals.Views)
	}

	products := h.recommendations.Recommend(c.UserContext(), profile, limit)
	return c.JSON(fiber.Map{
		"products":      products,
		"total_results": len(products),
	})
}
