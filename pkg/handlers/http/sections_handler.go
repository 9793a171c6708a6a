package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/app/recommendation"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

// preferenceSignals is the client-supplied history slice the profile is
// built from. History lives on the device; this service stays stateless.
type preferenceSignals struct {
	Searches []domain.SearchSignal `json:"searches"`
	Saved    []domain.SavedSignal  `json:"saved"`
	Views    []domain.ViewSignal   `json:"views"`
}

type sectionsRequest struct {
	Signals *preferenceSignals `json:"signals"`
}

type sectionsHandler struct {
	logger          *logrus.Logger
	recommendations recommendation.Service
	tiers           TierResolver
}

func NewSectionsHandler(logger *logrus.Logger, recommendations recommendation.Service, tiers TierResolver) Handler {
	return &sectionsHandler{
		logger:          logger,
		recommendations: recommendations,
		tiers:           tiers,
	}
}

// Handle assembles the "For You" page for the calling user.
func (h *sectionsHandler) Handle(c *fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user id is required"})
	}
	tier := h.tiers.Resolve(c)

	var req sectionsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	var profile *domain.PreferenceProfile
	if req.Signals != nil {
		profile = recommendation.BuildProfile(req.Signals.Searches, req.Signals.Saved, req.Signals.Views)
	}

	sections := h.recommendations.Sections(c.UserContext(), uid, tier, profile)
	return c.JSON(fiber.Map{"sections": sections})
}
