package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/app/search"
	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
)

const maxTextQueryLength = 500

type textSearchRequest struct {
	Query      string                 `json:"query"`
	Gender     string                 `json:"gender"`
	SearchMode string                 `json:"search_mode"`
	Analysis   map[string]interface{} `json:"analysis"`
}

type searchResponse struct {
	Analysis     *domain.ItemDescription `json:"analysis"`
	Products     []domain.Product        `json:"products"`
	SearchMode   string                  `json:"search_mode"`
	TotalResults int                     `json:"total_results"`
}

type textSearchHandler struct {
	logger       *logrus.Logger
	describe     providers.Client
	providerCfg  *providers.Config
	orchestrator search.Orchestrator
	tiers        TierResolver
}

func NewTextSearchHandler(
	logger *logrus.Logger,
	describe providers.Client,
	providerCfg *providers.Config,
	orchestrator search.Orchestrator,
	tiers TierResolver,
) Handler {
	return &textSearchHandler{
		logger:       logger,
		describe:     describe,
		providerCfg:  providerCfg,
		orchestrator: orchestrator,
		tiers:        tiers,
	}
}

// Handle runs a text search. When the client echoes back a previously
// stored analysis, the AI describe call is skipped entirely.
func (h *textSearchHandler) Handle(c *fiber.Ctx) error {
	var req textSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Query == "" && req.Analysis == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}
	if len(req.Query) > maxTextQueryLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query too long"})
	}

	gender := normalizeGender(req.Gender)
	mode := normalizeMode(req.SearchMode)
	tier := h.tiers.Resolve(c)

	description, err := h.resolveDescription(c, req, tier, mode)
	if err != nil {
		h.logger.WithError(err).Error("description provider failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "analysis provider unavailable"})
	}

	products := h.orchestrator.Search(c.UserContext(), description, gender, tier, mode)
	return c.JSON(searchResponse{
		Analysis:     description,
		Products:     products,
		SearchMode:   mode,
		TotalResults: len(products),
	})
}

func (h *textSearchHandler) resolveDescription(c *fiber.Ctx, req textSearchRequest, tier, mode string) (*domain.ItemDescription, error) {
	if req.Analysis != nil {
		var description domain.ItemDescription
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName: "json",
			Result:  &description,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(req.Analysis); err == nil && description.ItemType != "" {
			return &description, nil
		}
		// A malformed echo falls through to a fresh describe call.
	}
	return h.describe.Describe(c.UserContext(), h.providerCfg, providers.DescribeInput{
		TextQuery: req.Query,
	}, tier, mode)
}

func normalizeGender(gender string) string {
	switch gender {
	case "male", "female":
		return gender
	}
	return "either"
}

func normalizeMode(mode string) string {
	if mode == providers.ModeExact {
		return providers.ModeExact
	}
	return providers.ModeAlternatives
}
