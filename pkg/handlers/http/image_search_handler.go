package http

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/app/search"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
)

// maxImageSize bounds uploads at 10MB, matching the client's capture
// settings.
const maxImageSize = 10 << 20

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

type imageSearchHandler struct {
	logger       *logrus.Logger
	describe     providers.Client
	providerCfg  *providers.Config
	orchestrator search.Orchestrator
	tiers        TierResolver
}

func NewImageSearchHandler(
	logger *logrus.Logger,
	describe providers.Client,
	providerCfg *providers.Config,
	orchestrator search.Orchestrator,
	tiers TierResolver,
) Handler {
	return &imageSearchHandler{
		logger:       logger,
		describe:     describe,
		providerCfg:  providerCfg,
		orchestrator: orchestrator,
		tiers:        tiers,
	}
}

// Handle accepts a multipart photo upload, obtains a structured
// description from the AI provider and runs one orchestration pass.
func (h *imageSearchHandler) Handle(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size > maxImageSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "image too large"})
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "unsupported image type"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read upload"})
	}
	defer file.Close()
	imageData, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read upload"})
	}

	gender := normalizeGender(c.FormValue("gender"))
	mode := normalizeMode(c.FormValue("search_mode"))
	tier := h.tiers.Resolve(c)

	description, err := h.describe.Describe(c.UserContext(), h.providerCfg, providers.DescribeInput{
		ImageData:     imageData,
		ImageMIMEType: mimeType,
	}, tier, mode)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"size": fileHeader.Size,
			"mime": mimeType,
		}).Error("image description failed")
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
