package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Search
	TextSearchHandler  Handler
	ImageSearchHandler Handler

	// Recommendations
	SectionsHandler        Handler
	RecommendationsHandler Handler
	InvalidateUserHandler  Handler

	// Operations
	QuotaStatusHandler Handler
}
