package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/model_pricing_extractor/internal/app"
)

const (
	actionPredefined = "predefined"
	actionCustom     = "custom"
)

// Register wires the pricing JSON API.
func Register(app *fiber.App, container *app.Container) {
	handler := &pricingHandler{container: container}

	group := app.Group("/api/v1")
	group.Get("/targets", handler.targets)
	group.Get("/schema", handler.schema)
	group.Post("/pricing/predefined", requestContext(actionPredefined), rateLimit(container), handler.predefined)
	group.Post("/pricing/custom", requestContext(actionCustom), rateLimit(container), handler.custom)
}
