package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/app"
	"github.com/ncecere/model_pricing_extractor/internal/httpserver/httputil"
	"github.com/ncecere/model_pricing_extractor/internal/pricing"
	"github.com/ncecere/model_pricing_extractor/internal/requestctx"
)

type pricingHandler struct {
	container *app.Container
}

// customRequest accepts both JSON and form bodies. Models holds one model
// name per line, as typed into the UI textarea.
type customRequest struct {
	URL      string `json:"url" form:"url"`
	Models   string `json:"models" form:"models"`
	Provider string `json:"provider" form:"provider"`
}

type targetsResponse struct {
	AllowPartial bool          `json:"allow_partial"`
	Configured   bool          `json:"configured"`
	Targets      []targetEntry `json:"targets"`
}

type targetEntry struct {
	Provider string   `json:"provider"`
	URL      string   `json:"url"`
	Models   []string `json:"models"`
}

func (h *pricingHandler) predefined(c *fiber.Ctx) error {
	table := h.container.Service.Predefined(c.UserContext())
	h.logTable(c, table)
	return c.Status(fiber.StatusOK).JSON(table)
}

func (h *pricingHandler) custom(c *fiber.Ctx) error {
	var req customRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	table := h.container.Service.Custom(c.UserContext(), req.URL, req.Models, req.Provider)
	h.logTable(c, table)
	return c.Status(fiber.StatusOK).JSON(table)
}

func (h *pricingHandler) targets(c *fiber.Ctx) error {
	resp := targetsResponse{
		Configured: h.container.Configured(),
		Targets:    []targetEntry{},
	}
	if h.container.Config != nil {
		resp.AllowPartial = h.container.Config.Predefined.AllowPartial
	}
	for _, t := range h.container.Service.Targets() {
		resp.Targets = append(resp.Targets, targetEntry{Provider: t.Provider, URL: t.URL, Models: t.Models})
	}
	return c.JSON(resp)
}

func (h *pricingHandler) schema(c *fiber.Ctx) error {
	schema, err := pricing.Schema()
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "schema unavailable")
	}
	return c.JSON(schema)
}

func (h *pricingHandler) logTable(c *fiber.Ctx, table pricing.Table) {
	fields := append(requestctx.LogFields(c.UserContext()),
		zap.String("run_id", table.RunID.String()),
		zap.Int("rows", len(table.Rows)),
	)
	if table.Failed() {
		fields = append(fields, zap.String("kind", string(table.Failure.Kind)))
		h.container.Logger.Info("pricing action failed", fields...)
		return
	}
	h.container.Logger.Info("pricing action completed", fields...)
}
