package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/insight"
	"github.com/userpulse/backend/internal/notify"
	"github.com/userpulse/backend/pkg/logger"
)

type InsightHandler struct {
	generator *insight.Generator
	router    *notify.Router
}

func NewInsightHandler(generator *insight.Generator, router *notify.Router) *InsightHandler {
	return &InsightHandler{
		generator: generator,
		router:    router,
	}
}

func (h *InsightHandler) GetInsights(c *fiber.Ctx) error {
	insightType := insight.InsightType(c.Query("type"))
	priority := insight.Priority(c.Query("priority"))

	insights := h.generator.Insights(insightType, priority)

	return c.JSON(fiber.Map{
		"insights": insights,
		"count":    len(insights),
	})
}

func (h *InsightHandler) GetInsight(c *fiber.Ctx) error {
	insightID := c.Params("id")

	ins, ok := h.generator.Insight(insightID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Insight not found",
		})
	}

	return c.JSON(ins)
}

func (h *InsightHandler) UpdateStatus(c *fiber.Ctx) error {
	insightID := c.Params("id")

	var req struct {
		Status insight.Status `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.generator.UpdateStatus(insightID, req.Status); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ins, _ := h.generator.Insight(insightID)
	return c.JSON(ins)
}

func (h *InsightHandler) GetChannels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"channels": h.router.Channels(),
	})
}

func (h *InsightHandler) AddChannel(c *fiber.Ctx) error {
	var ch notify.Channel
	if err := c.BodyParser(&ch); err != nil {
		logger.Error("Failed to parse channel", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid channel",
		})
	}

	if err := h.router.AddChannel(&ch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(ch)
}

func (h *InsightHandler) RemoveChannel(c *fiber.Ctx) error {
	channelID := c.Params("id")

	if err := h.router.RemoveChannel(channelID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"channels": h.router.Channels(),
	})
}
