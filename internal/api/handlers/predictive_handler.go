package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/userpulse/backend/internal/predictive"
)

type PredictiveHandler struct {
	engine *predictive.Engine
}

func NewPredictiveHandler(engine *predictive.Engine) *PredictiveHandler {
	return &PredictiveHandler{
		engine: engine,
	}
}

func (h *PredictiveHandler) GetPredictions(c *fiber.Ctx) error {
	userID := c.Params("id")

	predictions := h.engine.Predictions(userID)

	return c.JSON(fiber.Map{
		"userId":      userID,
		"predictions": predictions,
		"count":       len(predictions),
	})
}

func (h *PredictiveHandler) GetRecommendations(c *fiber.Ctx) error {
	userID := c.Params("id")

	recommendations := h.engine.Recommendations(userID)

	return c.JSON(fiber.Map{
		"userId":          userID,
		"recommendations": recommendations,
		"count":           len(recommendations),
	})
}

func (h *PredictiveHandler) GetProfile(c *fiber.Ctx) error {
	userID := c.Params("id")

	profile, ok := h.engine.Profile(userID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	return c.JSON(profile)
}

func (h *PredictiveHandler) GetModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"models": h.engine.Models(),
	})
}

func (h *PredictiveHandler) GetEngines(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"engines": h.engine.Engines(),
	})
}
