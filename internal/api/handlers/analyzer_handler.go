package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/userpulse/backend/internal/analyzer"
)

type AnalyzerHandler struct {
	analyzer *analyzer.Analyzer
}

func NewAnalyzerHandler(a *analyzer.Analyzer) *AnalyzerHandler {
	return &AnalyzerHandler{
		analyzer: a,
	}
}

func (h *AnalyzerHandler) GetSegments(c *fiber.Ctx) error {
	segments := h.analyzer.Segments()

	return c.JSON(fiber.Map{
		"segments": segments,
		"count":    len(segments),
	})
}

func (h *AnalyzerHandler) GetJourneys(c *fiber.Ctx) error {
	journeys := h.analyzer.Journeys()

	return c.JSON(fiber.Map{
		"journeys": journeys,
		"count":    len(journeys),
	})
}
